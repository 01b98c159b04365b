// Package embedding turns text into fixed-length vectors.
package embedding

// Embedding represents a vector embedding of text.
type Embedding struct {
	Vector []float32 // e.g. 384 dimensions for all-minilm
}

// Dimensions returns the dimensionality of the embedding.
func (e Embedding) Dimensions() int {
	return len(e.Vector)
}

// Vectors extracts the raw vectors from a slice of embeddings, keeping order.
func Vectors(embs []Embedding) [][]float32 {
	out := make([][]float32, len(embs))
	for i, e := range embs {
		out[i] = e.Vector
	}
	return out
}
