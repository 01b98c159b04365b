package embedding

import "context"

// Provider generates embeddings from text.
type Provider interface {
	// Embed generates an embedding for the given text.
	Embed(ctx context.Context, text string) (Embedding, error)

	// EmbedBatch generates one embedding per text. The i-th output always
	// corresponds to the i-th input; nothing is reordered or dropped.
	EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error)

	// ModelName returns the name of the embedding model.
	ModelName() string

	// Dimensions returns the vector dimensions, or 0 if not yet known.
	Dimensions() int
}

// VectorStore persists embeddings across runs, keyed by CacheKey.
type VectorStore interface {
	Get(ctx context.Context, key string) ([]float32, bool, error)
	Put(ctx context.Context, key, model string, vector []float32) error
}

// embedEach is the batch fallback for backends without a native batch call.
func embedEach(ctx context.Context, p Provider, texts []string) ([]Embedding, error) {
	out := make([]Embedding, len(texts))
	for i, text := range texts {
		emb, err := p.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = emb
	}
	return out, nil
}
