package semantic

import (
	"fmt"
	"math"
)

// CosineSimilarity computes the cosine similarity between two vectors,
// accumulating in float64. A zero vector on either side gives 0, so it is
// maximally dissimilar to everything. Vectors of different lengths cannot be
// compared and yield an ErrInvariantViolation.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: comparing vectors of dimension %d and %d", ErrInvariantViolation, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return dot / math.Sqrt(normA*normB), nil
}

// Score returns one fused score per corpus entry, in corpus order:
// w.Title*cos(queryTitle, corpusTitles[i]) + w.Abstract*cos(queryAbstract, corpusAbstracts[i]).
func Score(queryTitle, queryAbstract []float32, corpusTitles, corpusAbstracts [][]float32, w Weights) ([]float64, error) {
	if len(corpusTitles) != len(corpusAbstracts) {
		return nil, fmt.Errorf("%w: %d title vectors but %d abstract vectors",
			ErrInvariantViolation, len(corpusTitles), len(corpusAbstracts))
	}

	scores := make([]float64, len(corpusTitles))
	for i := range corpusTitles {
		titleSim, err := CosineSimilarity(queryTitle, corpusTitles[i])
		if err != nil {
			return nil, fmt.Errorf("title of corpus entry %d: %w", i, err)
		}
		abstractSim, err := CosineSimilarity(queryAbstract, corpusAbstracts[i])
		if err != nil {
			return nil, fmt.Errorf("abstract of corpus entry %d: %w", i, err)
		}
		scores[i] = w.Fuse(titleSim, abstractSim)
	}
	return scores, nil
}
