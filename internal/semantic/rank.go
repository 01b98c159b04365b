package semantic

import (
	"fmt"
	"math"
	"sort"

	"github.com/matsen/paperdup/internal/reference"
)

// Rank pairs each corpus paper with its score, sorts by score descending and
// keeps the first topK. The sort is stable, so equal scores keep corpus order.
// NaN scores sort after every number.
func Rank(corpus []reference.Reference, scores []float64, topK int) ([]SimilarityResult, error) {
	if len(corpus) != len(scores) {
		return nil, fmt.Errorf("%w: %d papers but %d scores", ErrInvariantViolation, len(corpus), len(scores))
	}
	if topK < 0 {
		return nil, fmt.Errorf("top-k must not be negative, got %d", topK)
	}

	results := make([]SimilarityResult, len(corpus))
	for i := range corpus {
		results[i] = SimilarityResult{Paper: corpus[i], Score: scores[i]}
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i].Score, results[j].Score
		if math.IsNaN(b) {
			return !math.IsNaN(a)
		}
		return a > b
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Decide reports whether any result scores at least threshold.
func Decide(results []SimilarityResult, threshold float64) bool {
	for _, r := range results {
		if r.Score >= threshold {
			return true
		}
	}
	return false
}

// RankAndDecide ranks the corpus and applies the threshold to the top-K only.
func RankAndDecide(corpus []reference.Reference, scores []float64, threshold float64, topK int) (Verdict, error) {
	results, err := Rank(corpus, scores, topK)
	if err != nil {
		return Verdict{}, err
	}
	return Verdict{
		Exists:  Decide(results, threshold),
		Results: results,
	}, nil
}
