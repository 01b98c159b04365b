// Package semantic decides whether a candidate paper is already represented
// in a corpus by comparing title and abstract embeddings.
package semantic

import (
	"errors"

	"github.com/matsen/paperdup/internal/reference"
)

// ErrInvariantViolation reports a broken internal precondition, such as
// vector slices of different lengths. It indicates a programming error in the
// caller or a collaborator, not bad user input.
var ErrInvariantViolation = errors.New("invariant violation")

const (
	// DefaultTitleWeight is the share of the fused score taken by title similarity.
	DefaultTitleWeight = 0.4

	// DefaultAbstractWeight is the share taken by abstract similarity. Abstracts
	// carry more discriminative content than short titles.
	DefaultAbstractWeight = 0.6

	// DefaultThreshold is the minimum fused score that counts as a match.
	DefaultThreshold = 0.85

	// DefaultTopK is the number of ranked papers returned and considered for the verdict.
	DefaultTopK = 5
)

// Weights combines per-field similarities into one score.
type Weights struct {
	Title    float64 `json:"title"`
	Abstract float64 `json:"abstract"`
}

// DefaultWeights returns the 0.4/0.6 title/abstract split.
func DefaultWeights() Weights {
	return Weights{Title: DefaultTitleWeight, Abstract: DefaultAbstractWeight}
}

// Fuse returns the weighted sum of a title and an abstract similarity.
func (w Weights) Fuse(titleSim, abstractSim float64) float64 {
	return w.Title*titleSim + w.Abstract*abstractSim
}

// Options are the per-check parameters.
type Options struct {
	// Threshold is compared with >=. It is not clamped: above 1 nothing
	// matches, below -1 everything does.
	Threshold float64
	TopK      int
	Weights   Weights
}

// DefaultOptions returns threshold 0.85, top-5 and the default weights.
func DefaultOptions() Options {
	return Options{
		Threshold: DefaultThreshold,
		TopK:      DefaultTopK,
		Weights:   DefaultWeights(),
	}
}

// SimilarityResult pairs a corpus paper with its fused score.
type SimilarityResult struct {
	Paper reference.Reference `json:"paper"`
	Score float64             `json:"similarity_score"`
}

// Verdict is the outcome of a duplicate check.
type Verdict struct {
	Exists  bool               `json:"exists"`
	Results []SimilarityResult `json:"results"`
}
