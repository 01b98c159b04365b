package semantic

import (
	"context"
	"fmt"
	"time"

	"github.com/matsen/paperdup/internal/embedding"
	"github.com/matsen/paperdup/internal/reference"
)

// DefaultWarmBatchSize is the number of papers embedded per provider call when warming.
const DefaultWarmBatchSize = 32

// ProgressReporter receives progress updates while a corpus is being embedded.
type ProgressReporter interface {
	// OnProgress is called with the number of papers done so far.
	OnProgress(current, total int)
}

// ProgressFunc is a function adapter for ProgressReporter.
type ProgressFunc func(current, total int)

// OnProgress implements ProgressReporter.
func (f ProgressFunc) OnProgress(current, total int) {
	f(current, total)
}

// WarmStats summarizes a warm-up run.
type WarmStats struct {
	Papers     int           `json:"papers"`
	Texts      int           `json:"texts"`
	Dimensions int           `json:"dimensions"`
	Duration   time.Duration `json:"duration_ns"`
}

// Warm embeds every title and abstract in corpus so a caching provider can
// serve later checks without calling the backend. Papers are sent in batches
// of batchSize (DefaultWarmBatchSize if <= 0).
func Warm(ctx context.Context, provider embedding.Provider, corpus []reference.Reference, batchSize int, progress ProgressReporter) (*WarmStats, error) {
	start := time.Now()
	if batchSize <= 0 {
		batchSize = DefaultWarmBatchSize
	}

	stats := &WarmStats{}
	total := len(corpus)
	for lo := 0; lo < total; lo += batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		hi := min(lo+batchSize, total)
		texts := make([]string, 0, 2*(hi-lo))
		for _, ref := range corpus[lo:hi] {
			texts = append(texts, ref.Title, ref.Abstract)
		}

		embs, err := provider.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embedding papers %d-%d: %w", lo+1, hi, err)
		}
		if len(embs) != len(texts) {
			return nil, fmt.Errorf("%w: provider returned %d vectors for %d texts", ErrInvariantViolation, len(embs), len(texts))
		}
		if len(embs) > 0 {
			stats.Dimensions = embs[0].Dimensions()
		}

		stats.Papers = hi
		stats.Texts += len(texts)
		if progress != nil {
			progress.OnProgress(hi, total)
		}
	}

	stats.Duration = time.Since(start)
	return stats, nil
}
