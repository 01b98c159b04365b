package embedding

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/matsen/paperdup/internal/metrics"
)

// InstrumentedProvider wraps a Provider with request logging and Prometheus metrics.
type InstrumentedProvider struct {
	inner  Provider
	logger *zap.Logger
}

// NewInstrumentedProvider wraps inner.
func NewInstrumentedProvider(inner Provider, logger *zap.Logger) *InstrumentedProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstrumentedProvider{inner: inner, logger: logger}
}

func (p *InstrumentedProvider) observe(op string, texts int, start time.Time, err error) {
	model := p.inner.ModelName()
	duration := time.Since(start)

	metrics.EmbeddingTextsTotal.WithLabelValues(model).Add(float64(texts))
	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(model, op, "error").Inc()
		p.logger.Error("Embedding request failed",
			zap.String("model", model),
			zap.String("op", op),
			zap.Int("texts", texts),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(model, op, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(model, op).Observe(duration.Seconds())
	p.logger.Debug("Embedding request completed",
		zap.String("model", model),
		zap.String("op", op),
		zap.Int("texts", texts),
		zap.Duration("duration", duration),
	)
}

// Embed delegates to the wrapped provider and records the outcome.
func (p *InstrumentedProvider) Embed(ctx context.Context, text string) (Embedding, error) {
	start := time.Now()
	emb, err := p.inner.Embed(ctx, text)
	p.observe("single", 1, start, err)
	return emb, err
}

// EmbedBatch delegates to the wrapped provider and records the outcome.
func (p *InstrumentedProvider) EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error) {
	start := time.Now()
	embs, err := p.inner.EmbedBatch(ctx, texts)
	p.observe("batch", len(texts), start, err)
	return embs, err
}

// ModelName returns the wrapped provider's model name.
func (p *InstrumentedProvider) ModelName() string {
	return p.inner.ModelName()
}

// Dimensions returns the wrapped provider's dimensions.
func (p *InstrumentedProvider) Dimensions() int {
	return p.inner.Dimensions()
}
