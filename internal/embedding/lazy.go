package embedding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// dimensionSample is embedded once at load time to discover the vector size.
const dimensionSample = "dimension sample"

// Loader prepares a backend for use. It runs at most once successfully per
// LazyProvider and is expected to be slow (model download, warm-up, health checks).
type Loader func(ctx context.Context) (Provider, error)

// LazyProvider defers loading its backend until the first embedding request,
// then reuses it for the lifetime of the instance. The vector dimensionality
// is discovered at load time and every later vector is checked against it.
//
// LazyProvider is safe for concurrent use as long as the loaded backend is.
type LazyProvider struct {
	model  string
	load   Loader
	logger *zap.Logger

	mu       sync.Mutex
	inner    Provider
	dims     int
	loadTime time.Duration
}

// NewLazyProvider wraps load. model is reported by ModelName before loading.
func NewLazyProvider(model string, load Loader, logger *zap.Logger) *LazyProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LazyProvider{model: model, load: load, logger: logger}
}

// Load loads the backend if it is not loaded yet. A failed load is not
// memoized; the next call tries again.
func (l *LazyProvider) Load(ctx context.Context) error {
	_, err := l.ensure(ctx)
	return err
}

func (l *LazyProvider) ensure(ctx context.Context) (Provider, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.inner != nil {
		return l.inner, nil
	}

	start := time.Now()
	p, err := l.load(ctx)
	if err != nil {
		l.logger.Error("Loading embedding model failed", zap.String("model", l.model), zap.Error(err))
		return nil, wrapEncoding(l.model, 0, fmt.Errorf("loading model: %w", err))
	}

	sample, err := p.Embed(ctx, dimensionSample)
	if err != nil {
		return nil, wrapEncoding(l.model, 1, fmt.Errorf("discovering dimensions: %w", err))
	}
	dims := sample.Dimensions()
	if dims == 0 {
		return nil, wrapEncoding(l.model, 1, fmt.Errorf("discovering dimensions: %w", ErrEmptyResponse))
	}
	if want := p.Dimensions(); want > 0 && want != dims {
		return nil, wrapEncoding(l.model, 1, fmt.Errorf("%w: model produces %d, configured %d", ErrDimensionMismatch, dims, want))
	}

	l.inner = p
	l.dims = dims
	l.loadTime = time.Since(start)
	l.logger.Info("Embedding model loaded",
		zap.String("model", p.ModelName()),
		zap.Int("dimensions", dims),
		zap.Duration("duration", l.loadTime),
	)
	return p, nil
}

// Loaded reports whether the backend has been loaded.
func (l *LazyProvider) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner != nil
}

// LoadDuration returns how long the successful load took.
func (l *LazyProvider) LoadDuration() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loadTime
}

func (l *LazyProvider) check(emb Embedding) error {
	if emb.Dimensions() != l.dims {
		return wrapEncoding(l.model, 1, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, emb.Dimensions(), l.dims))
	}
	return nil
}

// Embed loads the backend if needed and embeds text.
func (l *LazyProvider) Embed(ctx context.Context, text string) (Embedding, error) {
	p, err := l.ensure(ctx)
	if err != nil {
		return Embedding{}, err
	}
	emb, err := p.Embed(ctx, text)
	if err != nil {
		return Embedding{}, wrapEncoding(l.model, 1, err)
	}
	if err := l.check(emb); err != nil {
		return Embedding{}, err
	}
	return emb, nil
}

// EmbedBatch loads the backend if needed and embeds texts in order.
func (l *LazyProvider) EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error) {
	p, err := l.ensure(ctx)
	if err != nil {
		return nil, err
	}
	embs, err := p.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, wrapEncoding(l.model, len(texts), err)
	}
	if len(embs) != len(texts) {
		return nil, wrapEncoding(l.model, len(texts),
			fmt.Errorf("%w: got %d vectors for %d texts", ErrBatchLength, len(embs), len(texts)))
	}
	for _, emb := range embs {
		if err := l.check(emb); err != nil {
			return nil, err
		}
	}
	return embs, nil
}

// ModelName returns the configured model name.
func (l *LazyProvider) ModelName() string {
	return l.model
}

// Dimensions returns the discovered dimensionality, or 0 before loading.
func (l *LazyProvider) Dimensions() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dims
}
