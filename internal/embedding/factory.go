package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/matsen/paperdup/internal/config"
	"github.com/matsen/paperdup/internal/metrics"
)

// backend is a Provider that knows how to get itself ready.
type backend interface {
	Provider
	Load(ctx context.Context) (Provider, error)
}

// New assembles the provider described by cfg: the selected backend, wrapped
// with instrumentation and caching, behind a LazyProvider so nothing is loaded
// until the first embedding request. store may be nil.
func New(cfg config.Embedding, store VectorStore, logger *zap.Logger) (*LazyProvider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	b, err := newBackend(cfg)
	if err != nil {
		return nil, err
	}

	load := func(ctx context.Context) (Provider, error) {
		ready, err := b.Load(ctx)
		if err != nil {
			return nil, err
		}
		instrumented := NewInstrumentedProvider(ready, logger)
		return NewCachedProvider(instrumented, cfg.CacheSize, store, metrics.EmbeddingCacheTotal, logger), nil
	}

	return NewLazyProvider(b.ModelName(), load, logger), nil
}

func newBackend(cfg config.Embedding) (backend, error) {
	switch cfg.Provider {
	case config.ProviderOllama, "":
		opts := []OllamaOption{WithDimensions(cfg.Dimensions)}
		if cfg.BaseURL != "" {
			opts = append(opts, WithBaseURL(cfg.BaseURL))
		}
		if cfg.Model != "" {
			opts = append(opts, WithModel(cfg.Model))
		}
		if cfg.Timeout > 0 {
			opts = append(opts, WithTimeout(cfg.Timeout))
		}
		return NewOllamaProvider(opts...), nil

	case config.ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key (set OPENAI_API_KEY)")
		}
		return NewOpenAIProvider(OpenAIConfig{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		}), nil

	case config.ProviderHash:
		return hashBackend{NewHashProvider(cfg.Dimensions)}, nil

	default:
		return nil, config.ValidateProvider(cfg.Provider)
	}
}

// hashBackend gives HashProvider the no-op Load every backend needs.
type hashBackend struct {
	*HashProvider
}

func (h hashBackend) Load(context.Context) (Provider, error) {
	return h.HashProvider, nil
}
