package semantic

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/matsen/paperdup/internal/embedding"
	"github.com/matsen/paperdup/internal/metrics"
	"github.com/matsen/paperdup/internal/reference"
)

// Validate checks the options. TopK must be at least 1.
func (o *Options) Validate() error {
	if o.TopK < 1 {
		return fmt.Errorf("top-k must be at least 1, got %d", o.TopK)
	}
	if math.IsNaN(o.Threshold) {
		return fmt.Errorf("threshold must be a number")
	}
	return o.Weights.Validate()
}

// Validate rejects weights that cannot produce a meaningful score.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{"title": w.Title, "abstract": w.Abstract} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s weight must be finite, got %v", name, v)
		}
		if v < 0 {
			return fmt.Errorf("%s weight must not be negative, got %v", name, v)
		}
	}
	if w.Title == 0 && w.Abstract == 0 {
		return fmt.Errorf("title and abstract weights cannot both be zero")
	}
	return nil
}

// Checker runs duplicate checks against a corpus using an injected provider.
// It holds no corpus state; every call receives the full corpus.
type Checker struct {
	provider embedding.Provider
	opts     Options
	logger   *zap.Logger
}

// CheckerOption configures a Checker.
type CheckerOption func(*Checker)

// WithOptions replaces all check options.
func WithOptions(opts Options) CheckerOption {
	return func(c *Checker) {
		c.opts = opts
	}
}

// WithThreshold sets the match threshold.
func WithThreshold(threshold float64) CheckerOption {
	return func(c *Checker) {
		c.opts.Threshold = threshold
	}
}

// WithTopK sets how many ranked results are kept.
func WithTopK(k int) CheckerOption {
	return func(c *Checker) {
		c.opts.TopK = k
	}
}

// WithWeights sets the title/abstract fusion weights.
func WithWeights(w Weights) CheckerOption {
	return func(c *Checker) {
		c.opts.Weights = w
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) CheckerOption {
	return func(c *Checker) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewChecker creates a Checker using provider for all encoding.
func NewChecker(provider embedding.Provider, opts ...CheckerOption) (*Checker, error) {
	if provider == nil {
		return nil, fmt.Errorf("%w: nil embedding provider", ErrInvariantViolation)
	}
	c := &Checker{
		provider: provider,
		opts:     DefaultOptions(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid check options: %w", err)
	}
	return c, nil
}

// Options returns the options in effect.
func (c *Checker) Options() Options {
	return c.opts
}

// With returns a Checker sharing the same provider with some options changed.
func (c *Checker) With(opts ...CheckerOption) (*Checker, error) {
	all := append([]CheckerOption{WithOptions(c.opts), WithLogger(c.logger)}, opts...)
	return NewChecker(c.provider, all...)
}

// Check reports whether the candidate title and abstract are already
// represented in corpus. An empty corpus gives a negative verdict without
// touching the provider. Any encoding failure aborts the check and no
// verdict is returned.
func (c *Checker) Check(ctx context.Context, title, abstract string, corpus []reference.Reference) (Verdict, error) {
	start := time.Now()
	metrics.CorpusSize.Set(float64(len(corpus)))

	v, err := c.check(ctx, title, abstract, corpus)
	metrics.CheckDuration.Observe(time.Since(start).Seconds())
	switch {
	case err != nil:
		metrics.ChecksTotal.WithLabelValues("error").Inc()
		c.logger.Error("Duplicate check failed", zap.Int("corpus", len(corpus)), zap.Error(err))
		return Verdict{}, err
	case v.Exists:
		metrics.ChecksTotal.WithLabelValues("duplicate").Inc()
	default:
		metrics.ChecksTotal.WithLabelValues("new").Inc()
	}

	c.logger.Debug("Duplicate check completed",
		zap.Int("corpus", len(corpus)),
		zap.Bool("exists", v.Exists),
		zap.Duration("duration", time.Since(start)),
	)
	return v, nil
}

// CheckReference checks a full paper record.
func (c *Checker) CheckReference(ctx context.Context, ref reference.Reference, corpus []reference.Reference) (Verdict, error) {
	return c.Check(ctx, ref.Title, ref.Abstract, corpus)
}

func (c *Checker) check(ctx context.Context, title, abstract string, corpus []reference.Reference) (Verdict, error) {
	if len(corpus) == 0 {
		return Verdict{Exists: false, Results: []SimilarityResult{}}, nil
	}

	queryTitle, err := c.provider.Embed(ctx, title)
	if err != nil {
		return Verdict{}, fmt.Errorf("encoding candidate title: %w", err)
	}
	queryAbstract, err := c.provider.Embed(ctx, abstract)
	if err != nil {
		return Verdict{}, fmt.Errorf("encoding candidate abstract: %w", err)
	}

	titles := make([]string, len(corpus))
	abstracts := make([]string, len(corpus))
	for i, ref := range corpus {
		titles[i] = ref.Title
		abstracts[i] = ref.Abstract
	}

	corpusTitles, err := c.encodeAll(ctx, titles)
	if err != nil {
		return Verdict{}, fmt.Errorf("encoding corpus titles: %w", err)
	}
	corpusAbstracts, err := c.encodeAll(ctx, abstracts)
	if err != nil {
		return Verdict{}, fmt.Errorf("encoding corpus abstracts: %w", err)
	}

	scores, err := Score(queryTitle.Vector, queryAbstract.Vector, corpusTitles, corpusAbstracts, c.opts.Weights)
	if err != nil {
		return Verdict{}, err
	}
	return RankAndDecide(corpus, scores, c.opts.Threshold, c.opts.TopK)
}

// encodeAll embeds texts in one batch call and checks the output lines up.
func (c *Checker) encodeAll(ctx context.Context, texts []string) ([][]float32, error) {
	embs, err := c.provider.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(embs) != len(texts) {
		return nil, fmt.Errorf("%w: provider returned %d vectors for %d texts", ErrInvariantViolation, len(embs), len(texts))
	}
	return embedding.Vectors(embs), nil
}
