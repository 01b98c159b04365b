package embedding

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

// CacheKey derives the cache key for text embedded by model.
func CacheKey(model, text string) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// CachedProvider serves repeated texts from an in-memory LRU and, when
// configured, a persistent VectorStore, falling back to the wrapped provider.
type CachedProvider struct {
	inner      Provider
	memory     *lruCache
	store      VectorStore
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// NewCachedProvider wraps inner. store and cacheTotal may be nil.
// cacheTotal is a counter vec labelled by tier and result.
func NewCachedProvider(inner Provider, size int, store VectorStore, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *CachedProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedProvider{
		inner:      inner,
		memory:     newLRUCache(size),
		store:      store,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// modelKey names the vector space: the model plus any explicit dimension override.
func (c *CachedProvider) modelKey() string {
	if d := c.inner.Dimensions(); d > 0 {
		return fmt.Sprintf("%s/%d", c.inner.ModelName(), d)
	}
	return c.inner.ModelName()
}

func (c *CachedProvider) inc(tier, result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(tier, result).Inc()
	}
}

// lookup checks memory then the store. Store errors are logged and treated as misses.
func (c *CachedProvider) lookup(ctx context.Context, key string) ([]float32, bool) {
	if vec, ok := c.memory.get(key); ok {
		c.inc("memory", "hit")
		return vec, true
	}
	c.inc("memory", "miss")

	if c.store == nil {
		return nil, false
	}
	vec, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("Embedding cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !ok {
		c.inc("store", "miss")
		return nil, false
	}
	c.inc("store", "hit")
	c.memory.set(key, vec)
	return vec, true
}

func (c *CachedProvider) remember(ctx context.Context, key string, vec []float32) {
	c.memory.set(key, vec)
	if c.store == nil {
		return
	}
	if err := c.store.Put(ctx, key, c.inner.ModelName(), vec); err != nil {
		c.logger.Warn("Embedding cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Embed returns a cached embedding or calls the wrapped provider.
func (c *CachedProvider) Embed(ctx context.Context, text string) (Embedding, error) {
	key := CacheKey(c.modelKey(), text)
	if vec, ok := c.lookup(ctx, key); ok {
		return Embedding{Vector: vec}, nil
	}

	emb, err := c.inner.Embed(ctx, text)
	if err != nil {
		return Embedding{}, err
	}
	c.remember(ctx, key, emb.Vector)
	return emb, nil
}

// EmbedBatch embeds only the texts missing from the cache, in a single call to
// the wrapped provider, and returns vectors in input order. Duplicate texts
// within the batch are embedded once.
func (c *CachedProvider) EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error) {
	out := make([]Embedding, len(texts))

	var missTexts []string
	missSlots := make(map[string][]int) // key -> positions in texts
	var missOrder []string

	for i, text := range texts {
		key := CacheKey(c.modelKey(), text)
		if slots, pending := missSlots[key]; pending {
			missSlots[key] = append(slots, i)
			continue
		}
		if vec, ok := c.lookup(ctx, key); ok {
			out[i] = Embedding{Vector: vec}
			continue
		}
		missSlots[key] = []int{i}
		missOrder = append(missOrder, key)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	embs, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(embs) != len(missTexts) {
		return nil, wrapEncoding(c.inner.ModelName(), len(missTexts),
			fmt.Errorf("%w: got %d vectors for %d texts", ErrBatchLength, len(embs), len(missTexts)))
	}

	for j, key := range missOrder {
		c.remember(ctx, key, embs[j].Vector)
		for _, i := range missSlots[key] {
			out[i] = embs[j]
		}
	}

	c.logger.Debug("Embedding batch served",
		zap.Int("texts", len(texts)),
		zap.Int("embedded", len(missTexts)),
	)
	return out, nil
}

// ModelName returns the wrapped provider's model name.
func (c *CachedProvider) ModelName() string {
	return c.inner.ModelName()
}

// Dimensions returns the wrapped provider's dimensions.
func (c *CachedProvider) Dimensions() int {
	return c.inner.Dimensions()
}
