package embedding

import (
	"context"
	"reflect"
	"sync"
	"testing"
)

// mapStore is an in-memory VectorStore.
type mapStore struct {
	mu   sync.Mutex
	data map[string][]float32
	puts int
}

func newMapStore() *mapStore {
	return &mapStore{data: make(map[string][]float32)}
}

func (m *mapStore) Get(ctx context.Context, key string) ([]float32, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mapStore) Put(ctx context.Context, key, model string, vector []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = vector
	m.puts++
	return nil
}

func TestCacheKey(t *testing.T) {
	if CacheKey("m", "text") != CacheKey("m", "text") {
		t.Error("CacheKey should be deterministic")
	}
	if CacheKey("m1", "text") == CacheKey("m2", "text") {
		t.Error("different models must not share keys")
	}
	if CacheKey("ab", "c") == CacheKey("a", "bc") {
		t.Error("model/text boundary must be part of the key")
	}
}

func TestCachedProvider_EmbedHitsMemory(t *testing.T) {
	inner := &countingProvider{dims: 2}
	c := NewCachedProvider(inner, 10, nil, nil, nil)
	ctx := context.Background()

	first, _ := c.Embed(ctx, "hello")
	second, _ := c.Embed(ctx, "hello")

	if inner.single != 1 {
		t.Errorf("inner called %d times, want 1", inner.single)
	}
	if !reflect.DeepEqual(first.Vector, second.Vector) {
		t.Error("cached vector differs from original")
	}
}

func TestCachedProvider_EmbedBatchOnlyMisses(t *testing.T) {
	inner := &countingProvider{dims: 2}
	c := NewCachedProvider(inner, 10, nil, nil, nil)
	ctx := context.Background()

	if _, err := c.Embed(ctx, "bb"); err != nil {
		t.Fatalf("Embed() error = %v", err)
	}

	texts := []string{"a", "bb", "ccc", "a"}
	embs, err := c.EmbedBatch(ctx, texts)
	if err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}

	if inner.batches != 1 {
		t.Errorf("inner batches = %d, want 1", inner.batches)
	}
	if !reflect.DeepEqual(inner.batchTexts, []string{"a", "ccc"}) {
		t.Errorf("inner batch texts = %v, want [a ccc]", inner.batchTexts)
	}
	for i, text := range texts {
		if embs[i].Vector[0] != float32(len(text)) {
			t.Errorf("embs[%d] = %v, does not correspond to %q", i, embs[i].Vector, text)
		}
	}

	// Fully cached batch makes no inner call.
	if _, err := c.EmbedBatch(ctx, texts); err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}
	if inner.batches != 1 {
		t.Errorf("inner batches = %d after cached batch, want 1", inner.batches)
	}
}

func TestCachedProvider_PersistentStore(t *testing.T) {
	store := newMapStore()
	ctx := context.Background()

	first := NewCachedProvider(&countingProvider{dims: 2}, 10, store, nil, nil)
	if _, err := first.EmbedBatch(ctx, []string{"x", "yy"}); err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}
	if store.puts != 2 {
		t.Errorf("store puts = %d, want 2", store.puts)
	}

	// A fresh process (empty LRU) reads from the store.
	inner := &countingProvider{dims: 2}
	second := NewCachedProvider(inner, 10, store, nil, nil)
	embs, err := second.EmbedBatch(ctx, []string{"yy", "x"})
	if err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}
	if inner.batches != 0 {
		t.Errorf("inner batches = %d, want 0", inner.batches)
	}
	if embs[0].Vector[0] != 2 || embs[1].Vector[0] != 1 {
		t.Errorf("embs = %v, want lengths [2 1]", embs)
	}
}

func TestCachedProvider_ZeroSizeDisablesMemory(t *testing.T) {
	inner := &countingProvider{dims: 2}
	c := NewCachedProvider(inner, 0, nil, nil, nil)
	ctx := context.Background()

	c.Embed(ctx, "a")
	c.Embed(ctx, "a")
	if inner.single != 2 {
		t.Errorf("inner called %d times, want 2", inner.single)
	}
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache(2)
	c.set("a", []float32{1})
	c.set("b", []float32{2})
	c.get("a") // a is now most recent
	c.set("c", []float32{3})

	if _, ok := c.get("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.get("a"); !ok {
		t.Error("a should still be cached")
	}
	if c.len() != 2 {
		t.Errorf("len = %d, want 2", c.len())
	}
}
