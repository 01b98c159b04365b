package storage

import (
	"context"
	"math"
	"path/filepath"
	"testing"
)

func setupTestCache(t *testing.T) *VectorCache {
	t.Helper()

	cache, err := OpenVectorCache(filepath.Join(t.TempDir(), "cache", "embeddings.db"))
	if err != nil {
		t.Fatalf("OpenVectorCache() error = %v", err)
	}
	t.Cleanup(func() { cache.Close() })
	return cache
}

func TestVectorCache_PutGet(t *testing.T) {
	ctx := context.Background()
	cache := setupTestCache(t)

	vec := []float32{0.5, -1.25, float32(math.Pi), 0}
	if err := cache.Put(ctx, "k1", "model-a", vec); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, ok, err := cache.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok {
		t.Fatal("Get() ok = false, want true")
	}
	if len(got) != len(vec) {
		t.Fatalf("len = %d, want %d", len(got), len(vec))
	}
	for i := range vec {
		if math.Float32bits(got[i]) != math.Float32bits(vec[i]) {
			t.Errorf("got[%d] = %v, want %v", i, got[i], vec[i])
		}
	}
}

func TestVectorCache_Miss(t *testing.T) {
	cache := setupTestCache(t)

	got, ok, err := cache.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok || got != nil {
		t.Errorf("Get() = (%v, %v), want miss", got, ok)
	}
}

func TestVectorCache_Replace(t *testing.T) {
	ctx := context.Background()
	cache := setupTestCache(t)

	cache.Put(ctx, "k", "m", []float32{1, 2})
	cache.Put(ctx, "k", "m", []float32{3, 4, 5})

	got, _, err := cache.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(got) != 3 || got[0] != 3 {
		t.Errorf("Get() = %v, want [3 4 5]", got)
	}

	n, _ := cache.Count(ctx)
	if n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}

func TestVectorCache_CountAndClear(t *testing.T) {
	ctx := context.Background()
	cache := setupTestCache(t)

	cache.Put(ctx, "a", "model-b", []float32{1, 2, 3})
	cache.Put(ctx, "b", "model-a", []float32{1, 2})
	cache.Put(ctx, "c", "model-a", []float32{3, 4})

	n, err := cache.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 3 {
		t.Errorf("Count() = %d, want 3", n)
	}

	byModel, err := cache.CountByModel(ctx)
	if err != nil {
		t.Fatalf("CountByModel() error = %v", err)
	}
	want := []ModelCount{
		{Model: "model-a", Dimensions: 2, Vectors: 2},
		{Model: "model-b", Dimensions: 3, Vectors: 1},
	}
	if len(byModel) != len(want) {
		t.Fatalf("CountByModel() = %+v, want %+v", byModel, want)
	}
	for i := range want {
		if byModel[i] != want[i] {
			t.Errorf("CountByModel()[%d] = %+v, want %+v", i, byModel[i], want[i])
		}
	}

	removed, err := cache.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if removed != 3 {
		t.Errorf("Clear() removed %d, want 3", removed)
	}
	if n, _ := cache.Count(ctx); n != 0 {
		t.Errorf("Count() after Clear = %d, want 0", n)
	}
}

func TestVectorCache_PersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "embeddings.db")

	cache, err := OpenVectorCache(path)
	if err != nil {
		t.Fatalf("OpenVectorCache() error = %v", err)
	}
	if err := cache.Put(ctx, "k", "m", []float32{7}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	cache.Close()

	reopened, err := OpenVectorCache(path)
	if err != nil {
		t.Fatalf("OpenVectorCache() error = %v", err)
	}
	defer reopened.Close()

	got, ok, err := reopened.Get(ctx, "k")
	if err != nil || !ok || got[0] != 7 {
		t.Errorf("Get() after reopen = (%v, %v, %v)", got, ok, err)
	}
}

func TestDecodeVector_Corrupt(t *testing.T) {
	if _, err := decodeVector([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for blob length not divisible by 4")
	}
}
