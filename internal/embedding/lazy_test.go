package embedding

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// countingProvider records calls and returns [len(text), 1] unless dims says otherwise.
type countingProvider struct {
	mu         sync.Mutex
	dims       int
	single     int
	batches    int
	batchTexts []string
	fail       error
}

func (c *countingProvider) vec(text string) []float32 {
	v := make([]float32, c.dims)
	if c.dims > 0 {
		v[0] = float32(len(text))
	}
	if c.dims > 1 {
		v[1] = 1
	}
	return v
}

func (c *countingProvider) Embed(ctx context.Context, text string) (Embedding, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.single++
	if c.fail != nil {
		return Embedding{}, c.fail
	}
	return Embedding{Vector: c.vec(text)}, nil
}

func (c *countingProvider) EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches++
	c.batchTexts = append(c.batchTexts, texts...)
	if c.fail != nil {
		return nil, c.fail
	}
	out := make([]Embedding, len(texts))
	for i, text := range texts {
		out[i] = Embedding{Vector: c.vec(text)}
	}
	return out, nil
}

func (c *countingProvider) ModelName() string { return "counting" }
func (c *countingProvider) Dimensions() int   { return 0 }

func TestLazyProvider_LoadsOnce(t *testing.T) {
	inner := &countingProvider{dims: 2}
	loads := 0
	lazy := NewLazyProvider("counting", func(ctx context.Context) (Provider, error) {
		loads++
		return inner, nil
	}, nil)

	if lazy.Loaded() {
		t.Fatal("provider should not load before first use")
	}
	if lazy.Dimensions() != 0 {
		t.Errorf("Dimensions() before load = %d, want 0", lazy.Dimensions())
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := lazy.Embed(ctx, "x"); err != nil {
			t.Fatalf("Embed() error = %v", err)
		}
	}
	if _, err := lazy.EmbedBatch(ctx, []string{"a", "b"}); err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}

	if loads != 1 {
		t.Errorf("loader called %d times, want 1", loads)
	}
	if lazy.Dimensions() != 2 {
		t.Errorf("Dimensions() = %d, want 2", lazy.Dimensions())
	}
}

func TestLazyProvider_ConcurrentFirstUse(t *testing.T) {
	inner := &countingProvider{dims: 4}
	var mu sync.Mutex
	loads := 0
	lazy := NewLazyProvider("counting", func(ctx context.Context) (Provider, error) {
		mu.Lock()
		loads++
		mu.Unlock()
		return inner, nil
	}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lazy.Embed(context.Background(), "x")
		}()
	}
	wg.Wait()

	if loads != 1 {
		t.Errorf("loader called %d times, want 1", loads)
	}
}

func TestLazyProvider_FailedLoadRetries(t *testing.T) {
	attempts := 0
	lazy := NewLazyProvider("flaky", func(ctx context.Context) (Provider, error) {
		attempts++
		if attempts == 1 {
			return nil, ErrModelUnavailable
		}
		return &countingProvider{dims: 2}, nil
	}, nil)

	_, err := lazy.Embed(context.Background(), "x")
	if !IsEncodingError(err) || !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("first Embed() error = %v, want EncodingError wrapping ErrModelUnavailable", err)
	}
	if lazy.Loaded() {
		t.Fatal("failed load must not be memoized")
	}

	if _, err := lazy.Embed(context.Background(), "x"); err != nil {
		t.Fatalf("second Embed() error = %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

// shrinkingProvider returns a shorter vector after the first call.
type shrinkingProvider struct{ calls int }

func (s *shrinkingProvider) Embed(ctx context.Context, text string) (Embedding, error) {
	s.calls++
	if s.calls == 1 {
		return Embedding{Vector: []float32{1, 0, 0}}, nil
	}
	return Embedding{Vector: []float32{1, 0}}, nil
}

func (s *shrinkingProvider) EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error) {
	return embedEach(ctx, s, texts)
}

func (s *shrinkingProvider) ModelName() string { return "shrinking" }
func (s *shrinkingProvider) Dimensions() int   { return 0 }

func TestLazyProvider_AssertsDimensions(t *testing.T) {
	lazy := NewLazyProvider("shrinking", func(ctx context.Context) (Provider, error) {
		return &shrinkingProvider{}, nil
	}, nil)

	_, err := lazy.Embed(context.Background(), "x")
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Embed() error = %v, want ErrDimensionMismatch", err)
	}
}

func TestLazyProvider_InnerErrorIsEncodingError(t *testing.T) {
	boom := errors.New("boom")
	inner := &countingProvider{dims: 2}
	lazy := NewLazyProvider("counting", func(ctx context.Context) (Provider, error) {
		return inner, nil
	}, nil)
	if err := lazy.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	inner.fail = boom
	_, err := lazy.EmbedBatch(context.Background(), []string{"a"})
	if !IsEncodingError(err) || !errors.Is(err, boom) {
		t.Errorf("EmbedBatch() error = %v, want EncodingError wrapping boom", err)
	}
}
