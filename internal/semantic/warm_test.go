package semantic

import (
	"context"
	"testing"

	"github.com/matsen/paperdup/internal/embedding"
)

func TestWarm(t *testing.T) {
	p := &tableProvider{vectors: map[string][]float32{}}
	corpus := papers(5)

	var calls []int
	stats, err := Warm(context.Background(), p, corpus, 2, ProgressFunc(func(current, total int) {
		if total != 5 {
			t.Errorf("total = %d, want 5", total)
		}
		calls = append(calls, current)
	}))
	if err != nil {
		t.Fatalf("Warm() error = %v", err)
	}

	if stats.Papers != 5 || stats.Texts != 10 {
		t.Errorf("stats = %+v, want 5 papers and 10 texts", stats)
	}
	if p.batchCalls != 3 {
		t.Errorf("batch calls = %d, want 3", p.batchCalls)
	}
	want := []int{2, 4, 5}
	if len(calls) != len(want) {
		t.Fatalf("progress calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("progress calls = %v, want %v", calls, want)
			break
		}
	}
}

func TestWarm_ReportsDimensions(t *testing.T) {
	stats, err := Warm(context.Background(), embedding.NewHashProvider(48), hashCorpus(), 0, nil)
	if err != nil {
		t.Fatalf("Warm() error = %v", err)
	}
	if stats.Dimensions != 48 {
		t.Errorf("Dimensions = %d, want 48", stats.Dimensions)
	}
}

func TestWarm_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &tableProvider{}
	if _, err := Warm(ctx, p, papers(3), 1, nil); err != context.Canceled {
		t.Errorf("Warm() error = %v, want context.Canceled", err)
	}
	if p.batchCalls != 0 {
		t.Errorf("batch calls = %d, want 0", p.batchCalls)
	}
}

func TestWarm_ProviderError(t *testing.T) {
	_, err := Warm(context.Background(), &failingProvider{}, papers(1), 1, nil)
	if !embedding.IsEncodingError(err) {
		t.Errorf("expected EncodingError, got %v", err)
	}
}
