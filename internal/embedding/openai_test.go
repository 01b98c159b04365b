package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// newOpenAIServer fakes /v1/embeddings, returning data in reverse order with
// vectors [index, len(text)].
func newOpenAIServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/embeddings", func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			w.Write([]byte(`{"error":{"message":"model not found","type":"invalid_request_error"}}`))
			return
		}
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		type item struct {
			Object    string    `json:"object"`
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		var data []item
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, item{Object: "embedding", Embedding: []float32{float32(i), float32(len(req.Input[i]))}, Index: i})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  req.Model,
			"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
		})
	})
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object":"list","data":[]}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIProvider_EmbedBatch_ReordersByIndex(t *testing.T) {
	srv := newOpenAIServer(t, http.StatusOK)
	p := NewOpenAIProvider(OpenAIConfig{APIKey: "test", BaseURL: srv.URL + "/v1"})

	texts := []string{"a", "bb", "ccc"}
	embs, err := p.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}
	for i, text := range texts {
		if embs[i].Vector[0] != float32(i) || embs[i].Vector[1] != float32(len(text)) {
			t.Errorf("embs[%d] = %v, want [%d %d]", i, embs[i].Vector, i, len(text))
		}
	}
}

func TestOpenAIProvider_Embed(t *testing.T) {
	srv := newOpenAIServer(t, http.StatusOK)
	p := NewOpenAIProvider(OpenAIConfig{APIKey: "test", BaseURL: srv.URL + "/v1"})

	emb, err := p.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if emb.Vector[1] != 5 {
		t.Errorf("Embed() = %v, want second component 5", emb.Vector)
	}
	if p.ModelName() != DefaultOpenAIModel {
		t.Errorf("ModelName() = %q, want %q", p.ModelName(), DefaultOpenAIModel)
	}
}

func TestOpenAIProvider_APIError(t *testing.T) {
	srv := newOpenAIServer(t, http.StatusNotFound)
	p := NewOpenAIProvider(OpenAIConfig{APIKey: "test", BaseURL: srv.URL + "/v1"})

	_, err := p.Embed(context.Background(), "hello")
	if !IsEncodingError(err) {
		t.Fatalf("Embed() error = %v, want EncodingError", err)
	}
	if !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("404 should map to ErrModelUnavailable, got %v", err)
	}
}

func TestOpenAIProvider_Load(t *testing.T) {
	srv := newOpenAIServer(t, http.StatusOK)
	p := NewOpenAIProvider(OpenAIConfig{APIKey: "test", BaseURL: srv.URL + "/v1"})

	if _, err := p.Load(context.Background()); err != nil {
		t.Errorf("Load() error = %v", err)
	}
}
