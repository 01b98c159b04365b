package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultOpenAIModel is the default model for OpenAI-compatible backends.
const DefaultOpenAIModel = "text-embedding-3-small"

// OpenAIConfig holds the settings for an OpenAI-compatible embedding backend.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string // Empty uses api.openai.com
	Model      string
	Dimensions int // Zero lets the model pick its native size
	HTTPClient *http.Client
}

// OpenAIProvider generates embeddings through an OpenAI-compatible API.
type OpenAIProvider struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
}

// NewOpenAIProvider creates an OpenAI-compatible embedding provider.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}
	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}

	return &OpenAIProvider{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(model),
		dimensions: cfg.Dimensions,
	}
}

// Embed generates an embedding for the given text.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) (Embedding, error) {
	embs, err := p.create(ctx, []string{text})
	if err != nil {
		return Embedding{}, err
	}
	return embs[0], nil
}

// EmbedBatch generates embeddings for all texts in one request.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error) {
	if len(texts) == 0 {
		return []Embedding{}, nil
	}
	return p.create(ctx, texts)
}

func (p *OpenAIProvider) create(ctx context.Context, texts []string) ([]Embedding, error) {
	req := openai.EmbeddingRequest{
		Input:          texts,
		Model:          p.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if p.dimensions > 0 {
		req.Dimensions = p.dimensions
	}

	resp, err := p.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, wrapEncoding(string(p.model), len(texts), parseAPIError(err))
	}

	if len(resp.Data) == 0 {
		return nil, wrapEncoding(string(p.model), len(texts), ErrEmptyResponse)
	}
	if len(resp.Data) != len(texts) {
		return nil, wrapEncoding(string(p.model), len(texts),
			fmt.Errorf("%w: got %d vectors for %d texts", ErrBatchLength, len(resp.Data), len(texts)))
	}

	// The API reports each vector's input position; it is not required to
	// return them in order.
	out := make([]Embedding, len(texts))
	seen := make([]bool, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) || seen[d.Index] {
			return nil, wrapEncoding(string(p.model), len(texts),
				fmt.Errorf("%w: bad index %d in response", ErrBatchLength, d.Index))
		}
		if p.dimensions > 0 && len(d.Embedding) != p.dimensions {
			return nil, wrapEncoding(string(p.model), len(texts),
				fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(d.Embedding), p.dimensions))
		}
		seen[d.Index] = true
		out[d.Index] = Embedding{Vector: d.Embedding}
	}
	return out, nil
}

// ModelName returns the name of the embedding model.
func (p *OpenAIProvider) ModelName() string {
	return string(p.model)
}

// Dimensions returns the requested dimensions, or 0 for the model default.
func (p *OpenAIProvider) Dimensions() int {
	return p.dimensions
}

// Load verifies the API is reachable via ListModels.
func (p *OpenAIProvider) Load(ctx context.Context) (Provider, error) {
	if _, err := p.client.ListModels(ctx); err != nil {
		return nil, fmt.Errorf("%w: list models: %v", ErrModelUnavailable, parseAPIError(err))
	}
	return p, nil
}

// parseAPIError extracts a human-readable error from the API response.
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if detail := extractDetail(reqErr.Body); detail != "" {
			return fmt.Errorf("embedding API error %d: %s", reqErr.HTTPStatusCode, detail)
		}
		return fmt.Errorf("embedding API error %d: %s", reqErr.HTTPStatusCode, string(reqErr.Body))
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", ErrModelUnavailable, apiErr.Message)
		}
		return fmt.Errorf("embedding API error %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
	}

	return fmt.Errorf("%w: %v", ErrModelUnavailable, err)
}

// extractDetail extracts the "detail" field some compatible servers use for errors.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
