package ollama

import (
	"context"

	"github.com/upb/recipe-api/services/providers"
)

// Ensure Embedder implements the interface.
var _ providers.Embedder = (*Embedder)(nil)

// Embedder generates embeddings through /api/embeddings.
type Embedder struct {
	*client
	model string
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// NewEmbedder creates a new Ollama embedding backend.
func NewEmbedder(cfg providers.ProviderConfig) *Embedder {
	if cfg.Model == "" {
		cfg.Model = DefaultEmbeddingModel
	}
	return &Embedder{
		client: newClient(cfg),
		model:  cfg.Model,
	}
}

// Name returns the provider name
func (e *Embedder) Name() string {
	return providerName
}

// Embed generates a vector embedding for the given text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var resp embedResponse
	if err := e.postJSON(ctx, "/api/embeddings", embedRequest{Model: e.model, Prompt: text}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embedding) == 0 {
		return nil, providers.NewProviderError(providerName, "EMPTY_EMBEDDING", "no embedding returned", 200, nil)
	}

	embedding := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		embedding[i] = float32(v)
	}
	return embedding, nil
}
