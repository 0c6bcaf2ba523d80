package openai

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/upb/recipe-api/services/providers"
)

const (
	providerName   = "openai"
	defaultBaseURL = "https://api.openai.com/v1"

	DefaultCompletionModel = "gpt-3.5-turbo-instruct"
	DefaultEmbeddingModel  = string(goopenai.SmallEmbedding3)
)

// Ensure the adapters implement the interfaces.
var (
	_ providers.Generator = (*Generator)(nil)
	_ providers.Embedder  = (*Embedder)(nil)
)

func newClient(cfg providers.ProviderConfig) *goopenai.Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	clientCfg.HTTPClient = &http.Client{
		Timeout:   cfg.Timeout,
		Transport: headerTransport{headers: cfg.Headers, next: http.DefaultTransport},
	}
	return goopenai.NewClientWithConfig(clientCfg)
}

// headerTransport adds static headers to every outgoing request.
type headerTransport struct {
	headers map[string]string
	next    http.RoundTripper
}

func (t headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if len(t.headers) == 0 {
		return t.next.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.next.RoundTrip(req)
}

// Generator targets the legacy /completions endpoint, which takes a raw
// prompt. It works against OpenAI and OpenAI-compatible servers (vLLM,
// llama.cpp, text-generation-inference). The API has no top_k parameter, so
// GenerationRequest.TopK is not forwarded.
type Generator struct {
	client *goopenai.Client
	model  string
}

// NewGenerator creates a completion backend
func NewGenerator(cfg providers.ProviderConfig) *Generator {
	if cfg.Model == "" {
		cfg.Model = DefaultCompletionModel
	}
	return &Generator{
		client: newClient(cfg),
		model:  cfg.Model,
	}
}

// Name returns the provider name
func (g *Generator) Name() string {
	return providerName
}

// Generate performs a single completion request
func (g *Generator) Generate(ctx context.Context, req *providers.GenerationRequest) (*providers.GenerationResponse, error) {
	start := time.Now()

	creq := goopenai.CompletionRequest{
		Model:     g.model,
		Prompt:    req.Prompt,
		MaxTokens: req.MaxNewTokens,
		TopP:      float32(req.TopP),
		N:         1,
	}
	if req.DoSample {
		creq.Temperature = float32(req.Temperature)
	}
	if req.StopToken != "" {
		creq.Stop = []string{req.StopToken}
	}

	resp, err := g.client.CreateCompletion(ctx, creq)
	if err != nil {
		return nil, convertError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, providers.NewProviderError(providerName, "EMPTY_RESPONSE", "no choices returned", http.StatusOK, nil)
	}

	model := resp.Model
	if model == "" {
		model = g.model
	}
	return &providers.GenerationResponse{
		Text:             resp.Choices[0].Text,
		Model:            model,
		Provider:         providerName,
		Latency:          time.Since(start),
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// IsAvailable checks if the provider answers a model listing
func (g *Generator) IsAvailable(ctx context.Context) bool {
	_, err := g.client.ListModels(ctx)
	return err == nil
}

// Embedder generates query embeddings through /embeddings
type Embedder struct {
	client *goopenai.Client
	model  string
}

// NewEmbedder creates an embedding backend
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

// Embed returns the embedding of text
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Input: []string{text},
		Model: goopenai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, convertError(err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, providers.NewProviderError(providerName, "EMPTY_EMBEDDING", "no embedding returned", http.StatusOK, nil)
	}
	return resp.Data[0].Embedding, nil
}

// convertError maps go-openai errors onto ProviderError
func convertError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return providers.NewProviderError(providerName, apiErr.Type, apiErr.Message, apiErr.HTTPStatusCode, err)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return providers.NewProviderError(providerName, "REQUEST_ERROR", "request failed", reqErr.HTTPStatusCode, err)
	}
	return providers.NewProviderError(providerName, "HTTP_ERROR", "request failed", 0, err)
}
