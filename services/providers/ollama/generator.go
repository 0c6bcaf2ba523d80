package ollama

import (
	"context"
	"time"

	"github.com/upb/recipe-api/services/providers"
)

// Ensure Generator implements the interface.
var _ providers.Generator = (*Generator)(nil)

// Generator runs raw prompt completion through /api/generate.
type Generator struct {
	*client
	model string
}

// generateRequest is the Ollama /api/generate request format.
type generateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	Stream  bool     `json:"stream"`
	Raw     bool     `json:"raw"`
	Options *options `json:"options,omitempty"`
}

// options holds sampling parameters.
type options struct {
	NumPredict  int      `json:"num_predict,omitempty"`
	Temperature float64  `json:"temperature"`
	TopK        int      `json:"top_k,omitempty"`
	TopP        float64  `json:"top_p,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// generateResponse is the Ollama /api/generate response format.
type generateResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// NewGenerator creates a new Ollama generation backend.
func NewGenerator(cfg providers.ProviderConfig) *Generator {
	if cfg.Model == "" {
		cfg.Model = DefaultGenerateModel
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

// Model returns the configured model name
func (g *Generator) Model() string {
	return g.model
}

// Generate sends the prompt verbatim (raw mode, no chat template).
func (g *Generator) Generate(ctx context.Context, req *providers.GenerationRequest) (*providers.GenerationResponse, error) {
	start := time.Now()

	opts := &options{
		NumPredict: req.MaxNewTokens,
		TopK:       req.TopK,
		TopP:       req.TopP,
	}
	if req.DoSample {
		opts.Temperature = req.Temperature
	}
	if req.StopToken != "" {
		opts.Stop = []string{req.StopToken}
	}

	body := generateRequest{
		Model:   g.model,
		Prompt:  req.Prompt,
		Stream:  false,
		Raw:     true,
		Options: opts,
	}

	var resp generateResponse
	if err := g.postJSON(ctx, "/api/generate", body, &resp); err != nil {
		return nil, err
	}

	model := resp.Model
	if model == "" {
		model = g.model
	}
	return &providers.GenerationResponse{
		Text:             resp.Response,
		Model:            model,
		Provider:         providerName,
		Latency:          time.Since(start),
		PromptTokens:     resp.PromptEvalCount,
		CompletionTokens: resp.EvalCount,
	}, nil
}

// IsAvailable checks if the Ollama server answers
func (g *Generator) IsAvailable(ctx context.Context) bool {
	return g.ping(ctx) == nil
}
