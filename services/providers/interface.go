package providers

import (
	"context"
	"errors"
	"time"
)

// Generator is a causal language model backend (Ollama, an OpenAI-compatible
// completions server, ...). Generation is non-deterministic and may take
// seconds; implementations must honour ctx cancellation.
type Generator interface {
	// Name returns the provider name (e.g., "ollama", "openai")
	Name() string

	// Generate produces a continuation of req.Prompt
	Generate(ctx context.Context, req *GenerationRequest) (*GenerationResponse, error)

	// IsAvailable checks if the backend is currently reachable
	IsAvailable(ctx context.Context) bool
}

// Embedder turns text into a dense vector in the same space as the dataset
// embeddings.
type Embedder interface {
	// Name returns the provider name
	Name() string

	// Embed returns the embedding of text
	Embed(ctx context.Context, text string) ([]float32, error)
}

// GenerationRequest is the bounded input of a single generation call
type GenerationRequest struct {
	// Prompt is the already-truncated model input
	Prompt string `json:"prompt"`

	// MaxNewTokens limits the number of generated tokens
	MaxNewTokens int `json:"max_new_tokens"`

	// Temperature controls randomness
	Temperature float64 `json:"temperature"`

	// TopK restricts sampling to the K most likely tokens
	TopK int `json:"top_k"`

	// TopP controls nucleus sampling
	TopP float64 `json:"top_p"`

	// DoSample enables stochastic decoding
	DoSample bool `json:"do_sample"`

	// StopToken is the model's end-of-sequence token, also used for padding
	StopToken string `json:"stop_token,omitempty"`
}

// GenerationResponse is the raw result of a generation call
type GenerationResponse struct {
	// Text is the generated continuation, before post-processing
	Text string `json:"text"`

	// Model that produced the text
	Model string `json:"model"`

	// Provider that handled the request
	Provider string `json:"provider"`

	// Latency of the request
	Latency time.Duration `json:"latency"`

	// PromptTokens as reported by the backend, zero when unknown
	PromptTokens int `json:"prompt_tokens"`

	// CompletionTokens as reported by the backend, zero when unknown
	CompletionTokens int `json:"completion_tokens"`
}

// ProviderConfig holds common configuration for providers
type ProviderConfig struct {
	// APIKey for authentication
	APIKey string

	// BaseURL for the API (optional override)
	BaseURL string

	// Model identifier
	Model string

	// Timeout for requests
	Timeout time.Duration

	// Additional headers
	Headers map[string]string
}

// DefaultProviderConfig returns a sensible default configuration
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		Timeout: 120 * time.Second,
		Headers: make(map[string]string),
	}
}

// ProviderError represents an error from a provider
type ProviderError struct {
	// Provider that generated the error
	Provider string

	// Code is the error code
	Code string

	// Message is the error message
	Message string

	// StatusCode is the HTTP status code (if applicable)
	StatusCode int

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return e.Provider + ": " + e.Message + ": " + e.Cause.Error()
	}
	return e.Provider + ": " + e.Message
}

// Unwrap implements error unwrapping
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewProviderError creates a new provider error
func NewProviderError(provider, code, message string, statusCode int, cause error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Cause:      cause,
	}
}

// IsTimeout reports whether err was caused by a deadline or cancellation
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
