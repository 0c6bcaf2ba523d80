// Package ollama provides generation and embedding backends on top of the
// Ollama HTTP API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/upb/recipe-api/services/providers"
)

const providerName = "ollama"

// Default configuration values.
const (
	DefaultBaseURL        = "http://localhost:11434"
	DefaultGenerateModel  = "gpt2"
	DefaultEmbeddingModel = "nomic-embed-text"
	DefaultTimeout        = 120 * time.Second
)

// client holds the HTTP plumbing shared by the generator and the embedder.
type client struct {
	httpClient *http.Client
	baseURL    string
	headers    map[string]string
}

func newClient(cfg providers.ProviderConfig) *client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		headers:    cfg.Headers,
	}
}

// postJSON sends body to path and decodes a 200 response into out.
func (c *client) postJSON(ctx context.Context, path string, body, out interface{}) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return providers.NewProviderError(providerName, "MARSHAL_ERROR", "failed to marshal request", 0, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return providers.NewProviderError(providerName, "REQUEST_ERROR", "failed to create request", 0, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return providers.NewProviderError(providerName, "HTTP_ERROR", "send request", 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if readErr != nil {
			return providers.NewProviderError(providerName, "API_ERROR",
				fmt.Sprintf("status %d: failed to read response", resp.StatusCode), resp.StatusCode, readErr)
		}
		return providers.NewProviderError(providerName, "API_ERROR",
			fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), resp.StatusCode, nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return providers.NewProviderError(providerName, "UNMARSHAL_ERROR", "decode response", resp.StatusCode, err)
	}
	return nil
}

// ping checks the lightweight /api/tags endpoint.
func (c *client) ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama: API returned status %d", resp.StatusCode)
	}
	return nil
}
