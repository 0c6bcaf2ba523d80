package providers

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct{ name string }

func (s *stubGenerator) Name() string { return s.name }

func (s *stubGenerator) Generate(ctx context.Context, req *GenerationRequest) (*GenerationResponse, error) {
	return &GenerationResponse{Text: "ok", Provider: s.name}, nil
}

func (s *stubGenerator) IsAvailable(ctx context.Context) bool { return true }

type stubEmbedder struct{ name string }

func (s *stubEmbedder) Name() string { return s.name }

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func TestRegistry_Generators(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.RegisterGenerator(&stubGenerator{name: "ollama"}))
	require.NoError(t, r.RegisterGenerator(&stubGenerator{name: "openai"}))

	t.Run("duplicate", func(t *testing.T) {
		err := r.RegisterGenerator(&stubGenerator{name: "ollama"})
		assert.ErrorIs(t, err, ErrProviderAlreadyRegistered)
	})

	t.Run("empty name", func(t *testing.T) {
		assert.Error(t, r.RegisterGenerator(&stubGenerator{}))
	})

	t.Run("nil", func(t *testing.T) {
		assert.Error(t, r.RegisterGenerator(nil))
	})

	t.Run("lookup", func(t *testing.T) {
		g, err := r.Generator("openai")
		require.NoError(t, err)
		assert.Equal(t, "openai", g.Name())

		_, err = r.Generator("bedrock")
		assert.ErrorIs(t, err, ErrProviderNotFound)
	})

	assert.Equal(t, []string{"ollama", "openai"}, r.ListGenerators())
}

func TestRegistry_Embedders(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.RegisterEmbedder(&stubEmbedder{name: "ollama"}))
	assert.ErrorIs(t, r.RegisterEmbedder(&stubEmbedder{name: "ollama"}), ErrProviderAlreadyRegistered)
	assert.Error(t, r.RegisterEmbedder(nil))

	e, err := r.Embedder("ollama")
	require.NoError(t, err)
	vec, err := e.Embed(context.Background(), "tomato")
	require.NoError(t, err)
	assert.Len(t, vec, 2)

	_, err = r.Embedder("openai")
	assert.ErrorIs(t, err, ErrProviderNotFound)
	assert.Equal(t, []string{"ollama"}, r.ListEmbedders())
}

func TestProviderError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewProviderError("ollama", "HTTP_ERROR", "request failed", 0, cause)

	assert.Equal(t, "ollama: request failed: connection refused", err.Error())
	assert.Equal(t, cause, errors.Unwrap(err))

	bare := NewProviderError("openai", "EMPTY", "no choices returned", 200, nil)
	assert.Equal(t, "openai: no choices returned", bare.Error())
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, IsTimeout(context.DeadlineExceeded))
	assert.True(t, IsTimeout(fmt.Errorf("send: %w", context.Canceled)))
	assert.True(t, IsTimeout(NewProviderError("ollama", "HTTP_ERROR", "failed", 0, context.DeadlineExceeded)))
	assert.False(t, IsTimeout(errors.New("boom")))
}

func TestDefaultProviderConfig(t *testing.T) {
	cfg := DefaultProviderConfig()
	assert.Positive(t, cfg.Timeout)
	assert.NotNil(t, cfg.Headers)
}
