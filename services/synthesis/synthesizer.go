// Package synthesis turns retrieved recipes into a bounded prompt, runs it
// through a generation backend and cleans the result.
package synthesis

import (
	"context"
	"strings"
	"time"

	"github.com/upb/recipe-api/models"
	"github.com/upb/recipe-api/services"
	"github.com/upb/recipe-api/services/providers"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Config holds the generation contract
type Config struct {
	MaxInputTokens int
	MaxNewTokens   int
	Temperature    float64
	TopK           int
	TopP           float64
	StopToken      string

	// Timeout bounds a single generation, including the wait for a slot
	Timeout time.Duration

	// MaxConcurrency is the number of generations allowed in flight
	MaxConcurrency int64
}

// DefaultConfig returns the generation parameters the model was tuned with
func DefaultConfig() Config {
	return Config{
		MaxInputTokens: 512,
		MaxNewTokens:   300,
		Temperature:    0.7,
		TopK:           50,
		TopP:           0.9,
		StopToken:      "<|endoftext|>",
		Timeout:        60 * time.Second,
		MaxConcurrency: 4,
	}
}

// Synthesizer builds prompts and invokes the generation backend
type Synthesizer struct {
	generator providers.Generator
	tokenizer Tokenizer
	sem       *semaphore.Weighted
	config    Config
	logger    *zap.Logger
}

// NewSynthesizer creates a new synthesizer. Zero-valued config fields fall
// back to DefaultConfig.
func NewSynthesizer(generator providers.Generator, tokenizer Tokenizer, config Config, logger *zap.Logger) *Synthesizer {
	defaults := DefaultConfig()
	if config.MaxInputTokens <= 0 {
		config.MaxInputTokens = defaults.MaxInputTokens
	}
	if config.MaxNewTokens <= 0 {
		config.MaxNewTokens = defaults.MaxNewTokens
	}
	if config.StopToken == "" {
		config.StopToken = defaults.StopToken
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = defaults.MaxConcurrency
	}
	if tokenizer == nil {
		tokenizer = NewWordTokenizer()
	}

	return &Synthesizer{
		generator: generator,
		tokenizer: tokenizer,
		sem:       semaphore.NewWeighted(config.MaxConcurrency),
		config:    config,
		logger:    logger,
	}
}

// Config returns the effective configuration
func (s *Synthesizer) Config() Config {
	return s.config
}

// BuildRequest builds the bounded generation request. maxNewTokens of zero
// selects the configured default.
func (s *Synthesizer) BuildRequest(records []models.Recipe, ingredients string, preferences []string, maxNewTokens int) (*providers.GenerationRequest, error) {
	if strings.TrimSpace(ingredients) == "" {
		return nil, services.ErrEmptyIngredients
	}
	if maxNewTokens < 0 {
		return nil, services.ErrInvalidMaxTokens
	}
	if maxNewTokens == 0 {
		maxNewTokens = s.config.MaxNewTokens
	}

	prompt := BuildPrompt(s.tokenizer, BuildContext(records), ingredients, preferences, s.config.MaxInputTokens)

	return &providers.GenerationRequest{
		Prompt:       prompt,
		MaxNewTokens: maxNewTokens,
		Temperature:  s.config.Temperature,
		TopK:         s.config.TopK,
		TopP:         s.config.TopP,
		DoSample:     true,
		StopToken:    s.config.StopToken,
	}, nil
}

// Synthesize generates a recipe grounded on records. Failures of the
// backend, including timeouts and cancellation, are reported as
// GenerationFailed and never retried.
func (s *Synthesizer) Synthesize(ctx context.Context, records []models.Recipe, ingredients string, preferences []string, maxNewTokens int) (string, error) {
	req, err := s.BuildRequest(records, ingredients, preferences, maxNewTokens)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	if err := s.sem.Acquire(ctx, 1); err != nil {
		s.logger.Warn("no generation slot available", zap.Error(err))
		return "", services.WrapGeneration("generation slot unavailable", err)
	}
	defer s.sem.Release(1)

	s.logger.Debug("invoking generator",
		zap.String("provider", s.generator.Name()),
		zap.Int("prompt_tokens", s.tokenizer.Count(req.Prompt)),
		zap.Int("max_new_tokens", req.MaxNewTokens))

	resp, err := s.generator.Generate(ctx, req)
	if err != nil {
		s.logger.Error("generation failed",
			zap.String("provider", s.generator.Name()),
			zap.Bool("timeout", providers.IsTimeout(err)),
			zap.Error(err))
		return "", services.WrapGeneration("generator returned an error", err)
	}

	s.logger.Debug("generation completed",
		zap.String("model", resp.Model),
		zap.Duration("latency", resp.Latency),
		zap.Int("completion_tokens", resp.CompletionTokens))

	return CleanOutput(resp.Text), nil
}
