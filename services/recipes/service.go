// Package recipes orchestrates recommendation and AI recipe generation.
package recipes

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/upb/recipe-api/internal/observability"
	"github.com/upb/recipe-api/models"
	"github.com/upb/recipe-api/repositories"
	"github.com/upb/recipe-api/services"
	"go.uber.org/zap"
)

// Service runs the request pipeline: validate, retrieve (through the cache),
// and optionally generate.
type Service struct {
	retriever   Retriever
	synthesizer Synthesizer
	cache       repositories.RecommendationCache
	cacheTTL    time.Duration
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// NewService creates a new recipe service. cache and metrics may be nil.
func NewService(
	retriever Retriever,
	synthesizer Synthesizer,
	cache repositories.RecommendationCache,
	cacheTTL time.Duration,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Service {
	return &Service{
		retriever:   retriever,
		synthesizer: synthesizer,
		cache:       cache,
		cacheTTL:    cacheTTL,
		metrics:     metrics,
		logger:      logger,
	}
}

// Recommend returns up to TopN recipes ordered by descending similarity
func (s *Service) Recommend(ctx context.Context, req RecommendRequest) ([]models.ScoredRecipe, error) {
	if req.TopN <= 0 {
		return nil, services.ErrInvalidTopN
	}
	q := req.Query()
	if q.IsEmpty() {
		return nil, services.ErrMissingQuery
	}

	logger := observability.FromContext(ctx, s.logger)
	key := cacheKey(q.Text(), req.TopN)

	if cached, ok := s.lookup(ctx, logger, key); ok {
		logger.Debug("recommendations served from cache", zap.Int("top_n", req.TopN))
		return cached, nil
	}

	start := time.Now()
	results, err := s.retriever.Retrieve(ctx, q, req.TopN)
	if s.metrics != nil {
		s.metrics.ObserveRetrieval(time.Since(start))
	}
	if err != nil {
		logger.Error("retrieval failed", zap.Error(err))
		if services.GetErrorType(err) == "" {
			return nil, services.WrapRetrieval("retrieval failed", err)
		}
		return nil, err
	}

	s.store(ctx, logger, key, results)

	logger.Info("recommendations computed",
		zap.Int("top_n", req.TopN),
		zap.Int("returned", len(results)),
		zap.Duration("duration", time.Since(start)))
	return results, nil
}

// GenerateAIRecipe retrieves context for the ingredients and generates a
// new recipe from it
func (s *Service) GenerateAIRecipe(ctx context.Context, req GenerateRequest) (string, error) {
	if strings.TrimSpace(req.Ingredients) == "" {
		return "", services.ErrEmptyIngredients
	}
	if req.MaxNewTokens < 0 {
		return "", services.ErrInvalidMaxTokens
	}
	k := req.ContextSize
	if k == 0 {
		k = DefaultTopN
	}

	similar, err := s.Recommend(ctx, RecommendRequest{
		Ingredients: req.Ingredients,
		Preferences: req.Preferences,
		TopN:        k,
	})
	if err != nil {
		return "", err
	}

	records := make([]models.Recipe, len(similar))
	for i, r := range similar {
		records[i] = r.Recipe
	}

	logger := observability.FromContext(ctx, s.logger)
	start := time.Now()
	text, err := s.synthesizer.Synthesize(ctx, records, req.Ingredients, req.Preferences, req.MaxNewTokens)
	elapsed := time.Since(start)
	if err != nil {
		s.observeGeneration("error", elapsed)
		logger.Error("recipe generation failed", zap.Duration("duration", elapsed), zap.Error(err))
		if services.GetErrorType(err) == "" {
			return "", services.WrapGeneration("recipe generation failed", err)
		}
		return "", err
	}
	s.observeGeneration("success", elapsed)

	logger.Info("recipe generated",
		zap.Int("context_records", len(records)),
		zap.Int("chars", len(text)),
		zap.Duration("duration", elapsed))
	return text, nil
}

func (s *Service) lookup(ctx context.Context, logger *zap.Logger, key string) ([]models.ScoredRecipe, bool) {
	if s.cache == nil || !s.cache.Enabled() {
		return nil, false
	}
	cached, found, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		s.cacheResult("error")
		logger.Warn("recommendation cache read failed", zap.Error(err))
		return nil, false
	case !found:
		s.cacheResult("miss")
		return nil, false
	default:
		s.cacheResult("hit")
		return cached, true
	}
}

func (s *Service) store(ctx context.Context, logger *zap.Logger, key string, results []models.ScoredRecipe) {
	if s.cache == nil || !s.cache.Enabled() {
		return
	}
	if err := s.cache.Set(ctx, key, results, s.cacheTTL); err != nil {
		logger.Warn("recommendation cache write failed", zap.Error(err))
	}
}

func (s *Service) cacheResult(result string) {
	if s.metrics != nil {
		s.metrics.CacheResult(result)
	}
}

func (s *Service) observeGeneration(outcome string, d time.Duration) {
	if s.metrics != nil {
		s.metrics.ObserveGeneration(outcome, d)
	}
}

// cacheKey identifies a retrieval by its query text and k
func cacheKey(text string, k int) string {
	sum := sha256.Sum256([]byte(strconv.Itoa(k) + "\x00" + text))
	return hex.EncodeToString(sum[:])
}
