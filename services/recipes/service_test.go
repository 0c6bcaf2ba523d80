package recipes

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/recipe-api/internal/observability"
	"github.com/upb/recipe-api/internal/rag"
	"github.com/upb/recipe-api/models"
	"github.com/upb/recipe-api/services"
	"go.uber.org/zap"
)

// MockRetriever is a mock implementation of Retriever
type MockRetriever struct {
	mock.Mock
}

func (m *MockRetriever) Retrieve(ctx context.Context, q rag.Query, k int) ([]models.ScoredRecipe, error) {
	args := m.Called(ctx, q, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ScoredRecipe), args.Error(1)
}

// MockSynthesizer is a mock implementation of Synthesizer
type MockSynthesizer struct {
	mock.Mock
}

func (m *MockSynthesizer) Synthesize(ctx context.Context, records []models.Recipe, ingredients string, preferences []string, maxNewTokens int) (string, error) {
	args := m.Called(ctx, records, ingredients, preferences, maxNewTokens)
	return args.String(0), args.Error(1)
}

// MockCache is a mock implementation of repositories.RecommendationCache
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string) ([]models.ScoredRecipe, bool, error) {
	args := m.Called(ctx, key)
	var results []models.ScoredRecipe
	if v := args.Get(0); v != nil {
		results = v.([]models.ScoredRecipe)
	}
	return results, args.Bool(1), args.Error(2)
}

func (m *MockCache) Set(ctx context.Context, key string, results []models.ScoredRecipe, ttl time.Duration) error {
	return m.Called(ctx, key, results, ttl).Error(0)
}

func (m *MockCache) Ping(ctx context.Context) error { return m.Called(ctx).Error(0) }

func (m *MockCache) Enabled() bool { return true }

var scored = []models.ScoredRecipe{
	{Recipe: models.Recipe{Title: "Pesto", Ingredients: []string{"basil"}, Directions: "Blend."}, Index: 0, Score: 1},
	{Recipe: models.Recipe{Title: "Caprese", Ingredients: []string{"tomato"}, Directions: "Slice."}, Index: 2, Score: 0.99},
}

func newTestService(r Retriever, s Synthesizer, c *MockCache) (*Service, *observability.Metrics) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	if c == nil {
		return NewService(r, s, nil, time.Minute, metrics, zap.NewNop()), metrics
	}
	return NewService(r, s, c, time.Minute, metrics, zap.NewNop()), metrics
}

func TestService_Recommend(t *testing.T) {
	t.Run("returns ranked recipes", func(t *testing.T) {
		retriever := new(MockRetriever)
		retriever.On("Retrieve", mock.Anything, rag.Query{Ingredients: "basil", Preferences: []string{"vegan"}}, 2).
			Return(scored, nil)

		svc, _ := newTestService(retriever, nil, nil)
		got, err := svc.Recommend(context.Background(), RecommendRequest{Ingredients: "basil", Preferences: []string{"vegan"}, TopN: 2})

		require.NoError(t, err)
		assert.Equal(t, scored, got)
		retriever.AssertExpectations(t)
	})

	t.Run("validation errors never reach the retriever", func(t *testing.T) {
		tests := []struct {
			name string
			req  RecommendRequest
			want error
		}{
			{"zero top_n", RecommendRequest{Ingredients: "basil", TopN: 0}, services.ErrInvalidTopN},
			{"negative top_n", RecommendRequest{Ingredients: "basil", TopN: -1}, services.ErrInvalidTopN},
			{"empty query", RecommendRequest{Preferences: []string{" "}, TopN: 3}, services.ErrMissingQuery},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				retriever := new(MockRetriever)
				svc, _ := newTestService(retriever, nil, nil)

				_, err := svc.Recommend(context.Background(), tt.req)
				assert.ErrorIs(t, err, tt.want)
				assert.True(t, services.IsValidationError(err))
				retriever.AssertNotCalled(t, "Retrieve", mock.Anything, mock.Anything, mock.Anything)
			})
		}
	})

	t.Run("plain errors become retrieval failures", func(t *testing.T) {
		retriever := new(MockRetriever)
		retriever.On("Retrieve", mock.Anything, mock.Anything, 3).Return(nil, errors.New("boom"))

		svc, _ := newTestService(retriever, nil, nil)
		_, err := svc.Recommend(context.Background(), RecommendRequest{Ingredients: "basil", TopN: 3})

		assert.True(t, services.IsRetrievalError(err))
	})

	t.Run("domain errors pass through", func(t *testing.T) {
		retriever := new(MockRetriever)
		retriever.On("Retrieve", mock.Anything, mock.Anything, 3).Return(nil, services.ErrDimensionMismatch)

		svc, _ := newTestService(retriever, nil, nil)
		_, err := svc.Recommend(context.Background(), RecommendRequest{Ingredients: "basil", TopN: 3})

		assert.Same(t, services.ErrDimensionMismatch, err)
	})
}

func TestService_RecommendCache(t *testing.T) {
	req := RecommendRequest{Ingredients: "basil", TopN: 2}
	key := cacheKey(req.Query().Text(), 2)

	t.Run("hit skips retrieval", func(t *testing.T) {
		retriever := new(MockRetriever)
		cache := new(MockCache)
		cache.On("Get", mock.Anything, key).Return(scored, true, nil)

		svc, metrics := newTestService(retriever, nil, cache)
		got, err := svc.Recommend(context.Background(), req)

		require.NoError(t, err)
		assert.Equal(t, scored, got)
		retriever.AssertNotCalled(t, "Retrieve", mock.Anything, mock.Anything, mock.Anything)
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CacheLookups.WithLabelValues("hit")))
	})

	t.Run("miss stores results", func(t *testing.T) {
		retriever := new(MockRetriever)
		retriever.On("Retrieve", mock.Anything, mock.Anything, 2).Return(scored, nil)
		cache := new(MockCache)
		cache.On("Get", mock.Anything, key).Return(nil, false, nil)
		cache.On("Set", mock.Anything, key, scored, time.Minute).Return(nil)

		svc, metrics := newTestService(retriever, nil, cache)
		_, err := svc.Recommend(context.Background(), req)

		require.NoError(t, err)
		cache.AssertExpectations(t)
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CacheLookups.WithLabelValues("miss")))
	})

	t.Run("cache failures are bypassed", func(t *testing.T) {
		retriever := new(MockRetriever)
		retriever.On("Retrieve", mock.Anything, mock.Anything, 2).Return(scored, nil)
		cache := new(MockCache)
		cache.On("Get", mock.Anything, key).Return(nil, false, errors.New("connection refused"))
		cache.On("Set", mock.Anything, key, scored, time.Minute).Return(errors.New("connection refused"))

		svc, metrics := newTestService(retriever, nil, cache)
		got, err := svc.Recommend(context.Background(), req)

		require.NoError(t, err)
		assert.Equal(t, scored, got)
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CacheLookups.WithLabelValues("error")))
	})
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, cacheKey("Ingredients: basil", 3), cacheKey("Ingredients: basil", 3))
	assert.NotEqual(t, cacheKey("Ingredients: basil", 3), cacheKey("Ingredients: basil", 4))
	assert.NotEqual(t, cacheKey("Ingredients: basil", 3), cacheKey("Ingredients: sage", 3))
	assert.Len(t, cacheKey("", 1), 64)
}

func TestService_GenerateAIRecipe(t *testing.T) {
	records := []models.Recipe{scored[0].Recipe, scored[1].Recipe}

	t.Run("grounds generation on the closest recipes", func(t *testing.T) {
		retriever := new(MockRetriever)
		retriever.On("Retrieve", mock.Anything, mock.Anything, DefaultTopN).Return(scored, nil)
		synth := new(MockSynthesizer)
		synth.On("Synthesize", mock.Anything, records, "basil, tomato", []string{"quick"}, 0).
			Return("Slice tomatoes, add basil.", nil)

		svc, metrics := newTestService(retriever, synth, nil)
		text, err := svc.GenerateAIRecipe(context.Background(), GenerateRequest{
			Ingredients: "basil, tomato",
			Preferences: []string{"quick"},
		})

		require.NoError(t, err)
		assert.Equal(t, "Slice tomatoes, add basil.", text)
		synth.AssertExpectations(t)
		assert.Equal(t, 1, testutil.CollectAndCount(metrics.GenerationDuration))
	})

	t.Run("blank ingredients", func(t *testing.T) {
		retriever := new(MockRetriever)
		synth := new(MockSynthesizer)
		svc, _ := newTestService(retriever, synth, nil)

		_, err := svc.GenerateAIRecipe(context.Background(), GenerateRequest{Ingredients: " \t"})
		assert.ErrorIs(t, err, services.ErrEmptyIngredients)
		retriever.AssertNotCalled(t, "Retrieve", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("negative max new tokens", func(t *testing.T) {
		svc, _ := newTestService(new(MockRetriever), new(MockSynthesizer), nil)
		_, err := svc.GenerateAIRecipe(context.Background(), GenerateRequest{Ingredients: "egg", MaxNewTokens: -5})
		assert.True(t, services.IsValidationError(err))
	})

	t.Run("generation failure", func(t *testing.T) {
		retriever := new(MockRetriever)
		retriever.On("Retrieve", mock.Anything, mock.Anything, 5).Return(scored, nil)
		synth := new(MockSynthesizer)
		synth.On("Synthesize", mock.Anything, mock.Anything, "egg", []string(nil), 100).
			Return("", errors.New("model crashed"))

		svc, _ := newTestService(retriever, synth, nil)
		_, err := svc.GenerateAIRecipe(context.Background(), GenerateRequest{Ingredients: "egg", ContextSize: 5, MaxNewTokens: 100})

		assert.ErrorIs(t, err, services.ErrGenerationFailed)
	})

	t.Run("retrieval failure stops generation", func(t *testing.T) {
		retriever := new(MockRetriever)
		retriever.On("Retrieve", mock.Anything, mock.Anything, DefaultTopN).Return(nil, services.ErrRetrievalFailed)
		synth := new(MockSynthesizer)

		svc, _ := newTestService(retriever, synth, nil)
		_, err := svc.GenerateAIRecipe(context.Background(), GenerateRequest{Ingredients: "egg"})

		assert.True(t, services.IsRetrievalError(err))
		synth.AssertNotCalled(t, "Synthesize", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
