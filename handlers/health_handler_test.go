package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/recipe-api/models"
	"github.com/upb/recipe-api/repositories"
	"github.com/upb/recipe-api/repositories/cache"
	"go.uber.org/zap"
)

type stubCache struct {
	enabled bool
	pingErr error
}

func (s stubCache) Ping(context.Context) error { return s.pingErr }
func (s stubCache) Enabled() bool              { return s.enabled }

type stubProvider struct{ available bool }

func (s stubProvider) Name() string                         { return "ollama" }
func (s stubProvider) IsAvailable(ctx context.Context) bool { return s.available }

func testDataset(t *testing.T) *repositories.Dataset {
	t.Helper()
	ds, err := repositories.NewDataset(
		[]models.Recipe{
			{Title: "Tomato Soup", Ingredients: []string{"tomato"}, Directions: "Simmer."},
			{Title: "Basil Pesto", Ingredients: []string{"basil"}, Directions: "Blend."},
		},
		[][]float32{{1, 0, 0}, {0, 1, 0}},
	)
	require.NoError(t, err)
	return ds
}

func TestHandleRoot(t *testing.T) {
	handler := NewHealthHandler(nil, nil, nil, zap.NewNop())

	w := httptest.NewRecorder()
	handler.HandleRoot(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Welcome to the Recipe API!"}`, w.Body.String())
}

func TestHandleHealth(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name      string
		cache     CacheChecker
		wantRedis string
	}{
		{"no cache configured", nil, "disabled"},
		{"nop cache", cache.Nop{}, "disabled"},
		{"redis reachable", stubCache{enabled: true}, "connected"},
		{"redis down", stubCache{enabled: true, pingErr: errors.New("connection refused")}, "unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHealthHandler(tt.cache, nil, nil, logger)

			w := httptest.NewRecorder()
			handler.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, http.StatusOK, w.Code)

			var response HealthResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			assert.Equal(t, "ok", response.Status)
			assert.Equal(t, tt.wantRedis, response.Redis)
		})
	}
}

func TestHandleReadiness(t *testing.T) {
	logger := zap.NewNop()

	t.Run("ready with dataset and generator", func(t *testing.T) {
		handler := NewHealthHandler(cache.Nop{}, testDataset(t), stubProvider{available: true}, logger)

		w := httptest.NewRecorder()
		handler.HandleReadiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusOK, w.Code)

		var response ReadinessResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "ready", response.Status)
		assert.Equal(t, 2, response.Records)
		assert.Equal(t, 3, response.Dimension)
		assert.Equal(t, "loaded", response.Checks["dataset"])
		assert.Equal(t, "available", response.Checks["generator"])
		assert.Equal(t, "disabled", response.Checks["redis"])
		assert.NotEmpty(t, response.Timestamp)
	})

	t.Run("degraded when generator unreachable", func(t *testing.T) {
		handler := NewHealthHandler(nil, testDataset(t), stubProvider{available: false}, logger)

		w := httptest.NewRecorder()
		handler.HandleReadiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusOK, w.Code)

		var response ReadinessResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "degraded", response.Status)
		assert.Equal(t, "unavailable", response.Checks["generator"])
	})

	t.Run("not ready without dataset", func(t *testing.T) {
		handler := NewHealthHandler(nil, nil, nil, logger)

		w := httptest.NewRecorder()
		handler.HandleReadiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)

		var response ReadinessResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "not_ready", response.Status)
		assert.Equal(t, "empty", response.Checks["dataset"])
		assert.Equal(t, "not_configured", response.Checks["generator"])
	})
}
