package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/recipe-api/app"
	"github.com/upb/recipe-api/config"
	"github.com/upb/recipe-api/handlers"
	"github.com/upb/recipe-api/models"
	"github.com/upb/recipe-api/repositories/files"
	"go.uber.org/zap/zaptest"
)

func newTestDeps(t *testing.T, rateLimit bool) *app.Dependencies {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/embeddings", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Prompt string `json:"prompt"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		vec := []float64{0, 1}
		if strings.Contains(req.Prompt, "tomato") {
			vec = []float64{1, 0}
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"embedding": vec})
	})
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"response": "Tomato salad: slice and season.", "done": true})
	})
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"models":[]}`))
	})
	ollama := httptest.NewServer(mux)
	t.Cleanup(ollama.Close)

	dir := t.TempDir()
	csvPath := filepath.Join(dir, "recipes.csv")
	npyPath := filepath.Join(dir, "embeddings.npy")

	cf, err := os.Create(csvPath)
	require.NoError(t, err)
	require.NoError(t, files.WriteRecipes(cf, []models.Recipe{
		{Title: "Tomato Salad", Ingredients: []string{"tomato", "onion"}, Directions: "Slice and season."},
		{Title: "Rice Pudding", Ingredients: []string{"rice", "milk"}, Directions: "Simmer slowly."},
	}))
	require.NoError(t, cf.Close())

	nf, err := os.Create(npyPath)
	require.NoError(t, err)
	require.NoError(t, files.WriteNPY(nf, [][]float32{{1, 0}, {0, 1}}))
	require.NoError(t, nf.Close())

	model := config.ModelConfig{Provider: config.ProviderOllama, BaseURL: ollama.URL, Timeout: 5 * time.Second}
	cfg := &config.Config{
		Server: config.ServerConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		Dataset: config.DatasetConfig{
			Source:         config.DatasetSourceFiles,
			RecipesPath:    csvPath,
			EmbeddingsPath: npyPath,
		},
		Embedder: model,
		Generator: config.GeneratorConfig{
			ModelConfig:    model,
			MaxInputTokens: 512,
			MaxNewTokens:   300,
			Temperature:    0.7,
			TopK:           50,
			TopP:           0.9,
			MaxConcurrency: 2,
		},
		RateLimit:     config.RateLimitConfig{Enabled: rateLimit, RequestsPerSecond: 0.001, Burst: 1},
		Observability: config.ObservabilityConfig{LogLevel: "debug", MetricsEnabled: true},
	}

	deps, err := app.NewDependencies(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Close(context.Background()) })
	return deps
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSetupRoutes(t *testing.T) {
	h := SetupRoutes(newTestDeps(t, false))

	t.Run("root", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"message":"Welcome to the Recipe API!"}`, rec.Body.String())
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	})

	t.Run("health", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/health", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok","redis":"disabled"}`, rec.Body.String())
	})

	t.Run("readiness", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/readyz", "")
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp handlers.ReadinessResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "ready", resp.Status)
		assert.Equal(t, 2, resp.Records)
	})

	t.Run("recommend by embedding", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/recommend_by_embedding", `{"ingredients":"tomato","top_n":1}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t,
			`[{"title":"Tomato Salad","ingredients":["tomato","onion"],"directions":"Slice and season."}]`,
			rec.Body.String())
	})

	t.Run("query recipe", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/query_recipe", `{"ingredients":"rice","preferences":["sweet"],"top_n":5}`)
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp []handlers.RecipeResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		require.Len(t, resp, 2)
		assert.Equal(t, "Rice Pudding", resp[0].Title)
	})

	t.Run("zero top_n rejected", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/recommend_by_embedding", `{"ingredients":"tomato","top_n":0}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("generate", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/generate_ai_recipe", `{"ingredients":"tomato"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"ai_recipe":"Tomato salad: slice and season."}`, rec.Body.String())
	})

	t.Run("metrics", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/metrics", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, `api_requests_total{endpoint="/recommend_by_embedding",http_status="200",method="POST"}`)
		assert.Contains(t, body, "api_request_latency_seconds")
		assert.Contains(t, body, "recipe_generation_duration_seconds")
	})

	t.Run("unknown route", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/nope", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("wrong method", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/recommend_by_embedding", "")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestSetupRoutes_GenerateRateLimited(t *testing.T) {
	h := SetupRoutes(newTestDeps(t, true))

	first := do(t, h, http.MethodPost, "/generate_ai_recipe", `{"ingredients":"tomato"}`)
	assert.Equal(t, http.StatusOK, first.Code)

	second := do(t, h, http.MethodPost, "/generate_ai_recipe", `{"ingredients":"tomato"}`)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	// recommendations are not throttled
	for i := 0; i < 3; i++ {
		rec := do(t, h, http.MethodPost, "/recommend_by_embedding", `{"ingredients":"tomato"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestSetupRoutes_PanicsAreCounted(t *testing.T) {
	h := SetupRoutes(newTestDeps(t, false))
	mux, ok := h.(*chi.Mux)
	require.True(t, ok)
	mux.Get("/boom", func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	})

	rec := do(t, h, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	metrics := do(t, h, http.MethodGet, "/metrics", "")
	body := metrics.Body.String()
	assert.Contains(t, body, `api_requests_total{endpoint="/boom",http_status="500",method="GET"} 1`)
	assert.Contains(t, body, `api_request_latency_seconds_count{endpoint="/boom"} 1`)
}
