package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/upb/recipe-api/app"
	"github.com/upb/recipe-api/handlers"
	"github.com/upb/recipe-api/middleware"
	"github.com/upb/recipe-api/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	// Metrics wraps Recoverer so recovered panics are counted as 500s
	if deps.Config.Observability.MetricsEnabled {
		r.Use(middleware.Metrics(deps.Metrics))
	}
	r.Use(middleware.Recoverer(deps.Logger, deps.Metrics))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	health := handlers.NewHealthHandler(deps.Cache, deps.Dataset, deps.Generator, deps.Logger)
	recipes := handlers.NewRecipeHandler(deps.Recipes, deps.Logger)

	r.Get("/", health.HandleRoot)
	r.Get("/health", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)

	if deps.Config.Observability.MetricsEnabled {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Post("/recommend_by_embedding", recipes.HandleRecommendByEmbedding)
	r.Post("/query_recipe", recipes.HandleQueryRecipe)

	// Generation is the expensive path; only it is rate limited
	r.Group(func(r chi.Router) {
		if deps.GenerateLimiter != nil {
			r.Use(middleware.RateLimit(deps.GenerateLimiter, deps.Metrics))
		}
		r.Post("/generate_ai_recipe", recipes.HandleGenerateAIRecipe)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusNotFound, "endpoint not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
	})

	return r
}
