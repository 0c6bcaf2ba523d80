package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/upb/recipe-api/utils"
	"go.uber.org/zap"
)

// CacheChecker reports on the recommendation cache
type CacheChecker interface {
	Ping(ctx context.Context) error
	Enabled() bool
}

// DatasetInfo describes the loaded dataset
type DatasetInfo interface {
	Len() int
	Dim() int
}

// ProviderChecker reports whether a model backend is reachable
type ProviderChecker interface {
	Name() string
	IsAvailable(ctx context.Context) bool
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status string `json:"status"`
	Redis  string `json:"redis"`
}

// ReadinessResponse is the body of GET /readyz
type ReadinessResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Records   int               `json:"records"`
	Dimension int               `json:"dimension"`
	Checks    map[string]string `json:"checks"`
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	cache     CacheChecker
	dataset   DatasetInfo
	generator ProviderChecker
	logger    *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. cache and generator may be nil.
func NewHealthHandler(cache CacheChecker, dataset DatasetInfo, generator ProviderChecker, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		cache:     cache,
		dataset:   dataset,
		generator: generator,
		logger:    logger,
	}
}

// HandleRoot handles GET /
func (h *HealthHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Welcome to the Recipe API!"})
}

// HandleHealth handles GET /health. It always answers 200 while the
// process is serving; redis reports the cache connection.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	_ = utils.WriteJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Redis:  h.redisStatus(ctx),
	})
}

// HandleReadiness handles GET /readyz
// Not ready without a dataset; degraded when the generator is unreachable,
// since recommendations still work.
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := ReadinessResponse{
		Status:    "ready",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    make(map[string]string),
	}
	httpStatus := http.StatusOK

	if h.dataset == nil || h.dataset.Len() == 0 {
		resp.Checks["dataset"] = "empty"
		resp.Status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		resp.Checks["dataset"] = "loaded"
		resp.Records = h.dataset.Len()
		resp.Dimension = h.dataset.Dim()
	}

	switch {
	case h.generator == nil:
		resp.Checks["generator"] = "not_configured"
	case h.generator.IsAvailable(ctx):
		resp.Checks["generator"] = "available"
	default:
		h.logger.Warn("generator unavailable", zap.String("provider", h.generator.Name()))
		resp.Checks["generator"] = "unavailable"
		if resp.Status == "ready" {
			resp.Status = "degraded"
		}
	}

	resp.Checks["redis"] = h.redisStatus(ctx)

	if err := utils.WriteJSON(w, httpStatus, resp); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}

func (h *HealthHandler) redisStatus(ctx context.Context) string {
	if h.cache == nil || !h.cache.Enabled() {
		return "disabled"
	}
	if err := h.cache.Ping(ctx); err != nil {
		h.logger.Warn("redis health check failed", zap.Error(err))
		return "unavailable"
	}
	return "connected"
}
