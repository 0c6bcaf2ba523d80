package handlers

import (
	"context"
	"net/http"

	"github.com/upb/recipe-api/internal/observability"
	"github.com/upb/recipe-api/models"
	"github.com/upb/recipe-api/services/recipes"
	"github.com/upb/recipe-api/utils"
	"go.uber.org/zap"
)

// RecipeService defines the recipe operations the handlers need
type RecipeService interface {
	Recommend(ctx context.Context, req recipes.RecommendRequest) ([]models.ScoredRecipe, error)
	GenerateAIRecipe(ctx context.Context, req recipes.GenerateRequest) (string, error)
}

// RecipeHandler handles the recommendation and generation endpoints
type RecipeHandler struct {
	service RecipeService
	logger  *zap.Logger
}

// NewRecipeHandler creates a new RecipeHandler
func NewRecipeHandler(service RecipeService, logger *zap.Logger) *RecipeHandler {
	return &RecipeHandler{
		service: service,
		logger:  logger,
	}
}

// HandleRecommendByEmbedding handles POST /recommend_by_embedding
func (h *RecipeHandler) HandleRecommendByEmbedding(w http.ResponseWriter, r *http.Request) {
	h.recommend(w, r, "Failed to compute recommendations")
}

// HandleQueryRecipe handles POST /query_recipe
func (h *RecipeHandler) HandleQueryRecipe(w http.ResponseWriter, r *http.Request) {
	h.recommend(w, r, "Failed to query recipes")
}

func (h *RecipeHandler) recommend(w http.ResponseWriter, r *http.Request, failure string) {
	logger := observability.FromContext(r.Context(), h.logger)

	var req RecipeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		logger.Warn("failed to parse request body", zap.Error(err))
		HandleValidationError(w, err, logger)
		return
	}
	if err := req.Validate(); err != nil {
		logger.Warn("request validation failed", zap.Error(err))
		HandleValidationError(w, err, logger)
		return
	}

	results, err := h.service.Recommend(r.Context(), req.ToService())
	if err != nil {
		HandleServiceError(w, err, failure, logger)
		return
	}

	if err := utils.WriteJSON(w, http.StatusOK, toRecipeResponses(results)); err != nil {
		logger.Error("failed to write response", zap.Error(err))
	}
}

// HandleGenerateAIRecipe handles POST /generate_ai_recipe
func (h *RecipeHandler) HandleGenerateAIRecipe(w http.ResponseWriter, r *http.Request) {
	logger := observability.FromContext(r.Context(), h.logger)

	var req GenerateRecipeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		logger.Warn("failed to parse request body", zap.Error(err))
		HandleValidationError(w, err, logger)
		return
	}
	if err := req.Validate(); err != nil {
		logger.Warn("request validation failed", zap.Error(err))
		HandleValidationError(w, err, logger)
		return
	}

	text, err := h.service.GenerateAIRecipe(r.Context(), req.ToService())
	if err != nil {
		HandleServiceError(w, err, "Failed to generate recipe", logger)
		return
	}

	if err := utils.WriteJSON(w, http.StatusOK, AIRecipeResponse{AIRecipe: text}); err != nil {
		logger.Error("failed to write response", zap.Error(err))
	}
}
