package handlers

import (
	"strings"

	"github.com/upb/recipe-api/services/recipes"
	"github.com/upb/recipe-api/utils"
)

// RecipeRequest is the body of /recommend_by_embedding and /query_recipe
type RecipeRequest struct {
	Ingredients string   `json:"ingredients,omitempty" validate:"max=1000"`
	Preferences []string `json:"preferences,omitempty" validate:"max=20,dive,max=100"`
	TopN        *int     `json:"top_n,omitempty" validate:"omitempty,gt=0"`
}

// Validate checks the request without touching any service state
func (r *RecipeRequest) Validate() error {
	if err := utils.ValidateStruct(r); err != nil {
		return err
	}
	if !hasQuery(r.Ingredients, r.Preferences) {
		return utils.FieldError("ingredients", "at least one of 'ingredients' or 'preferences' must be provided")
	}
	return nil
}

// ToService converts the request, applying the default top_n
func (r *RecipeRequest) ToService() recipes.RecommendRequest {
	return recipes.RecommendRequest{
		Ingredients: r.Ingredients,
		Preferences: r.Preferences,
		TopN:        valueOr(r.TopN, recipes.DefaultTopN),
	}
}

// GenerateRecipeRequest is the body of /generate_ai_recipe. top_n selects
// how many retrieved recipes are used as generation context.
type GenerateRecipeRequest struct {
	Ingredients  string   `json:"ingredients" validate:"required,notblank,max=1000"`
	Preferences  []string `json:"preferences,omitempty" validate:"max=20,dive,max=100"`
	TopN         *int     `json:"top_n,omitempty" validate:"omitempty,gt=0"`
	MaxNewTokens *int     `json:"max_new_tokens,omitempty" validate:"omitempty,gt=0,lte=2048"`
}

// Validate checks the request without touching any service state
func (r *GenerateRecipeRequest) Validate() error {
	return utils.ValidateStruct(r)
}

// ToService converts the request, applying defaults
func (r *GenerateRecipeRequest) ToService() recipes.GenerateRequest {
	return recipes.GenerateRequest{
		Ingredients:  r.Ingredients,
		Preferences:  r.Preferences,
		ContextSize:  valueOr(r.TopN, recipes.DefaultTopN),
		MaxNewTokens: valueOr(r.MaxNewTokens, 0),
	}
}

func hasQuery(ingredients string, preferences []string) bool {
	if strings.TrimSpace(ingredients) != "" {
		return true
	}
	for _, p := range preferences {
		if strings.TrimSpace(p) != "" {
			return true
		}
	}
	return false
}

func valueOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
