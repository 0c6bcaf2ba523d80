package recipes

import (
	"context"

	"github.com/upb/recipe-api/internal/rag"
	"github.com/upb/recipe-api/models"
)

// DefaultTopN is the number of recipes returned, and used as generation
// context, when a request does not say otherwise.
const DefaultTopN = 3

// RecommendRequest asks for the recipes closest to the user's query
type RecommendRequest struct {
	Ingredients string
	Preferences []string
	TopN        int
}

// Query returns the retrieval query
func (r RecommendRequest) Query() rag.Query {
	return rag.Query{Ingredients: r.Ingredients, Preferences: r.Preferences}
}

// GenerateRequest asks for a new recipe grounded on the closest recipes
type GenerateRequest struct {
	Ingredients  string
	Preferences  []string
	ContextSize  int // number of retrieved recipes used as context; 0 selects DefaultTopN
	MaxNewTokens int // 0 selects the configured default
}

// Retriever ranks dataset records against a query
type Retriever interface {
	Retrieve(ctx context.Context, q rag.Query, k int) ([]models.ScoredRecipe, error)
}

// Synthesizer produces a recipe from retrieved context
type Synthesizer interface {
	Synthesize(ctx context.Context, records []models.Recipe, ingredients string, preferences []string, maxNewTokens int) (string, error)
}
