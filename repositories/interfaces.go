package repositories

import (
	"context"
	"time"

	"github.com/upb/recipe-api/models"
)

// DatasetSource loads the recipe records and their embedding matrix. It is
// called once at startup; the returned Dataset is never mutated.
type DatasetSource interface {
	// Load reads records and embeddings and checks that they are aligned
	Load(ctx context.Context) (*Dataset, error)
}

// RecommendationCache stores ranked recommendations keyed by query
type RecommendationCache interface {
	// Get returns the cached results for key. found is false on a miss.
	Get(ctx context.Context, key string) (results []models.ScoredRecipe, found bool, err error)

	// Set stores results under key for ttl
	Set(ctx context.Context, key string, results []models.ScoredRecipe, ttl time.Duration) error

	// Ping checks connectivity to the backing store
	Ping(ctx context.Context) error

	// Enabled reports whether the cache is backed by a real store
	Enabled() bool
}
