package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/upb/recipe-api/models"
	"github.com/upb/recipe-api/repositories"
	"github.com/upb/recipe-api/services"
	"go.uber.org/zap"
)

// RecipeRepository reads and writes the recipe dataset table
type RecipeRepository struct {
	db     *sql.DB
	table  string
	logger *zap.Logger
}

// NewRecipeRepository creates a new recipe repository
func NewRecipeRepository(db *sql.DB, table string, logger *zap.Logger) *RecipeRepository {
	if table == "" {
		table = models.Recipe{}.TableName()
	}
	return &RecipeRepository{
		db:     db,
		table:  table,
		logger: logger,
	}
}

var _ repositories.DatasetSource = (*RecipeRepository)(nil)

// Load reads every row ordered by position. Positions must be dense and start
// at zero, since they double as embedding matrix rows.
func (r *RecipeRepository) Load(ctx context.Context) (*repositories.Dataset, error) {
	query := fmt.Sprintf(`
		SELECT position, title, ingredients, directions, embedding
		FROM %s
		ORDER BY position
	`, pq.QuoteIdentifier(r.table))

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, services.NewDomainError(services.ErrorTypeMissingResource, "failed to query recipes", err)
	}
	defer rows.Close()

	var (
		recipes    []models.Recipe
		embeddings [][]float32
	)
	for rows.Next() {
		var (
			position    int
			recipe      models.Recipe
			ingredients pq.StringArray
			embedding   pq.Float64Array
		)
		if err := rows.Scan(&position, &recipe.Title, &ingredients, &recipe.Directions, &embedding); err != nil {
			return nil, services.NewDomainError(services.ErrorTypeMissingResource, "failed to scan recipe", err)
		}
		if position != len(recipes) {
			return nil, services.NewDomainError(services.ErrorTypeMissingResource,
				fmt.Sprintf("recipe positions are not contiguous: expected %d, got %d", len(recipes), position), nil)
		}

		recipe.Ingredients = []string(ingredients)
		if recipe.Ingredients == nil {
			recipe.Ingredients = []string{}
		}
		vec := make([]float32, len(embedding))
		for i, v := range embedding {
			vec[i] = float32(v)
		}

		recipes = append(recipes, recipe)
		embeddings = append(embeddings, vec)
	}
	if err := rows.Err(); err != nil {
		return nil, services.NewDomainError(services.ErrorTypeMissingResource, "error iterating recipes", err)
	}

	ds, err := repositories.NewDataset(recipes, embeddings)
	if err != nil {
		return nil, err
	}

	r.logger.Info("dataset loaded from database",
		zap.String("table", r.table),
		zap.Int("records", ds.Len()),
		zap.Int("dimension", ds.Dim()))
	return ds, nil
}

// Import replaces the table contents with ds in a single transaction
func (r *RecipeRepository) Import(ctx context.Context, ds *repositories.Dataset) error {
	table := pq.QuoteIdentifier(r.table)
	matrix := ds.Embeddings()

	err := inTransaction(ctx, r.db, r.logger, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, table)); err != nil {
			return fmt.Errorf("failed to clear recipes: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
			INSERT INTO %s (position, title, ingredients, directions, embedding)
			VALUES ($1, $2, $3, $4, $5)
		`, table))
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for i := 0; i < ds.Len(); i++ {
			recipe, err := ds.Recipe(i)
			if err != nil {
				return err
			}
			embedding := make(pq.Float64Array, len(matrix[i]))
			for j, v := range matrix[i] {
				embedding[j] = float64(v)
			}

			if _, err := stmt.ExecContext(ctx, i, recipe.Title, pq.StringArray(recipe.Ingredients), recipe.Directions, embedding); err != nil {
				return fmt.Errorf("failed to insert recipe %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.logger.Info("dataset imported",
		zap.String("table", r.table),
		zap.Int("records", ds.Len()))
	return nil
}
