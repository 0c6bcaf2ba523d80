package repositories

import (
	"fmt"

	"github.com/upb/recipe-api/models"
	"github.com/upb/recipe-api/services"
)

// Dataset is the read-only recipe table and its embedding matrix. Row i of
// the matrix embeds record i.
type Dataset struct {
	recipes    []models.Recipe
	embeddings [][]float32
	dim        int
}

// NewDataset pairs records with embeddings. An empty dataset is an
// EmptyDataset error; a count or width mismatch is a MissingResource error.
func NewDataset(recipes []models.Recipe, embeddings [][]float32) (*Dataset, error) {
	if len(recipes) == 0 && len(embeddings) == 0 {
		return nil, services.ErrEmptyDataset
	}
	if len(recipes) != len(embeddings) {
		return nil, services.NewDomainError(services.ErrorTypeMissingResource,
			fmt.Sprintf("dataset has %d records but %d embeddings", len(recipes), len(embeddings)), nil).
			WithDetail("records", len(recipes)).
			WithDetail("embeddings", len(embeddings))
	}

	dim := len(embeddings[0])
	if dim == 0 {
		return nil, services.NewDomainError(services.ErrorTypeMissingResource, "embeddings have zero dimension", nil)
	}
	for i, row := range embeddings {
		if len(row) != dim {
			return nil, services.NewDomainError(services.ErrorTypeMissingResource,
				fmt.Sprintf("embedding row %d has dimension %d, expected %d", i, len(row), dim), nil).
				WithDetail("row", i)
		}
	}

	return &Dataset{
		recipes:    recipes,
		embeddings: embeddings,
		dim:        dim,
	}, nil
}

// Len returns the number of records
func (d *Dataset) Len() int {
	return len(d.recipes)
}

// Dim returns the embedding dimension
func (d *Dataset) Dim() int {
	return d.dim
}

// Embeddings returns the embedding matrix. Callers must not modify it.
func (d *Dataset) Embeddings() [][]float32 {
	return d.embeddings
}

// Recipe returns the record at position i
func (d *Dataset) Recipe(i int) (models.Recipe, error) {
	if i < 0 || i >= len(d.recipes) {
		return models.Recipe{}, fmt.Errorf("record index %d out of range [0, %d)", i, len(d.recipes))
	}
	return d.recipes[i], nil
}

// Records resolves positions to records, preserving order
func (d *Dataset) Records(indexes []int) ([]models.Recipe, error) {
	out := make([]models.Recipe, len(indexes))
	for i, idx := range indexes {
		r, err := d.Recipe(idx)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}
