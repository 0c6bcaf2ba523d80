// Package retrieval ranks dataset rows by cosine similarity to a query
// embedding. The embedding matrix is fixed at construction and only read
// afterwards, so a Retriever is safe for concurrent use without locking.
package retrieval

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/hupe1980/vecgo/distance"
	"github.com/upb/recipe-api/models"
	"github.com/upb/recipe-api/services"
)

// Retriever performs exhaustive nearest-neighbour search over an embedding matrix.
type Retriever struct {
	matrix [][]float32
	norms  []float64
	dim    int
}

// NewRetriever validates the matrix and precomputes row norms.
// An empty matrix fails with ErrEmptyDataset; ragged or zero-width rows fail
// with ErrMissingResource.
func NewRetriever(matrix [][]float32) (*Retriever, error) {
	if len(matrix) == 0 {
		return nil, services.ErrEmptyDataset
	}

	dim := len(matrix[0])
	if dim == 0 {
		return nil, services.NewDomainError(services.ErrorTypeMissingResource,
			"embedding rows have zero dimensions", nil)
	}

	norms := make([]float64, len(matrix))
	for i, row := range matrix {
		if len(row) != dim {
			return nil, services.NewDomainError(services.ErrorTypeMissingResource,
				"embedding matrix rows differ in dimension",
				fmt.Errorf("row %d has %d values, expected %d", i, len(row), dim)).
				WithDetail("row", i)
		}
		norms[i] = norm(row)
	}

	return &Retriever{
		matrix: matrix,
		norms:  norms,
		dim:    dim,
	}, nil
}

// Len returns the number of rows N.
func (r *Retriever) Len() int {
	return len(r.matrix)
}

// Dim returns the embedding dimensionality d.
func (r *Retriever) Dim() int {
	return r.dim
}

// Rank returns the min(k, N) rows most similar to query, ordered by
// descending score. Equal scores keep the lower index first.
func (r *Retriever) Rank(query []float32, k int) ([]models.RankedResult, error) {
	if k <= 0 {
		return nil, services.NewDomainError(services.ErrorTypeValidation,
			"k must be a positive integer", nil).WithDetail("k", k)
	}
	if len(r.matrix) == 0 {
		return nil, services.ErrEmptyDataset
	}
	if len(query) != r.dim {
		return nil, services.NewDomainError(services.ErrorTypeRetrieval,
			"query embedding dimension mismatch",
			fmt.Errorf("query has %d dimensions, matrix has %d", len(query), r.dim)).
			WithDetail("expected", r.dim).
			WithDetail("actual", len(query))
	}

	qNorm := norm(query)
	results := make([]models.RankedResult, len(r.matrix))
	for i, row := range r.matrix {
		score := cosine(query, row, qNorm, r.norms[i])
		if math.IsNaN(score) || math.IsInf(score, 0) {
			return nil, services.WrapRetrieval("non-finite similarity score",
				fmt.Errorf("row %d scored %v", i, score))
		}
		results[i] = models.RankedResult{Index: i, Score: score}
	}

	slices.SortFunc(results, compareRanked)

	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// Similarity returns the cosine similarity of a and b, or 0 when either
// vector has zero norm. Vectors must have equal length.
func Similarity(a, b []float32) float64 {
	return cosine(a, b, norm(a), norm(b))
}

func cosine(a, b []float32, normA, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 0
	}
	s := float64(distance.Dot(a, b)) / (normA * normB)
	// Rounding can push identical directions a hair past 1.
	return max(-1, min(1, s))
}

func norm(v []float32) float64 {
	return math.Sqrt(float64(distance.Dot(v, v)))
}

func compareRanked(a, b models.RankedResult) int {
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	return cmp.Compare(a.Index, b.Index)
}
