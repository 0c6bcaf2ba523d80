package rag

import (
	"context"
	"strings"

	"github.com/upb/recipe-api/models"
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Ranker returns the k dataset rows most similar to a query vector.
type Ranker interface {
	Rank(query []float32, k int) ([]models.RankedResult, error)
}

// Query is the user's retrieval input.
type Query struct {
	Ingredients string
	Preferences []string
}

// Text renders the query as "Ingredients: {ingredients}" followed by
// "\nPreferences: {p1, p2}" when any preference is set.
func (q Query) Text() string {
	var b strings.Builder
	b.WriteString("Ingredients: ")
	b.WriteString(strings.TrimSpace(q.Ingredients))

	prefs := make([]string, 0, len(q.Preferences))
	for _, p := range q.Preferences {
		if p = strings.TrimSpace(p); p != "" {
			prefs = append(prefs, p)
		}
	}
	if len(prefs) > 0 {
		b.WriteString("\nPreferences: ")
		b.WriteString(strings.Join(prefs, ", "))
	}
	return b.String()
}

// IsEmpty reports whether neither ingredients nor preferences carry text.
func (q Query) IsEmpty() bool {
	if strings.TrimSpace(q.Ingredients) != "" {
		return false
	}
	for _, p := range q.Preferences {
		if strings.TrimSpace(p) != "" {
			return false
		}
	}
	return true
}
