package rag

import (
	"context"

	"github.com/upb/recipe-api/models"
	"github.com/upb/recipe-api/services"
)

// RecordSource resolves ranked row indexes to dataset records.
type RecordSource interface {
	Records(indexes []int) ([]models.Recipe, error)
}

// Pipeline embeds a query and ranks the dataset against it.
type Pipeline struct {
	embedder Embedder
	ranker   Ranker
	records  RecordSource
}

// NewPipeline creates a retrieval pipeline
func NewPipeline(embedder Embedder, ranker Ranker, records RecordSource) *Pipeline {
	return &Pipeline{embedder: embedder, ranker: ranker, records: records}
}

// EmbedQuery embeds the query text. Embedder failures are retrieval failures.
func (p *Pipeline) EmbedQuery(ctx context.Context, q Query) ([]float32, error) {
	vec, err := p.embedder.Embed(ctx, q.Text())
	if err != nil {
		return nil, services.WrapRetrieval("failed to embed query", err)
	}
	return vec, nil
}

// Retrieve returns the top k records for q in descending similarity order.
func (p *Pipeline) Retrieve(ctx context.Context, q Query, k int) ([]models.ScoredRecipe, error) {
	if k <= 0 {
		return nil, services.ErrInvalidTopN
	}
	if q.IsEmpty() {
		return nil, services.ErrMissingQuery
	}

	vec, err := p.EmbedQuery(ctx, q)
	if err != nil {
		return nil, err
	}

	ranked, err := p.ranker.Rank(vec, k)
	if err != nil {
		return nil, err
	}

	indexes := make([]int, len(ranked))
	for i, r := range ranked {
		indexes[i] = r.Index
	}
	recs, err := p.records.Records(indexes)
	if err != nil {
		return nil, services.WrapRetrieval("failed to resolve ranked records", err)
	}

	out := make([]models.ScoredRecipe, len(ranked))
	for i, r := range ranked {
		out[i] = models.ScoredRecipe{Recipe: recs[i], Index: r.Index, Score: r.Score}
	}
	return out, nil
}
