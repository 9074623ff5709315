package search

import (
	"context"

	"github.com/nebula-cloud/nebula/internal/domain"
)

// ResponseCache is the degrading response cache. Get never fails: a broken
// backend reads as a miss, and Set drops the write.
type ResponseCache interface {
	QueryKey(query string) string
	ProbeKey(vec []float32) string
	Get(ctx context.Context, key string) (*domain.SearchResponse, bool)
	Set(ctx context.Context, key string, resp *domain.SearchResponse)
}

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Index runs nearest-neighbor lookups against the vector index.
type Index interface {
	Query(ctx context.Context, q domain.IndexQuery) ([]domain.Match, error)
}

// GraphBuilder computes similarity edges over result nodes.
type GraphBuilder interface {
	Build(nodes []domain.Node) ([]domain.Edge, error)
}
