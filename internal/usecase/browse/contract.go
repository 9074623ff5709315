package browse

import (
	"context"

	"github.com/nebula-cloud/nebula/internal/domain"
)

// Index is the vector index collaborator; browse only queries it.
type Index interface {
	Query(ctx context.Context, q domain.IndexQuery) ([]domain.Match, error)
}
