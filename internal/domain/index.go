package domain

import "context"

// MovieFilter is the subset of metadata predicates the index evaluates
// server-side. Zero values mean "no constraint".
type MovieFilter struct {
	MinRating float64
	MinYear   int
	MaxYear   int // exclusive; used for decade ranges
}

// IsEmpty reports whether the filter constrains anything.
func (f MovieFilter) IsEmpty() bool {
	return f.MinRating == 0 && f.MinYear == 0 && f.MaxYear == 0
}

// IndexQuery is a nearest-neighbor lookup against the vector index.
type IndexQuery struct {
	Vector          []float32
	TopK            int
	Filter          *MovieFilter
	IncludeMetadata bool
	IncludeValues   bool
}

// Match is a single ranked hit returned by the vector index.
type Match struct {
	ID     string
	Score  float64
	Movie  Movie
	Vector []float32
}

// IndexVector is a vector plus metadata for upsert.
type IndexVector struct {
	ID     string
	Values []float32
	Movie  Movie
}

// VectorIndex is the external nearest-neighbor store collaborator.
type VectorIndex interface {
	Query(ctx context.Context, q IndexQuery) ([]Match, error)
	Upsert(ctx context.Context, vectors []IndexVector) error
}
