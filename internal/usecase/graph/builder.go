// Package graph builds similarity edges between search results.
package graph

import (
	"fmt"
	"math"

	"github.com/nebula-cloud/nebula/internal/domain"
)

// Builder computes pairwise cosine similarity over result vectors and emits
// one edge per unordered pair above the threshold. Quadratic in node count
// by design; result sets are tens of nodes, and the search max_top_k bound
// keeps it that way.
type Builder struct {
	threshold float64
}

// NewBuilder creates a builder emitting edges with similarity > threshold.
func NewBuilder(threshold float64) *Builder {
	return &Builder{threshold: threshold}
}

// Build returns the similarity edge list for nodes. Fewer than two nodes
// yield an empty edge set. Nodes without a vector take part in no edges.
// Vectors of different dimensionality are an input-validation error.
func (b *Builder) Build(nodes []domain.Node) ([]domain.Edge, error) {
	if err := validateDimensions(nodes); err != nil {
		return nil, err
	}

	edges := []domain.Edge{}
	for i := 0; i < len(nodes); i++ {
		if len(nodes[i].Vector) == 0 {
			continue
		}
		for j := i + 1; j < len(nodes); j++ {
			if len(nodes[j].Vector) == 0 {
				continue
			}
			sim := cosineSimilarity(nodes[i].Vector, nodes[j].Vector)
			if sim > b.threshold {
				edges = append(edges, domain.Edge{
					Source:     nodes[i].ID,
					Target:     nodes[j].ID,
					Value:      sim,
					Similarity: sim,
				})
			}
		}
	}
	return edges, nil
}

func validateDimensions(nodes []domain.Node) error {
	dim := 0
	for i := range nodes {
		n := len(nodes[i].Vector)
		if n == 0 {
			continue
		}
		if dim == 0 {
			dim = n
			continue
		}
		if n != dim {
			return fmt.Errorf("%w: node %s has %d dimensions, expected %d",
				domain.ErrVectorDimMismatch, nodes[i].ID, n, dim)
		}
	}
	return nil
}

// cosineSimilarity is the normalized dot product of two equal-length vectors.
// A zero-norm vector has similarity 0 with everything.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
