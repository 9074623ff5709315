package graph

import (
	"errors"
	"math"
	"testing"

	"github.com/nebula-cloud/nebula/internal/domain"
)

func node(id string, vec ...float32) domain.Node {
	return domain.Node{Movie: domain.Movie{ID: id}, Vector: vec}
}

func TestBuild_IdenticalVectors(t *testing.T) {
	b := NewBuilder(0.5)

	edges, err := b.Build([]domain.Node{
		node("a", 1, 2, 3, 4, 5),
		node("b", 1, 2, 3, 4, 5),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(edges) != 1 {
		t.Fatalf("expected 1 edge, got %d", len(edges))
	}
	if math.Abs(edges[0].Similarity-1.0) > 0.001 {
		t.Errorf("expected similarity ~1.0, got %v", edges[0].Similarity)
	}
	if edges[0].Value != edges[0].Similarity {
		t.Errorf("value and similarity must carry the same number")
	}
	if edges[0].Source != "a" || edges[0].Target != "b" {
		t.Errorf("unexpected edge endpoints: %+v", edges[0])
	}
}

func TestBuild_OrthogonalVectors(t *testing.T) {
	b := NewBuilder(0.5)

	edges, err := b.Build([]domain.Node{
		node("a", 1, 0),
		node("b", 0, 1),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(edges) != 0 {
		t.Fatalf("similarity ~0.0 is below threshold, expected no edges, got %d", len(edges))
	}
}

func TestBuild_OppositeVectors(t *testing.T) {
	b := NewBuilder(0.5)

	edges, err := b.Build([]domain.Node{
		node("a", 1, 2, 3),
		node("b", -1, -2, -3),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(edges) != 0 {
		t.Fatalf("similarity ~-1.0 is below threshold, expected no edges, got %d", len(edges))
	}
}

func TestBuild_EmptyAndSingle(t *testing.T) {
	b := NewBuilder(0.5)

	for _, nodes := range [][]domain.Node{nil, {}, {node("a", 1, 2)}} {
		edges, err := b.Build(nodes)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(edges) != 0 {
			t.Fatalf("expected empty edge set for %d nodes", len(nodes))
		}
	}
}

func TestBuild_OnePerUnorderedPair(t *testing.T) {
	b := NewBuilder(0.5)

	edges, err := b.Build([]domain.Node{
		node("a", 1, 1),
		node("b", 1, 1),
		node("c", 1, 1),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(edges) != 3 {
		t.Fatalf("expected 3 edges for 3 mutually similar nodes, got %d", len(edges))
	}
	seen := map[string]bool{}
	for _, e := range edges {
		if seen[e.Source+"-"+e.Target] || seen[e.Target+"-"+e.Source] {
			t.Errorf("pair %s-%s emitted twice", e.Source, e.Target)
		}
		seen[e.Source+"-"+e.Target] = true
	}
}

func TestBuild_DimensionMismatch(t *testing.T) {
	b := NewBuilder(0.5)

	_, err := b.Build([]domain.Node{
		node("a", 1, 2, 3),
		node("b", 1, 2),
	})
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
}

func TestBuild_SkipsVectorlessNodes(t *testing.T) {
	b := NewBuilder(0.5)

	edges, err := b.Build([]domain.Node{
		node("a", 1, 1),
		node("b"), // metadata-only match, index returned no values
		node("c", 1, 1),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(edges) != 1 {
		t.Fatalf("expected 1 edge between the two vectored nodes, got %d", len(edges))
	}
}

func TestBuild_Deterministic(t *testing.T) {
	b := NewBuilder(0.5)
	nodes := []domain.Node{
		node("a", 0.9, 0.1, 0.3),
		node("b", 0.8, 0.2, 0.35),
		node("c", 0.1, 0.9, 0.2),
	}

	first, err := b.Build(nodes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := b.Build(nodes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("edge count changed between runs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("edge %d differs between runs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestBuild_DoesNotMutateInput(t *testing.T) {
	b := NewBuilder(0.5)
	nodes := []domain.Node{node("a", 1, 2), node("b", 3, 4)}

	if _, err := b.Build(nodes); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if nodes[0].Vector[0] != 1 || nodes[1].Vector[1] != 4 {
		t.Error("input vectors were mutated")
	}
}
