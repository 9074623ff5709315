package search

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"github.com/nebula-cloud/nebula/internal/cachekey"
	"github.com/nebula-cloud/nebula/internal/domain"
)

// mockCache is an in-memory ResponseCache with a signal channel for the
// detached write.
type mockCache struct {
	mu      sync.Mutex
	entries map[string]domain.SearchResponse
	sets    chan string
	getErr  bool // simulate unreachable store: every Get is a miss
}

func newMockCache() *mockCache {
	return &mockCache{
		entries: make(map[string]domain.SearchResponse),
		sets:    make(chan string, 16),
	}
}

func (m *mockCache) QueryKey(query string) string {
	return cachekey.Text("test:search:", query)
}

func (m *mockCache) ProbeKey(vec []float32) string {
	return cachekey.Vector("test:graph:", vec)
}

func (m *mockCache) Get(_ context.Context, key string) (*domain.SearchResponse, bool) {
	if m.getErr {
		return nil, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if resp, ok := m.entries[key]; ok {
		cp := resp
		return &cp, true
	}
	return nil, false
}

func (m *mockCache) Set(_ context.Context, key string, resp *domain.SearchResponse) {
	m.mu.Lock()
	m.entries[key] = *resp
	m.mu.Unlock()
	m.sets <- key
}

type mockEmbedder struct {
	vec   []float32
	err   error
	calls atomic.Int64
	gate  chan struct{} // when non-nil, Embed blocks until the gate closes
}

func (m *mockEmbedder) Embed(ctx context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls.Add(1)
	if m.gate != nil {
		select {
		case <-m.gate:
		case <-ctx.Done():
			return domain.EmbeddingResult{}, ctx.Err()
		}
	}
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec, TotalTokens: 7}, nil
}

type mockIndex struct {
	matches []domain.Match
	err     error
	calls   atomic.Int64
	lastQ   domain.IndexQuery
}

func (m *mockIndex) Query(_ context.Context, q domain.IndexQuery) ([]domain.Match, error) {
	m.calls.Add(1)
	m.lastQ = q
	if m.err != nil {
		return nil, m.err
	}
	return m.matches, nil
}

type mockGraph struct {
	edges []domain.Edge
	err   error
	calls atomic.Int64
}

func (m *mockGraph) Build(_ []domain.Node) ([]domain.Edge, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	return m.edges, nil
}

func sampleMatches() []domain.Match {
	return []domain.Match{
		{
			ID:     "603",
			Score:  0.91,
			Movie:  domain.Movie{ID: "603", Title: "The Matrix", Rating: 8.2},
			Vector: []float32{0.1, 0.2},
		},
		{
			ID:     "604",
			Score:  0.88,
			Movie:  domain.Movie{ID: "604", Title: "The Matrix Reloaded", Rating: 7.0},
			Vector: []float32{0.1, 0.21},
		},
	}
}

func newTestService(t *testing.T) (*Service, *mockCache, *mockEmbedder, *mockIndex, *mockGraph) {
	t.Helper()
	cache := newMockCache()
	embed := &mockEmbedder{vec: []float32{0.5, 0.5}}
	index := &mockIndex{matches: sampleMatches()}
	builder := &mockGraph{edges: []domain.Edge{
		{Source: "603", Target: "604", Value: 0.99, Similarity: 0.99},
	}}
	svc := New(cache, embed, index, builder, zap.NewNop()).WithProbe(4, 100)
	return svc, cache, embed, index, builder
}
