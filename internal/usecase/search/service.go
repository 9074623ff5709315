// Package search orchestrates a semantic query: cache check, embedding,
// index lookup, similarity graph, and a detached cache write.
package search

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/nebula-cloud/nebula/internal/domain"
)

// cacheWriteTimeout bounds the detached write so a hung store cannot leak
// goroutines; the write task outlives the request it was spawned from.
const cacheWriteTimeout = 5 * time.Second

// Service handles semantic search and graph exploration requests.
type Service struct {
	cache  ResponseCache
	embed  Embedder
	index  Index
	graph  GraphBuilder
	logger *zap.Logger

	defaultTopK int
	maxTopK     int
	probeDim    int
	exploreTopK int

	upstream        *semaphore.Weighted
	upstreamTimeout time.Duration
	flight          singleflight.Group
	writes          sync.WaitGroup
}

// New creates a search service with default limits.
func New(cache ResponseCache, embed Embedder, index Index, graph GraphBuilder, logger *zap.Logger) *Service {
	return &Service{
		cache:           cache,
		embed:           embed,
		index:           index,
		graph:           graph,
		logger:          logger,
		defaultTopK:     20,
		maxTopK:         100,
		probeDim:        384,
		exploreTopK:     100,
		upstream:        semaphore.NewWeighted(8),
		upstreamTimeout: 15 * time.Second,
	}
}

// WithTopK overrides the default and maximum result counts.
func (s *Service) WithTopK(defaultTopK, maxTopK int) *Service {
	if defaultTopK > 0 {
		s.defaultTopK = defaultTopK
	}
	if maxTopK > 0 {
		s.maxTopK = maxTopK
	}
	return s
}

// WithProbe overrides the probe vector dimensionality and graph sample size.
func (s *Service) WithProbe(dim, topK int) *Service {
	if dim > 0 {
		s.probeDim = dim
	}
	if topK > 0 {
		s.exploreTopK = topK
	}
	return s
}

// WithUpstreamLimits bounds concurrent upstream calls and their duration.
func (s *Service) WithUpstreamLimits(maxConcurrent int, timeout time.Duration) *Service {
	if maxConcurrent > 0 {
		s.upstream = semaphore.NewWeighted(int64(maxConcurrent))
	}
	if timeout > 0 {
		s.upstreamTimeout = timeout
	}
	return s
}

// Search answers a free-text query with ranked nodes and similarity links.
// Identical concurrent cache misses are collapsed into one upstream flight.
func (s *Service) Search(ctx context.Context, query string, topK int) (*domain.SearchResponse, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidRequest)
	}
	if topK <= 0 {
		topK = s.defaultTopK
	}
	if topK > s.maxTopK {
		topK = s.maxTopK
	}

	key := s.cache.QueryKey(query)
	if resp, ok := s.cache.Get(ctx, key); ok {
		resp.Cached = true
		return resp, nil
	}

	v, err, _ := s.flight.Do(key, func() (any, error) {
		return s.searchLive(ctx, query, topK, key)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.SearchResponse), nil
}

// Explore samples the index with a fixed probe vector to seed the graph
// view. The index has no scan operation, so a spread of movies is fetched
// by querying near a constant point.
func (s *Service) Explore(ctx context.Context, topK int) (*domain.SearchResponse, error) {
	if topK <= 0 || topK > s.exploreTopK {
		topK = s.exploreTopK
	}

	probe := s.probeVector()
	key := s.cache.ProbeKey(probe)
	if resp, ok := s.cache.Get(ctx, key); ok {
		resp.Cached = true
		return resp, nil
	}

	v, err, _ := s.flight.Do(key, func() (any, error) {
		return s.assemble(ctx, "", probe, topK, key)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.SearchResponse), nil
}

// Drain waits for outstanding background cache writes, up to timeout.
// Called at shutdown; a slow store forfeits its writes, nothing more.
func (s *Service) Drain(timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		s.writes.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		s.logger.Warn("timed out waiting for background cache writes")
	}
}

func (s *Service) searchLive(ctx context.Context, query string, topK int, key string) (*domain.SearchResponse, error) {
	var emb domain.EmbeddingResult
	err := s.withUpstreamSlot(ctx, func(ctx context.Context) error {
		var err error
		emb, err = s.embed.Embed(ctx, query)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	return s.assemble(ctx, query, emb.Embedding, topK, key)
}

// assemble runs the index lookup and graph build, then schedules the
// detached cache write. Any upstream failure is total: no partial graph.
func (s *Service) assemble(ctx context.Context, query string, vector []float32, topK int, key string) (*domain.SearchResponse, error) {
	var matches []domain.Match
	err := s.withUpstreamSlot(ctx, func(ctx context.Context) error {
		var err error
		matches, err = s.index.Query(ctx, domain.IndexQuery{
			Vector:          vector,
			TopK:            topK,
			IncludeMetadata: true,
			IncludeValues:   true,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	nodes := nodesFromMatches(matches)
	links, err := s.graph.Build(nodes)
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}

	resp := &domain.SearchResponse{
		Nodes:        nodes,
		Links:        links,
		Query:        query,
		TotalResults: len(nodes),
		Cached:       false,
	}
	s.scheduleCacheWrite(key, resp)
	return resp, nil
}

// withUpstreamSlot runs fn on a bounded worker slot with a per-call timeout.
// A hanging upstream call stalls only the requesting task and its slot.
func (s *Service) withUpstreamSlot(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := s.upstream.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire upstream slot: %w", err)
	}
	defer s.upstream.Release(1)

	ctx, cancel := context.WithTimeout(ctx, s.upstreamTimeout)
	defer cancel()
	return fn(ctx)
}

// scheduleCacheWrite fires a detached write; the caller never waits on it
// and a failure inside is logged by the cache, never retried.
func (s *Service) scheduleCacheWrite(key string, resp *domain.SearchResponse) {
	s.writes.Add(1)
	go func() {
		defer s.writes.Done()
		ctx, cancel := context.WithTimeout(context.Background(), cacheWriteTimeout)
		defer cancel()
		s.cache.Set(ctx, key, resp)
	}()
}

func (s *Service) probeVector() []float32 {
	v := make([]float32, s.probeDim)
	for i := range v {
		v[i] = 0.1
	}
	return v
}

func nodesFromMatches(matches []domain.Match) []domain.Node {
	nodes := make([]domain.Node, len(matches))
	for i, m := range matches {
		movie := m.Movie
		if movie.ID == "" {
			movie.ID = m.ID
		}
		nodes[i] = domain.Node{
			Movie:  movie,
			Score:  m.Score,
			Val:    1,
			Vector: m.Vector,
		}
	}
	return nodes
}
