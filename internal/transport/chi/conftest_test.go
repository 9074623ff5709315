package chi

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/nebula-cloud/nebula/internal/domain"
	browseuc "github.com/nebula-cloud/nebula/internal/usecase/browse"
	healthuc "github.com/nebula-cloud/nebula/internal/usecase/health"
	searchuc "github.com/nebula-cloud/nebula/internal/usecase/search"
)

type stubCache struct{}

func (stubCache) QueryKey(query string) string { return "q:" + query }

func (stubCache) ProbeKey(_ []float32) string { return "probe" }

func (stubCache) Get(_ context.Context, _ string) (*domain.SearchResponse, bool) {
	return nil, false
}

func (stubCache) Set(_ context.Context, _ string, _ *domain.SearchResponse) {}

type stubEmbedder struct {
	err error
}

func (s *stubEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	if s.err != nil {
		return domain.EmbeddingResult{}, s.err
	}
	return domain.EmbeddingResult{Embedding: []float32{0.5, 0.5}}, nil
}

type stubIndex struct {
	err error
}

func (s *stubIndex) Query(_ context.Context, _ domain.IndexQuery) ([]domain.Match, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []domain.Match{
		{ID: "603", Score: 0.91, Movie: domain.Movie{ID: "603", Title: "The Matrix"}, Vector: []float32{0.1, 0.2}},
	}, nil
}

type stubGraph struct{}

func (stubGraph) Build(_ []domain.Node) ([]domain.Edge, error) { return nil, nil }

type stubPinger struct{ err error }

func (s *stubPinger) Ping(_ context.Context) error { return s.err }

type stubChecker struct{ err error }

func (s *stubChecker) HealthCheck(_ context.Context) error { return s.err }

// stubLimiter admits until the remaining budget runs out. A nil pointer
// disables the gate.
type stubLimiter struct {
	remaining int
	clients   []string
}

func (s *stubLimiter) Admit(_ context.Context, client string) bool {
	s.clients = append(s.clients, client)
	if s.remaining <= 0 {
		return false
	}
	s.remaining--
	return true
}

type serverFixture struct {
	server  *Server
	embed   *stubEmbedder
	index   *stubIndex
	limiter *stubLimiter
}

func newTestServer(t *testing.T) *serverFixture {
	t.Helper()
	logger := zap.NewNop()

	embed := &stubEmbedder{}
	index := &stubIndex{}
	limiter := &stubLimiter{remaining: 1 << 30}

	search := searchuc.New(stubCache{}, embed, index, stubGraph{}, logger).WithProbe(4, 100)
	browse := browseuc.New(index, logger).WithProbe(4, 50)
	health := healthuc.New(&stubPinger{}, &stubChecker{}, &stubChecker{})

	return &serverFixture{
		server:  NewServer(search, browse, health, limiter, logger),
		embed:   embed,
		index:   index,
		limiter: limiter,
	}
}
