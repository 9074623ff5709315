// Package browse serves paginated movie listings. The vector index has no
// scan operation, so a pool of movies is fetched by probing near a constant
// point with metadata filters pushed down, then paginated in-process.
package browse

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/nebula-cloud/nebula/internal/domain"
)

// Request carries browse parameters, all optional except the page cursor.
type Request struct {
	Page      int
	Limit     int
	Genre     string
	Decade    string // e.g. "1990s"
	MinRating float64
	MinYear   int
}

// Service lists movies from the index with filters and pagination.
type Service struct {
	index  Index
	logger *zap.Logger

	probeDim int
	poolSize int
	maxLimit int
}

// New creates a browse service with default pool and page limits.
func New(index Index, logger *zap.Logger) *Service {
	return &Service{
		index:    index,
		logger:   logger,
		probeDim: 384,
		poolSize: 200,
		maxLimit: 100,
	}
}

// WithProbe overrides the probe vector dimensionality and pool size.
func (s *Service) WithProbe(dim, pool int) *Service {
	if dim > 0 {
		s.probeDim = dim
	}
	if pool > 0 {
		s.poolSize = pool
	}
	return s
}

// Browse returns one page of movies matching the request filters, ordered
// by popularity. Total counts the filtered pool, not the whole catalog.
func (s *Service) Browse(ctx context.Context, req Request) (*domain.BrowseResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Limit <= 0 {
		req.Limit = 20
	}
	if req.Limit > s.maxLimit {
		req.Limit = s.maxLimit
	}

	filter, err := compileFilter(req)
	if err != nil {
		return nil, err
	}

	q := domain.IndexQuery{
		Vector:          s.probeVector(),
		TopK:            s.poolSize,
		IncludeMetadata: true,
	}
	if !filter.IsEmpty() {
		q.Filter = &filter
	}

	matches, err := s.index.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	movies := moviesFromMatches(matches)
	if req.Genre != "" {
		movies = filterGenre(movies, req.Genre)
	}
	sort.SliceStable(movies, func(i, j int) bool {
		return movies[i].Popularity > movies[j].Popularity
	})

	total := len(movies)
	start := (req.Page - 1) * req.Limit
	if start > total {
		start = total
	}
	end := start + req.Limit
	if end > total {
		end = total
	}

	return &domain.BrowseResponse{
		Movies:  movies[start:end],
		Total:   total,
		Page:    req.Page,
		Limit:   req.Limit,
		HasMore: end < total,
	}, nil
}

// compileFilter turns request parameters into index metadata predicates.
// Genre stays out: genres are stored as a comma-joined string, which the
// index cannot match on, so it is filtered in-process instead.
func compileFilter(req Request) (domain.MovieFilter, error) {
	f := domain.MovieFilter{
		MinRating: req.MinRating,
		MinYear:   req.MinYear,
	}
	if req.Decade != "" {
		start, err := parseDecade(req.Decade)
		if err != nil {
			return domain.MovieFilter{}, err
		}
		if start > f.MinYear {
			f.MinYear = start
		}
		f.MaxYear = start + 10
	}
	return f, nil
}

// parseDecade accepts forms like "1990s", "1990", "90s".
func parseDecade(s string) (int, error) {
	trimmed := strings.TrimSuffix(strings.TrimSpace(s), "s")
	year, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid decade %q", domain.ErrInvalidRequest, s)
	}
	if year < 100 {
		year += 1900
	}
	if year < 1800 || year > 2100 {
		return 0, fmt.Errorf("%w: invalid decade %q", domain.ErrInvalidRequest, s)
	}
	return year - year%10, nil
}

func filterGenre(movies []domain.Movie, genre string) []domain.Movie {
	want := strings.ToLower(strings.TrimSpace(genre))
	out := movies[:0:0]
	for _, m := range movies {
		for _, g := range strings.Split(m.Genres, ",") {
			if strings.ToLower(strings.TrimSpace(g)) == want {
				out = append(out, m)
				break
			}
		}
	}
	return out
}

func moviesFromMatches(matches []domain.Match) []domain.Movie {
	movies := make([]domain.Movie, len(matches))
	for i, m := range matches {
		movie := m.Movie
		if movie.ID == "" {
			movie.ID = m.ID
		}
		movies[i] = movie
	}
	return movies
}

func (s *Service) probeVector() []float32 {
	v := make([]float32, s.probeDim)
	for i := range v {
		v[i] = 0.1
	}
	return v
}
