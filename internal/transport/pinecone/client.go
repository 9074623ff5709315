// Package pinecone is a thin data-plane client for a Pinecone index. Only
// the operations the service needs are implemented: query, upsert, and
// index stats for health checks.
package pinecone

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/nebula-cloud/nebula/internal/domain"
	"github.com/nebula-cloud/nebula/internal/metrics"
)

// Client talks to a single Pinecone index over its data-plane REST API.
type Client struct {
	baseURL   string
	apiKey    string
	namespace string
	http      *http.Client
	logger    *zap.Logger
}

// Config holds the index connection settings. Host is the index host from
// the Pinecone console, with or without the scheme.
type Config struct {
	Host      string
	APIKey    string
	Namespace string
	Timeout   time.Duration
	Logger    *zap.Logger
}

// New creates a Pinecone index client.
func New(cfg *Config) *Client {
	base := cfg.Host
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:   strings.TrimSuffix(base, "/"),
		apiKey:    cfg.APIKey,
		namespace: cfg.Namespace,
		http:      &http.Client{Timeout: timeout},
		logger:    cfg.Logger,
	}
}

type queryRequest struct {
	Vector          []float32      `json:"vector"`
	TopK            int            `json:"topK"`
	Filter          map[string]any `json:"filter,omitempty"`
	IncludeMetadata bool           `json:"includeMetadata"`
	IncludeValues   bool           `json:"includeValues"`
	Namespace       string         `json:"namespace,omitempty"`
}

type queryMatch struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Values   []float32      `json:"values,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type queryResponse struct {
	Matches []queryMatch `json:"matches"`
}

// Query implements domain.VectorIndex.
func (c *Client) Query(ctx context.Context, q domain.IndexQuery) ([]domain.Match, error) {
	req := queryRequest{
		Vector:          q.Vector,
		TopK:            q.TopK,
		Filter:          compileFilter(q.Filter),
		IncludeMetadata: q.IncludeMetadata,
		IncludeValues:   q.IncludeValues,
		Namespace:       c.namespace,
	}

	var resp queryResponse
	if err := c.do(ctx, "query", "/query", req, &resp); err != nil {
		return nil, err
	}

	matches := make([]domain.Match, len(resp.Matches))
	for i, m := range resp.Matches {
		matches[i] = domain.Match{
			ID:     m.ID,
			Score:  m.Score,
			Movie:  movieFromMetadata(m.ID, m.Metadata),
			Vector: m.Values,
		}
	}
	return matches, nil
}

type upsertVector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type upsertRequest struct {
	Vectors   []upsertVector `json:"vectors"`
	Namespace string         `json:"namespace,omitempty"`
}

// Upsert implements domain.VectorIndex.
func (c *Client) Upsert(ctx context.Context, vectors []domain.IndexVector) error {
	req := upsertRequest{Namespace: c.namespace}
	for _, v := range vectors {
		req.Vectors = append(req.Vectors, upsertVector{
			ID:       v.ID,
			Values:   v.Values,
			Metadata: metadataFromMovie(v.Movie),
		})
	}
	return c.do(ctx, "upsert", "/vectors/upsert", req, nil)
}

// HealthCheck verifies index availability via the stats endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.do(ctx, "stats", "/describe_index_stats", struct{}{}, nil)
}

// do posts a JSON body and decodes the JSON response. Every failure is
// wrapped with domain.ErrVectorIndexError for status mapping.
func (c *Client) do(ctx context.Context, op, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)

	if err != nil {
		metrics.IndexRequestsTotal.WithLabelValues(op, "error").Inc()
		return fmt.Errorf("index %s: %v: %w", op, err, domain.ErrVectorIndexError)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.IndexRequestsTotal.WithLabelValues(op, "error").Inc()
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("index %s: status %d: %s: %w",
			op, resp.StatusCode, strings.TrimSpace(string(detail)), domain.ErrVectorIndexError)
	}

	metrics.IndexRequestsTotal.WithLabelValues(op, "success").Inc()
	metrics.IndexRequestDuration.WithLabelValues(op).Observe(duration.Seconds())

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %v: %w", op, err, domain.ErrVectorIndexError)
	}
	return nil
}

// compileFilter renders metadata predicates in the index's filter syntax.
func compileFilter(f *domain.MovieFilter) map[string]any {
	if f == nil || f.IsEmpty() {
		return nil
	}
	filter := make(map[string]any)
	if f.MinRating > 0 {
		filter["rating"] = map[string]any{"$gte": f.MinRating}
	}
	year := make(map[string]any)
	if f.MinYear > 0 {
		year["$gte"] = f.MinYear
	}
	if f.MaxYear > 0 {
		year["$lt"] = f.MaxYear
	}
	if len(year) > 0 {
		filter["year"] = year
	}
	return filter
}

// movieFromMetadata maps the flat metadata the ingestion pipeline writes
// back into a Movie. Numbers come back as float64 regardless of how they
// were written.
func movieFromMetadata(id string, md map[string]any) domain.Movie {
	m := domain.Movie{ID: id}
	if md == nil {
		return m
	}
	m.Title = asString(md["title"])
	m.Poster = asString(md["poster_path"])
	m.Overview = asString(md["overview"])
	m.Rating = asFloat(md["rating"])
	m.Genres = asString(md["genres"])
	m.ReleaseDate = asString(md["release_date"])
	m.Year = int(asFloat(md["year"]))
	m.OriginalLanguage = asString(md["original_language"])
	m.Popularity = asFloat(md["popularity"])
	return m
}

func metadataFromMovie(m domain.Movie) map[string]any {
	md := map[string]any{
		"title":      m.Title,
		"rating":     m.Rating,
		"popularity": m.Popularity,
	}
	if m.Poster != "" {
		md["poster_path"] = m.Poster
	}
	if m.Overview != "" {
		md["overview"] = m.Overview
	}
	if m.Genres != "" {
		md["genres"] = m.Genres
	}
	if m.ReleaseDate != "" {
		md["release_date"] = m.ReleaseDate
	}
	if m.Year != 0 {
		md["year"] = m.Year
	}
	if m.OriginalLanguage != "" {
		md["original_language"] = m.OriginalLanguage
	}
	return md
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	}
	return 0
}
