// Package chi wires the HTTP API: routing, request decoding, error
// mapping, and the per-client rate-limit gate.
package chi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nebula-cloud/nebula/internal/domain"
	browseuc "github.com/nebula-cloud/nebula/internal/usecase/browse"
	healthuc "github.com/nebula-cloud/nebula/internal/usecase/health"
	searchuc "github.com/nebula-cloud/nebula/internal/usecase/search"
	"github.com/nebula-cloud/nebula/internal/version"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	codeBadRequest    = "bad_request"
	codeInvalidInput  = "validation_failed"
	codeRateLimited   = "rate_limited"
	codeInternalError = "internal_error"
)

// Server implements the HTTP API handlers.
type Server struct {
	search        *searchuc.Service
	browse        *browseuc.Service
	health        *healthuc.Service
	limiter       Admitter
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. limiter can be nil to disable
// rate limiting.
func NewServer(
	search *searchuc.Service,
	browse *browseuc.Service,
	health *healthuc.Service,
	limiter Admitter,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:  search,
		browse:  browse,
		health:  health,
		limiter: limiter,
		logger:  logger,
	}
	// Upstream failures (embedding, index) deliberately fall through to the
	// generic 500: the client learns nothing about which collaborator broke.
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, codeRateLimited),
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, codeInvalidInput),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, codeInvalidInput),
	}
	return s
}

// Register mounts all routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Get("/", s.Root)
	r.Get("/health", s.GetHealth)
	r.Get("/metrics", s.Metrics)
	r.Get("/graph", s.GetGraph)
	r.Get("/api/movies", s.ListMovies)

	r.Group(func(r chi.Router) {
		r.Use(RateLimitMiddleware(s.limiter))
		r.Post("/search", s.Search)
	})
}

// Root handles GET /.
func (s *Server) Root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "nebula",
		"version": version.Version,
		"status":  "ok",
	})
}

// searchRequest is the POST /search body.
type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

// Search handles POST /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	resp, err := s.search.Search(r.Context(), req.Query, req.TopK)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetGraph handles GET /graph.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	topK, err := intQueryParam(r, "top_k", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, err.Error())
		return
	}

	resp, err := s.search.Explore(r.Context(), topK)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListMovies handles GET /api/movies.
func (s *Server) ListMovies(w http.ResponseWriter, r *http.Request) {
	req := browseuc.Request{
		Genre:  strings.TrimSpace(r.URL.Query().Get("genre")),
		Decade: strings.TrimSpace(r.URL.Query().Get("decade")),
	}

	var err error
	if req.Page, err = intQueryParam(r, "page", 0); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, err.Error())
		return
	}
	if req.Limit, err = intQueryParam(r, "limit", 0); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, err.Error())
		return
	}
	if req.MinYear, err = intQueryParam(r, "min_year", 0); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, err.Error())
		return
	}
	if raw := r.URL.Query().Get("rating"); raw != "" {
		req.MinRating, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidInput, "invalid rating: "+raw)
			return
		}
	}

	resp, err := s.browse.Browse(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for name, result := range report.Checks {
		checks[name] = string(result)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": string(report.Status),
		"checks": checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func intQueryParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("invalid " + name + ": " + raw)
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client
// without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrRateLimited,
		domain.ErrInvalidRequest,
		domain.ErrVectorDimMismatch,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
