package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/nebula-cloud/nebula/internal/config"
	dbRedis "github.com/nebula-cloud/nebula/internal/db/redis"
	"github.com/nebula-cloud/nebula/internal/domain"
	logpkg "github.com/nebula-cloud/nebula/internal/logger"
	"github.com/nebula-cloud/nebula/internal/metrics"
	"github.com/nebula-cloud/nebula/internal/repository/embcache"
	"github.com/nebula-cloud/nebula/internal/repository/ratelimit"
	"github.com/nebula-cloud/nebula/internal/repository/searchcache"
	chiTransport "github.com/nebula-cloud/nebula/internal/transport/chi"
	openaiEmb "github.com/nebula-cloud/nebula/internal/transport/openai"
	"github.com/nebula-cloud/nebula/internal/transport/pinecone"
	browseuc "github.com/nebula-cloud/nebula/internal/usecase/browse"
	graphuc "github.com/nebula-cloud/nebula/internal/usecase/graph"
	healthuc "github.com/nebula-cloud/nebula/internal/usecase/health"
	searchuc "github.com/nebula-cloud/nebula/internal/usecase/search"
	"github.com/nebula-cloud/nebula/internal/version"
)

// embeddingCacheTTL is longer than the response cache TTL: embeddings for a
// given text never go stale, only cold.
const embeddingCacheTTL = 24 * time.Hour

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting nebula API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("index_host", cfg.Index.Host),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create cache store", zap.Error(err))
	}
	defer store.Close()

	// The store backs only the cache and the rate limiter, both of which
	// fail open, so readiness here is a warning rather than a fatal.
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Warn("Cache store not ready, starting degraded", zap.Error(err))
	} else {
		logger.Info("Connected to cache store")
	}

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterCacheMetrics()

	// Embedder chain: OpenAI-compatible provider wrapped by the embedding
	// cache — composition root
	var embedder domain.Embedder = openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})
	embedder = embcache.New(embedder, store, embeddingCacheTTL, metrics.CacheTotal, logger)
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	index := pinecone.New(&pinecone.Config{
		Host:      cfg.Index.Host,
		APIKey:    cfg.Index.APIKey,
		Namespace: cfg.Index.Namespace,
		Timeout:   time.Duration(cfg.Index.RequestTimeoutSec) * time.Second,
		Logger:    logger,
	})

	responseCache := searchcache.New(store,
		time.Duration(cfg.Cache.TTLSec)*time.Second, metrics.CacheTotal, logger)
	limiter := ratelimit.New(store, cfg.RateLimit.Requests,
		time.Duration(cfg.RateLimit.WindowSec)*time.Second, metrics.RateLimitDecisionsTotal, logger)
	graphBuilder := graphuc.NewBuilder(cfg.Graph.SimilarityThreshold)

	searchSvc := searchuc.New(responseCache, embedder, index, graphBuilder, logger).
		WithTopK(cfg.Search.DefaultTopK, cfg.Search.MaxTopK).
		WithProbe(cfg.Embedding.Dimensions, cfg.Graph.ExploreTopK).
		WithUpstreamLimits(cfg.Search.MaxConcurrentUpstream,
			time.Duration(cfg.Search.UpstreamTimeoutSec)*time.Second)
	browseSvc := browseuc.New(index, logger).
		WithProbe(cfg.Embedding.Dimensions, cfg.Graph.ExploreTopK)
	healthSvc := healthuc.New(store, newEmbeddingHealthChecker(embedder), index)

	server := chiTransport.NewServer(searchSvc, browseSvc, healthSvc, limiter, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownTimeout := time.Duration(cfg.HTTP.ShutdownSec) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	// Let in-flight background cache writes land before the store closes.
	searchSvc.Drain(shutdownTimeout)

	logger.Info("Server stopped gracefully")
}

// embeddingHealthChecker wraps domain.Embedder to implement health.Checker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
