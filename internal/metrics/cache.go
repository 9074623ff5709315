package metrics

import "github.com/prometheus/client_golang/prometheus"

// Cache, rate limiter, and vector index metrics.
var (
	// CacheTotal counts cache lookups per key family.
	// family: "search" / "embedding", result: "hit" / "miss".
	CacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nebula",
			Name:      "cache_total",
			Help:      "Cache hits and misses per key family",
		},
		[]string{"family", "result"},
	)

	// RateLimitDecisionsTotal counts limiter outcomes.
	// decision: "admitted" / "rejected" / "failed_open".
	RateLimitDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nebula",
			Name:      "rate_limit_decisions_total",
			Help:      "Rate limiter admission decisions",
		},
		[]string{"decision"},
	)

	IndexRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nebula",
			Name:      "index_requests_total",
			Help:      "Total number of vector index requests",
		},
		[]string{"op", "status"},
	)

	IndexRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nebula",
			Name:      "index_request_duration_seconds",
			Help:      "Vector index request duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"op"},
	)
)

var cacheMetricsRegistered bool

// RegisterCacheMetrics registers cache, limiter, and index metrics. Must be called once from main.
func RegisterCacheMetrics() {
	if cacheMetricsRegistered {
		return
	}
	prometheus.MustRegister(CacheTotal)
	prometheus.MustRegister(RateLimitDecisionsTotal)
	prometheus.MustRegister(IndexRequestsTotal)
	prometheus.MustRegister(IndexRequestDuration)
	cacheMetricsRegistered = true
}
