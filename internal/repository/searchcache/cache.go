// Package searchcache is the fail-open response cache. The backing store is a
// pure performance optimization: when it is unreachable every Get reads as a
// miss and every Set is a silent no-op, observable only in latency and logs.
package searchcache

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/nebula-cloud/nebula/internal/cachekey"
	"github.com/nebula-cloud/nebula/internal/db"
	"github.com/nebula-cloud/nebula/internal/domain"
)

var (
	queryKeyPrefix = domain.KeyPrefix + "search_cache:"
	probeKeyPrefix = domain.KeyPrefix + "graph_cache:"
)

// store is the consumer interface for the response cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Cache stores assembled search responses in a key-value store.
type Cache struct {
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a response cache with the given default TTL.
// cacheTotal is a counter vec with labels (family, result), passed explicitly.
func New(s store, ttl time.Duration, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *Cache {
	return &Cache{
		store:      s,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// QueryKey derives the cache key for a raw query string.
func (c *Cache) QueryKey(query string) string {
	return cachekey.Text(queryKeyPrefix, query)
}

// ProbeKey derives the cache key for a probe-vector graph lookup.
func (c *Cache) ProbeKey(vec []float32) string {
	return cachekey.Vector(probeKeyPrefix, vec)
}

// Get returns the cached response for key. Store errors and undecodable
// payloads both read as a miss; neither is ever surfaced to the caller.
func (c *Cache) Get(ctx context.Context, key string) (*domain.SearchResponse, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("cache get failed, treating as miss",
				zap.String("key", key), zap.Error(err))
		}
		c.incCache("miss")
		return nil, false
	}

	var resp domain.SearchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		c.logger.Warn("cached response undecodable, treating as miss",
			zap.String("key", key), zap.Error(err))
		c.incCache("miss")
		return nil, false
	}

	c.incCache("hit")
	return &resp, true
}

// Set stores a response under key with the default TTL.
// A store failure is logged and dropped; the next request recomputes.
func (c *Cache) Set(ctx context.Context, key string, resp *domain.SearchResponse) {
	c.SetWithTTL(ctx, key, resp, c.ttl)
}

// SetWithTTL stores a response with an explicit TTL.
func (c *Cache) SetWithTTL(ctx context.Context, key string, resp *domain.SearchResponse, ttl time.Duration) {
	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.Warn("failed to encode response for cache", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, ttl); err != nil {
		c.logger.Warn("cache set failed, skipping write",
			zap.String("key", key), zap.Error(err))
	}
}

func (c *Cache) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues("search", result).Inc()
	}
}
