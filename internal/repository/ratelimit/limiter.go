// Package ratelimit is a fixed-window request limiter over the shared
// key-value store. It fails open: when the store is unreachable, requests
// are admitted so the limiter's backend can never take the service down.
package ratelimit

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/nebula-cloud/nebula/internal/domain"
)

var keyPrefix = domain.KeyPrefix + "rate_limit:"

// store is the consumer interface for the limiter (ISP). IncrExpire must
// execute the increment and the window expiry as one indivisible round trip.
type store interface {
	IncrExpire(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Limiter counts requests per client identity within a fixed window.
type Limiter struct {
	store     store
	limit     int64
	window    time.Duration
	decisions *prometheus.CounterVec
	logger    *zap.Logger
}

// New creates a limiter admitting up to limit requests per window.
// decisions is a counter vec with label "decision", passed explicitly.
func New(s store, limit int64, window time.Duration, decisions *prometheus.CounterVec, logger *zap.Logger) *Limiter {
	return &Limiter{
		store:     s,
		limit:     limit,
		window:    window,
		decisions: decisions,
		logger:    logger,
	}
}

// Admit reports whether a request from client may proceed. The counter is
// incremented before the check, so the first limit requests in a window are
// admitted and every later one is rejected until the window key expires.
func (l *Limiter) Admit(ctx context.Context, client string) bool {
	count, err := l.store.IncrExpire(ctx, keyPrefix+client, l.window)
	if err != nil {
		// Fail open: availability of the service must not depend on the
		// rate-limiting backend.
		l.logger.Warn("rate limiter store error, failing open",
			zap.String("client", client), zap.Error(err))
		l.incDecision("failed_open")
		return true
	}

	if count > l.limit {
		l.incDecision("rejected")
		return false
	}

	l.incDecision("admitted")
	return true
}

func (l *Limiter) incDecision(decision string) {
	if l.decisions != nil {
		l.decisions.WithLabelValues(decision).Inc()
	}
}
