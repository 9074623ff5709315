package db

import (
	"context"
	"time"
)

// Store is the key-value store facade shared by the cache and rate limiter.
type Store interface {
	Pinger
	KVStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks store connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides the key-value operations the caching layer depends on.
// IncrExpire submits INCR and EXPIRE NX as one pipelined unit so the counter
// and its window expiry cannot be separated by a crash in between.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	IncrExpire(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Del(ctx context.Context, key string) error
}
