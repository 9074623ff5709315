package ratelimit

import (
	"context"
	"sync"
	"time"
)

// mockCounterStore is an in-memory IncrExpire with a switchable failure mode.
type mockCounterStore struct {
	mu     sync.Mutex
	counts map[string]int64
	ttls   map[string]time.Duration
	err    error
}

func newMockCounterStore() *mockCounterStore {
	return &mockCounterStore{
		counts: make(map[string]int64),
		ttls:   make(map[string]time.Duration),
	}
}

func (m *mockCounterStore) IncrExpire(_ context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.counts[key]++
	if _, armed := m.ttls[key]; !armed {
		m.ttls[key] = ttl
	}
	return m.counts[key], nil
}
