package health

import (
	"context"
	"sync"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure. The API keeps serving: the cache
	// and rate limiter fail open, and search degrades to live lookups.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	store     StorePinger
	embedding Checker
	index     Checker
}

// New creates a Service. embedding and index can be nil.
func New(store StorePinger, embedding, index Checker) *Service {
	return &Service{store: store, embedding: embedding, index: index}
}

// Check probes every component concurrently and aggregates the outcomes.
func (s *Service) Check(ctx context.Context) Report {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		checks = make(map[string]CheckResult)
	)

	record := func(name string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			checks[name] = CheckError
		} else {
			checks[name] = CheckOK
		}
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		record("redis", s.store.Ping(ctx))
	}()

	if s.embedding != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			record("embedding", s.embedding.HealthCheck(ctx))
		}()
	}

	if s.index != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			record("index", s.index.HealthCheck(ctx))
		}()
	}

	wg.Wait()

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}
