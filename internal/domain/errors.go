package domain

import "errors"

var (
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrInvalidRequest signals malformed input rejected before any upstream call.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrVectorDimMismatch signals vectors of different dimensionality in one batch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrVectorIndexError signals a vector index failure.
	ErrVectorIndexError = errors.New("vector index error")
)
