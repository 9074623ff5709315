// Package cachekey derives deterministic cache keys from queries and vectors.
package cachekey

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// vectorPrecision is the number of decimal places kept when deriving a key
// from a vector. Rounding absorbs float jitter across repeated inference runs.
const vectorPrecision = 6

// Text derives a key from a raw query string: lowercase, trim surrounding
// whitespace, SHA-256, hex. "Sad Robots", "  sad robots  " and "SAD ROBOTS"
// all resolve to the same key.
func Text(namespace, query string) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	sum := sha256.Sum256([]byte(normalized))
	return namespace + hex.EncodeToString(sum[:])
}

// Vector derives a key from an embedding vector. Components are rounded to a
// fixed precision and serialized in a fixed comma-separated format before
// hashing, so equal-up-to-jitter vectors share a key.
func Vector(namespace string, vec []float32) string {
	var b strings.Builder
	b.Grow(len(vec) * 10)
	for i, f := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(round(float64(f)), 'f', vectorPrecision, 64))
	}
	sum := sha256.Sum256([]byte(b.String()))
	return namespace + hex.EncodeToString(sum[:])
}

func round(f float64) float64 {
	// FormatFloat with a fixed precision already rounds; this only pins
	// negative zero so -0.0000001 and 0.0 serialize identically.
	if f > -0.0000005 && f < 0 {
		return 0
	}
	return f
}
