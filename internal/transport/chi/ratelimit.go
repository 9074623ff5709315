package chi

import (
	"context"
	"net"
	"net/http"
	"strings"
)

// Admitter is the per-client admission gate.
type Admitter interface {
	Admit(ctx context.Context, client string) bool
}

// RateLimitMiddleware returns a middleware that gates requests per client
// address. If limiter is nil, rate limiting is disabled (pass-through).
func RateLimitMiddleware(limiter Admitter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Admit(r.Context(), clientAddr(r)) {
				writeError(w, http.StatusTooManyRequests, codeRateLimited, "rate limit exceeded, try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientAddr identifies the caller for rate limiting. Behind a proxy the
// first X-Forwarded-For hop is the client; otherwise the socket address.
func clientAddr(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, found := strings.Cut(fwd, ","); found || first != "" {
			return strings.TrimSpace(first)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
