// Package ratelimit bounds how often a client may hit a sensitive endpoint
// using a sliding window per key. The in-memory limiter serves a single
// instance; the Redis limiter shares the window across instances.
package ratelimit

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	dErrors "ateneo/pkg/domain-errors"
	"ateneo/pkg/platform/httputil"
	"ateneo/pkg/requestcontext"
)

// Result describes one Allow decision.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the whole number of seconds until the window frees a slot.
func (r Result) RetryAfter(now time.Time) int {
	secs := int(r.ResetAt.Sub(now).Seconds())
	if secs < 1 {
		return 1
	}
	return secs
}

// Limiter admits or rejects one request for key.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// KeyFunc extracts the limiting key from a request.
type KeyFunc func(r *http.Request) string

// ByClientIP keys on the client IP recorded by the metadata middleware.
func ByClientIP(prefix string) KeyFunc {
	return func(r *http.Request) string {
		return prefix + requestcontext.ClientIP(r.Context())
	}
}

// Middleware rejects requests over the limit with 429. Limiter failures are
// logged and the request is let through.
func Middleware(limiter Limiter, key KeyFunc, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			result, err := limiter.Allow(ctx, key(r))
			if err != nil {
				logger.ErrorContext(ctx, "rate limit check failed",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
			if !result.Allowed {
				logger.WarnContext(ctx, "rate limit exceeded",
					"path", r.URL.Path,
					"request_id", requestcontext.RequestID(ctx),
				)
				w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter(time.Now())))
				httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many attempts, try again later"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
