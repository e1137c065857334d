// Package requesttime pins one "now" per request so the timestamps written by
// a draw, a debate or a webhook grant agree with each other.
package requesttime

import (
	"net/http"
	"time"

	"ateneo/pkg/requestcontext"
)

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
