package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	dErrors "ateneo/pkg/domain-errors"
	"ateneo/pkg/platform/httputil"
)

const adminKeyHeader = "X-Admin-Key"

// AdminKeyVerifier checks a candidate bypass key.
type AdminKeyVerifier interface {
	Verify(candidate string) bool
}

// AdminTokenValidator validates admin bearer tokens issued by /admin-auth.
type AdminTokenValidator interface {
	ValidateToken(tokenString string) (*AdminClaims, error)
}

// AdminClaims are the claims carried by an admin bearer token.
type AdminClaims struct {
	Email string
}

type contextKeyAdminEmail struct{}

// GetAdminEmail returns the email of the elevated profile behind a bearer
// token; empty when the request used the raw key.
func GetAdminEmail(ctx context.Context) string {
	email, _ := ctx.Value(contextKeyAdminEmail{}).(string)
	return email
}

// RequireAdmin accepts either the X-Admin-Key header or an admin bearer token.
func RequireAdmin(keys AdminKeyVerifier, tokens AdminTokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if key := r.Header.Get(adminKeyHeader); key != "" && keys != nil && keys.Verify(key) {
				next.ServeHTTP(w, r)
				return
			}

			if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && tokens != nil {
				claims, err := tokens.ValidateToken(token)
				if err == nil {
					ctx = context.WithValue(ctx, contextKeyAdminEmail{}, claims.Email)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
				logger.WarnContext(ctx, "admin token rejected",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
			} else {
				logger.WarnContext(ctx, "admin credentials missing or mismatched",
					"request_id", GetRequestID(ctx),
				)
			}
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "admin key or token required"))
		})
	}
}
