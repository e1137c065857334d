// Package shared holds request helpers used by every participant handler.
package shared

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ateneo/internal/domain"
	dErrors "ateneo/pkg/domain-errors"
	"ateneo/pkg/platform/httputil"
)

// RoleParam reads the {role} path segment.
func RoleParam(r *http.Request) (domain.Role, error) {
	role, ok := domain.ParseRole(chi.URLParam(r, "role"))
	if !ok {
		return "", dErrors.New(dErrors.CodeNotFound, "unknown role")
	}
	return role, nil
}

// CallerEmail reads and validates the email header that identifies the caller
// on participant routes.
func CallerEmail(r *http.Request) (string, error) {
	addr := httputil.EmailHeader(r)
	if addr == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "email header is required")
	}
	return domain.ValidateEmail(addr)
}
