package testutil

import (
	"net/http"
	"strings"
)

// WithEmail sets the "email" header the participant routes use to identify the caller.
func WithEmail(req *http.Request, email string) *http.Request {
	req.Header.Set("email", strings.ToLower(email))
	return req
}

// WithAdminKey sets the X-Admin-Key header accepted by the admin routes.
func WithAdminKey(req *http.Request, key string) *http.Request {
	req.Header.Set("X-Admin-Key", key)
	return req
}

// WithBearer sets an Authorization bearer token.
func WithBearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}
