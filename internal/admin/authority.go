// Package admin holds the bypass authority and the admin-facing views of the
// marketplace.
package admin

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

// Authority verifies candidate bypass keys against the configured secret.
// It is stateless and safe for concurrent use.
type Authority struct {
	secret []byte
	hash   []byte
}

type AuthorityOption func(*Authority)

// WithKeyHash verifies candidates against a bcrypt hash instead of the raw secret.
func WithKeyHash(hash string) AuthorityOption {
	return func(a *Authority) {
		if hash != "" {
			a.hash = []byte(hash)
		}
	}
}

func NewAuthority(secret string, opts ...AuthorityOption) *Authority {
	a := &Authority{secret: []byte(secret)}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Verify reports whether candidate matches the configured secret. With no
// secret configured it always returns false.
func (a *Authority) Verify(candidate string) bool {
	if a == nil || candidate == "" {
		return false
	}
	if len(a.hash) > 0 {
		return bcrypt.CompareHashAndPassword(a.hash, []byte(candidate)) == nil
	}
	if len(a.secret) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(a.secret, []byte(candidate)) == 1
}

// Verifier is anything that can check a key.
type Verifier interface {
	Verify(candidate string) bool
}

type anyOf []Verifier

// AnyOf accepts a key when any of the verifiers does.
func AnyOf(verifiers ...Verifier) Verifier {
	return anyOf(verifiers)
}

func (v anyOf) Verify(candidate string) bool {
	ok := false
	for _, verifier := range v {
		// evaluate every verifier so the timing does not reveal which one matched
		if verifier != nil && verifier.Verify(candidate) {
			ok = true
		}
	}
	return ok
}
