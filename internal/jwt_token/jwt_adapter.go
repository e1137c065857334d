package jwttoken

import (
	"ateneo/internal/platform/middleware"
)

// JWTServiceAdapter lets RequireAdmin accept tokens minted by /admin-auth.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

// ValidateToken exposes only the operator email carried in the subject.
func (a *JWTServiceAdapter) ValidateToken(token string) (*middleware.AdminClaims, error) {
	claims, err := a.service.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	return &middleware.AdminClaims{Email: claims.Subject}, nil
}
