package jwttoken

import (
	authmw "provenant/pkg/platform/middleware/auth"
)

// JWTServiceAdapter satisfies authmw.TokenValidator so the middleware never
// sees jwt types.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*authmw.Claims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &authmw.Claims{Identity: claims.Subject, JTI: claims.ID}, nil
}
