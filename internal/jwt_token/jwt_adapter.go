package jwttoken

import (
	authmw "kitmatch/pkg/platform/middleware/auth"
)

func ToMiddlewareClaims(claims *Claims) *authmw.OperatorClaims {
	return &authmw.OperatorClaims{
		OperatorID: claims.OperatorID,
		Username:   claims.Username,
		Role:       claims.Role,
		PostID:     claims.PostID,
	}
}

// JWTServiceAdapter lets the operator middleware validate tokens without
// depending on this package.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*authmw.OperatorClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(claims), nil
}
