package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AdminClaims is the JWT payload of the single-operator admin session.
type AdminClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// NewAdminClaims builds claims for the admin with the given session lifetime.
func NewAdminClaims(email string, ttl time.Duration) AdminClaims {
	now := time.Now().UTC()
	return AdminClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}
