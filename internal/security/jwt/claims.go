package jwtutil

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims carries the subject and the user's token version at issue time.
// A token whose tv no longer matches the stored version is revoked.
type AccessClaims struct {
	TokenVersion int `json:"tv"`
	jwt.RegisteredClaims
}

func newAccessClaims(userID, jti string, tokenVersion int, now time.Time, ttl time.Duration) AccessClaims {
	return AccessClaims{
		TokenVersion: tokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}
