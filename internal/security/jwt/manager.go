// Package jwtutil signs and verifies HS256 access tokens.
package jwtutil

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/5w1tchy/book-reviews/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

type Manager struct {
	secret    []byte
	clockSkew time.Duration
	ttl       time.Duration
	now       func() time.Time
}

func New(cfg config.AuthConfig) *Manager {
	return &Manager{
		secret:    []byte(cfg.JWTSecret),
		clockSkew: cfg.ClockSkew,
		ttl:       cfg.AccessTTL,
		now:       time.Now,
	}
}

// TTL is the lifetime of tokens minted by SignAccess.
func (m *Manager) TTL() time.Duration { return m.ttl }

// SignAccess returns (tokenString, jti).
func (m *Manager) SignAccess(userID string, tokenVersion int) (string, string, error) {
	jti, err := randJTI()
	if err != nil {
		return "", "", err
	}
	claims := newAccessClaims(userID, jti, tokenVersion, m.now(), m.ttl)
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	return s, jti, err
}

// ParseAccess verifies the HS256 signature and expiry (with clock-skew leeway).
func (m *Manager) ParseAccess(tokenStr string) (*AccessClaims, error) {
	parser := jwt.NewParser(
		jwt.WithLeeway(m.clockSkew),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	token, err := parser.ParseWithClaims(tokenStr, &AccessClaims{}, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func randJTI() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}
