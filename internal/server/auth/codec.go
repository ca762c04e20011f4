// Package auth issues and checks bearer tokens and resolves the caller's
// identity from them.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authmatrix/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// TokenCodec signs and verifies HS256 tokens whose subject is the user's
// email. It holds no per-token state.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenCodec returns a codec signing with secret. Tokens live for ttl.
func NewTokenCodec(secret []byte, ttl time.Duration) *TokenCodec {
	return &TokenCodec{secret: secret, ttl: ttl, now: time.Now}
}

// WithClock replaces the time source. Used in tests.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	c.now = now
	return c
}

// TTL is how long an issued token stays valid.
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// Issue returns a signed token for email, expiring ttl from now.
// JWT dates have second precision, so now is truncated to the second first;
// the token is then valid for exactly ttl from its iat claim.
func (c *TokenCodec) Issue(email string) (string, error) {
	now := c.now().Truncate(time.Second)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
	})

	tokenString, err := token.SignedString(c.secret)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseSubject verifies token and returns its subject. The error wraps one of
// common.ErrTokenExpired, common.ErrTokenBadSignature or
// common.ErrTokenMalformed.
func (c *TokenCodec) ParseSubject(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", classify(err)
	}

	if !token.Valid {
		return "", common.ErrTokenMalformed
	}

	return claims.Subject, nil
}

// Validate reports whether token is intact, unexpired and names expected.
func (c *TokenCodec) Validate(tokenString, expected string) bool {
	subject, err := c.ParseSubject(tokenString)
	if err != nil {
		return false
	}
	return subject == expected
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %w", common.ErrTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %w", common.ErrTokenBadSignature, err)
	default:
		return fmt.Errorf("%w: %w", common.ErrTokenMalformed, err)
	}
}
