// Package token implements the bearer-token scheme the HTTP layer uses to
// identify callers. The token subject is the caller credential; possession of
// a validly signed token stands in for a wallet signature.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"landregistry/pkg/domain"
)

// JWT validates and issues HS256 tokens carrying the caller credential.
type JWT struct {
	signingKey []byte
	ttl        time.Duration
}

func NewJWT(signingKey string, ttl time.Duration) *JWT {
	return &JWT{signingKey: []byte(signingKey), ttl: ttl}
}

// ValidateToken parses a bearer token and returns the credential it was
// issued for.
func (j *JWT) ValidateToken(tokenString string) (domain.Credential, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return j.signingKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", errors.New("token missing subject")
	}
	return domain.ParseCredential(claims.Subject)
}

// IssueToken signs a token for the given credential. Used by tooling and
// tests; production deployments front this with their own wallet-based
// authentication.
func (j *JWT) IssueToken(cred domain.Credential, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   cred.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.signingKey)
}
