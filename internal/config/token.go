package config

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SignToken issues a bearer token against JWTSecret for an embedding HTTP
// surface to hand back to callers. The engine itself never verifies these
// over a socket — it only owns the secret and the narrow sign/verify
// contract an external surface relies on.
func (c *Config) SignToken(subject string, ttl time.Duration) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(c.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("config: sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken checks a bearer token's signature and expiry against
// JWTSecret, returning the subject it was issued for.
func (c *Config) VerifyToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Method)
		}
		return []byte(c.JWTSecret), nil
	})
	if err != nil {
		return "", fmt.Errorf("config: verify token: %w", err)
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("config: invalid token claims")
	}
	return claims.Subject, nil
}
