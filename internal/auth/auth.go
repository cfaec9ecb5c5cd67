// Package auth issues and verifies the admin-session JWT that gates
// governance and approval mutation routes. The shared admin login
// issues a real, verifiable token rather than acting as a bare shared
// secret.
package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/codeready-toolchain/aegis/internal/config"
)

// Issuer mints and verifies admin session tokens.
type Issuer struct {
	secret   []byte
	ttl      time.Duration
	username string
	password string
}

// New builds an Issuer from AuthConfig.
func New(cfg config.AuthConfig) *Issuer {
	return &Issuer{
		secret:   []byte(cfg.JWTSecret),
		ttl:      cfg.TokenTTL,
		username: cfg.AdminUsername,
		password: cfg.AdminPassword,
	}
}

// Login verifies the shared admin credentials and, on success, issues a
// signed token.
func (i *Issuer) Login(username, password string) (string, error) {
	if subtle.ConstantTimeCompare([]byte(username), []byte(i.username)) != 1 ||
		subtle.ConstantTimeCompare([]byte(password), []byte(i.password)) != 1 {
		return "", fmt.Errorf("invalid credentials")
	}

	tok, err := jwt.NewBuilder().
		Subject(i.username).
		IssuedAt(time.Now()).
		Expiration(time.Now().Add(i.ttl)).
		Build()
	if err != nil {
		return "", fmt.Errorf("failed to build token: %w", err)
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256(), i.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return string(signed), nil
}

// Verify parses and validates a bearer token.
func (i *Issuer) Verify(ctx context.Context, token string) error {
	_, err := jwt.Parse([]byte(token),
		jwt.WithKey(jwa.HS256(), i.secret),
		jwt.WithContext(ctx),
		jwt.WithValidate(true),
	)
	if err != nil {
		return fmt.Errorf("invalid token: %w", err)
	}
	return nil
}
