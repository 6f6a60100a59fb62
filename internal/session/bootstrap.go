// Package session issues and verifies anonymous identities. Every browser that opens
// the dashboard gets one before any store subscription is started.
package session

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

const issuer = "hermes"

var (
	ErrEmptySecret  = errors.New("session secret is empty")
	ErrInvalidToken = errors.New("invalid session token")
)

// Identity is an anonymous user.
type Identity struct {
	ID        string    `json:"id"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Bootstrap signs and verifies HS256 session tokens.
type Bootstrap struct {
	secret []byte
	ttl    time.Duration
	log    *slog.Logger
	now    func() time.Time
}

// NewBootstrap returns a Bootstrap that signs tokens with secret and lets them live for ttl.
func NewBootstrap(secret []byte, ttl time.Duration, log *slog.Logger) (*Bootstrap, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}

	return &Bootstrap{secret: secret, ttl: ttl, log: log, now: time.Now}, nil
}

// RandomSecret returns 32 random bytes for deployments that do not configure a secret.
// Tokens signed with it do not survive a restart.
func RandomSecret() ([]byte, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate session secret: %w", err)
	}
	return secret, nil
}

// EnsureIdentity returns the identity carried by token when it is still valid, together
// with the same token. Otherwise it mints a new anonymous identity and its token.
func (b *Bootstrap) EnsureIdentity(ctx context.Context, token string) (Identity, string, error) {
	if token != "" {
		identity, err := b.Verify(token)
		if err == nil {
			return identity, token, nil
		}
		b.log.DebugContext(ctx, "Discarding session token", "error", err)
	}

	now := b.now()
	identity := Identity{
		ID:        ulid.Make().String(),
		IssuedAt:  now.Truncate(time.Second),
		ExpiresAt: now.Add(b.ttl).Truncate(time.Second),
	}

	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   identity.ID,
		IssuedAt:  jwt.NewNumericDate(identity.IssuedAt),
		ExpiresAt: jwt.NewNumericDate(identity.ExpiresAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
	if err != nil {
		return Identity{}, "", fmt.Errorf("failed to sign session token: %w", err)
	}

	b.log.InfoContext(ctx, "Anonymous identity issued", "identity", identity.ID)

	return identity, signed, nil
}

// Verify checks the signature, issuer and expiry of token and returns its identity.
func (b *Bootstrap) Verify(token string) (Identity, error) {
	claims := &jwt.RegisteredClaims{}

	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return b.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(b.now),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if _, err = ulid.ParseStrict(claims.Subject); err != nil {
		return Identity{}, fmt.Errorf("%w: subject: %w", ErrInvalidToken, err)
	}

	identity := Identity{ID: claims.Subject}
	if claims.IssuedAt != nil {
		identity.IssuedAt = claims.IssuedAt.Time
	}
	identity.ExpiresAt = claims.ExpiresAt.Time

	return identity, nil
}
