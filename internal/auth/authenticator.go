package auth

import (
	"context"

	"github.com/google/uuid"
)

// Authenticator resolves a bearer token to the calling identity
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (Identity, error)
}

// TokenIntrospector asks the auth service who owns a token
type TokenIntrospector interface {
	UserIDFromToken(ctx context.Context, token string) (uuid.UUID, bool)
}

// Authenticate verifies the token locally
func (p *JWTParser) Authenticate(ctx context.Context, token string) (Identity, error) {
	return p.Parse(token)
}

// Introspector authenticates by asking the auth service, for deployments without a shared secret
type Introspector struct {
	client TokenIntrospector
}

func NewIntrospector(client TokenIntrospector) *Introspector {
	return &Introspector{client: client}
}

func (i *Introspector) Authenticate(ctx context.Context, token string) (Identity, error) {
	userID, ok := i.client.UserIDFromToken(ctx, token)
	if !ok || userID == uuid.Nil {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: userID, Token: token, Introspected: true}, nil
}

// NewAuthenticator verifies JWTs when a secret is configured and falls back to introspection
func NewAuthenticator(secret string, introspector TokenIntrospector) Authenticator {
	if secret != "" {
		return NewJWTParser(secret)
	}
	return NewIntrospector(introspector)
}
