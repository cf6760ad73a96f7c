package auth

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Permissions checked by the comment endpoints
const (
	PermCommentCRUD = "COMMENT_CRUD"
	PermCommentRead = "COMMENT_READ"
)

var (
	ErrMissingToken = errors.New("authorization header is required")
	ErrMalformed    = errors.New("invalid authorization header format")
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Identity is the authenticated caller of a request
type Identity struct {
	UserID         uuid.UUID
	OrganizationID *uuid.UUID
	Token          string
	Permissions    []string
	// Introspected is set when the user id came from the auth service
	// instead of verified token claims; such identities carry no permissions.
	Introspected bool
}

// HasAny reports whether the identity holds one of perms.
// Introspected identities are trusted by the downstream services instead.
func (i Identity) HasAny(perms ...string) bool {
	if i.Introspected {
		return true
	}
	for _, held := range i.Permissions {
		for _, want := range perms {
			if held == want {
				return true
			}
		}
	}
	return false
}

// ParseBearer extracts the token from an "Authorization: Bearer <token>" header
func ParseBearer(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", ErrMalformed
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", ErrMalformed
	}
	return token, nil
}
