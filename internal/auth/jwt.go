package auth

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTParser verifies HMAC signed tokens issued by the auth service
type JWTParser struct {
	secret []byte
}

// NewJWTParser creates a parser for tokens signed with secret
func NewJWTParser(secret string) *JWTParser {
	return &JWTParser{secret: []byte(secret)}
}

// Parse validates the token and builds the caller identity from its claims
func (p *JWTParser) Parse(tokenString string) (Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrInvalidToken
	}

	userID, err := userIDFromClaims(claims)
	if err != nil {
		return Identity{}, err
	}

	identity := Identity{
		UserID:      userID,
		Token:       tokenString,
		Permissions: permissionsFromClaims(claims),
	}
	if raw, ok := claims["organizationId"].(string); ok && raw != "" {
		if orgID, err := uuid.Parse(raw); err == nil {
			identity.OrganizationID = &orgID
		}
	}
	return identity, nil
}

// userIDFromClaims supports the claim names used across our services
func userIDFromClaims(claims jwt.MapClaims) (uuid.UUID, error) {
	for _, key := range []string{"sub", "userId", "user_id"} {
		raw, ok := claims[key].(string)
		if !ok || raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, fmt.Errorf("%w: claim %s is not a uuid", ErrInvalidToken, key)
		}
		return id, nil
	}
	return uuid.Nil, fmt.Errorf("%w: no user id claim", ErrInvalidToken)
}

// permissionsFromClaims accepts either a JSON array or a space separated string
func permissionsFromClaims(claims jwt.MapClaims) []string {
	switch v := claims["permissions"].(type) {
	case []interface{}:
		perms := make([]string, 0, len(v))
		for _, p := range v {
			if s, ok := p.(string); ok && s != "" {
				perms = append(perms, s)
			}
		}
		return perms
	case string:
		return strings.Fields(v)
	default:
		return nil
	}
}
