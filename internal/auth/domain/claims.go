// Package domain holds the session types shared by the verifiers and the HTTP layer.
package domain

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrMissingSession = errors.New("missing_session")
	ErrInvalidSession = errors.New("invalid_session")
	ErrNotConfigured  = errors.New("session_verifier_not_configured")
)

// Claims is what a verified session token says about its bearer.
type Claims struct {
	Subject string
	// Role is the role carried in the token, if any. Empty means the token does
	// not say and the directory must be asked.
	Role string
}

// HasRole compares case-insensitively; directory roles are lowercase, local roles uppercase.
func (c Claims) HasRole(role string) bool {
	return c.Role != "" && strings.EqualFold(strings.TrimSpace(c.Role), strings.TrimSpace(role))
}

// Verifier checks a raw session token and returns its claims.
type Verifier interface {
	Verify(ctx context.Context, raw string) (Claims, error)
}

// TokenClaims is the JSON shape both verifiers decode. The role may be top-level
// or nested under metadata / public_metadata depending on the session template.
type TokenClaims struct {
	Subject        string         `json:"sub"`
	Role           string         `json:"role"`
	Metadata       map[string]any `json:"metadata"`
	PublicMetadata map[string]any `json:"public_metadata"`
}

func (t TokenClaims) Claims() (Claims, error) {
	subject := strings.TrimSpace(t.Subject)
	if subject == "" {
		return Claims{}, ErrInvalidSession
	}
	role := strings.TrimSpace(t.Role)
	if role == "" {
		role = stringValue(t.Metadata, "role")
	}
	if role == "" {
		role = stringValue(t.PublicMetadata, "role")
	}
	return Claims{Subject: subject, Role: role}, nil
}

func stringValue(values map[string]any, key string) string {
	value, _ := values[key].(string)
	return strings.TrimSpace(value)
}
