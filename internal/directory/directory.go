// Package directory talks to the external identity directory that owns user accounts.
package directory

import (
	"context"
	"errors"
	"strings"
)

//go:generate mockgen -destination=mocks/directory_mock.go -package=mocks github.com/smallbiznis/creditdesk/internal/directory Directory

// Directory is the read side of the identity directory.
type Directory interface {
	ListUsers(ctx context.Context, limit, offset int) ([]User, error)
	GetUser(ctx context.Context, externalID string) (User, error)
}

var (
	ErrUserNotFound     = errors.New("directory_user_not_found")
	ErrNotConfigured    = errors.New("directory_not_configured")
	ErrInvalidSignature = errors.New("invalid_webhook_signature")
	ErrInvalidPayload   = errors.New("invalid_webhook_payload")
)

type EmailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

// User is an account as the directory reports it.
type User struct {
	ID             string         `json:"id"`
	FirstName      *string        `json:"first_name"`
	LastName       *string        `json:"last_name"`
	EmailAddresses []EmailAddress `json:"email_addresses"`
	PublicMetadata map[string]any `json:"public_metadata"`
}

// PrimaryEmail returns the first listed address, or "".
func (u User) PrimaryEmail() string {
	if len(u.EmailAddresses) == 0 {
		return ""
	}
	return strings.TrimSpace(u.EmailAddresses[0].EmailAddress)
}

// DisplayName joins the non-empty name parts, falling back to placeholder.
func (u User) DisplayName(placeholder string) string {
	parts := make([]string, 0, 2)
	for _, part := range []*string{u.FirstName, u.LastName} {
		if part == nil {
			continue
		}
		if trimmed := strings.TrimSpace(*part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	if len(parts) == 0 {
		return placeholder
	}
	return strings.Join(parts, " ")
}

// HasRole reports whether public_metadata.role equals role exactly.
func (u User) HasRole(role string) bool {
	value, ok := u.PublicMetadata["role"].(string)
	return ok && value == role
}
