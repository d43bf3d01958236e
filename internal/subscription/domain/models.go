// Package domain contains the subscription lifecycle model.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Status is a subscription lifecycle state. Admins may overwrite any state except
// PENDING_ACTIVATION, which is only ever written when a row is seeded.
type Status string

const (
	StatusPendingActivation Status = "PENDING_ACTIVATION"
	StatusActive            Status = "ACTIVE"
	StatusSuspended         Status = "SUSPENDED"
	StatusExpired           Status = "EXPIRED"
)

// Subscription is one lifecycle row. The current subscription of a user is the most recent row.
type Subscription struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID    snowflake.ID `gorm:"not null;index" json:"user_id"`
	Status    Status       `gorm:"type:varchar(32);not null;index" json:"status"`
	StartedAt time.Time    `gorm:"not null" json:"started_at"`
	ExpiresAt *time.Time   `json:"expires_at,omitempty"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null" json:"updated_at"`
}

func (Subscription) TableName() string { return "subscriptions" }

// ParseStatus normalizes value into any known status.
func ParseStatus(value string) (Status, error) {
	switch status := Status(strings.ToUpper(strings.TrimSpace(value))); status {
	case StatusPendingActivation, StatusActive, StatusSuspended, StatusExpired:
		return status, nil
	default:
		return "", ErrInvalidStatus
	}
}

// ParseOverwriteStatus accepts only the states an admin may set directly.
func ParseOverwriteStatus(value string) (Status, error) {
	status, err := ParseStatus(value)
	if err != nil {
		return "", err
	}
	if status == StatusPendingActivation {
		return "", ErrInvalidStatus
	}
	return status, nil
}
