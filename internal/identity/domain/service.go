package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/creditdesk/internal/directory"
)

// SyncResult counts one reconciliation run. Synced is the number of directory
// records seen; Created counts users that received their first subscription.
type SyncResult struct {
	Synced  int `json:"synced"`
	Created int `json:"created"`
	Updated int `json:"updated"`
}

type Service interface {
	// Sync pulls every directory account into the local users table.
	Sync(ctx context.Context) (SyncResult, error)
	// HandleEvent applies one verified directory webhook event.
	HandleEvent(ctx context.Context, event directory.Event) error
}

var ErrInvalidExternalID = errors.New("invalid_external_id")
