package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type AppendRequest struct {
	UserID  snowflake.ID
	AdminID snowflake.ID
	Delta   int64
	Note    string
	Source  Source
}

type Service interface {
	Append(ctx context.Context, req AppendRequest) (Entry, error)
	// AppendTx appends inside a caller-owned transaction.
	AppendTx(ctx context.Context, tx *gorm.DB, req AppendRequest) (Entry, error)
	Balance(ctx context.Context, userID snowflake.ID) (int64, error)
	// History returns entries newest first. limit <= 0 returns all of them.
	History(ctx context.Context, userID snowflake.ID, limit int) ([]EntryView, error)
	// TotalDistributed sums positive deltas across all users.
	TotalDistributed(ctx context.Context) (int64, error)
}

var (
	ErrInvalidDelta  = errors.New("invalid_delta")
	ErrInvalidUser   = errors.New("invalid_user_id")
	ErrInvalidAdmin  = errors.New("invalid_admin_id")
	ErrUserNotFound  = errors.New("user_not_found")
	ErrAdminNotFound = errors.New("admin_not_found")
)
