package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository has no update or delete path: entries are append-only.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *Entry) error
	SumByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (int64, error)
	ListByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID, limit int) ([]EntryView, error)
	SumPositive(ctx context.Context, db *gorm.DB) (int64, error)
}
