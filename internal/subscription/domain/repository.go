package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, subscription *Subscription) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Subscription, error)
	LatestByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*Subscription, error)
	ListByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]Subscription, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, subscription *Subscription) error
	CountByStatus(ctx context.Context, db *gorm.DB, status Status) (int64, error)
	CountByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (int64, error)
}
