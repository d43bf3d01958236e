package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	Role  Role
	Limit int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, user *User) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	FindByExternalID(ctx context.Context, db *gorm.DB, externalID string) (*User, error)
	LockByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]User, error)
	Count(ctx context.Context, db *gorm.DB, role Role) (int64, error)
	UpdateProfile(ctx context.Context, db *gorm.DB, user *User) error
	Upsert(ctx context.Context, db *gorm.DB, user *User) (*User, error)
	DeleteWithDependents(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
