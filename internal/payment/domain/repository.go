package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	ListByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID, limit int) ([]Payment, error)
	LatestByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*Payment, error)
	Recent(ctx context.Context, db *gorm.DB, limit int) ([]PaymentView, error)
	RevenueByMonth(ctx context.Context, db *gorm.DB) ([]MonthlyRevenue, error)
	Sum(ctx context.Context, db *gorm.DB) (decimal.Decimal, error)
}
