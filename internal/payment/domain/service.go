package domain

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var monthPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

// ValidMonth reports whether month has the YYYY-MM shape.
func ValidMonth(month string) bool {
	return monthPattern.MatchString(month)
}

type CreateRequest struct {
	UserID    snowflake.ID
	AmountTnd decimal.Decimal
	Month     string
	Note      string
	PaidAt    *time.Time
	Source    Source
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (Payment, error)
	CreateTx(ctx context.Context, tx *gorm.DB, req CreateRequest) (Payment, error)
	ListByUser(ctx context.Context, userID snowflake.ID, limit int) ([]Payment, error)
	Recent(ctx context.Context, limit int) ([]PaymentView, error)
	RevenueByMonth(ctx context.Context) ([]MonthlyRevenue, error)
	TotalRevenue(ctx context.Context) (decimal.Decimal, error)
}

var (
	ErrInvalidUser   = errors.New("invalid_user_id")
	ErrInvalidAmount = errors.New("invalid_amount_tnd")
	ErrInvalidMonth  = errors.New("invalid_month")
	ErrUserNotFound  = errors.New("user_not_found")
)
