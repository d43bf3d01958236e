package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	ledgerdomain "github.com/smallbiznis/creditdesk/internal/ledger/domain"
	paymentdomain "github.com/smallbiznis/creditdesk/internal/payment/domain"
	"gorm.io/gorm"
)

type CreateRequest struct {
	UserID    snowflake.ID
	Status    Status
	ExpiresAt *time.Time
}

type ActivateRequest struct {
	UserID          snowflake.ID
	AdminExternalID string
	InitialCredits  int64
	PaymentAmount   *decimal.Decimal
	PaymentMonth    string
	ExpiresAt       *time.Time
}

type ActivateResult struct {
	Subscription Subscription          `json:"subscription"`
	CreditEntry  *ledgerdomain.Entry    `json:"credit_entry,omitempty"`
	Payment      *paymentdomain.Payment `json:"payment,omitempty"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (Subscription, error)
	CreateTx(ctx context.Context, tx *gorm.DB, req CreateRequest) (Subscription, error)
	Latest(ctx context.Context, userID snowflake.ID) (*Subscription, error)
	ListByUser(ctx context.Context, userID snowflake.ID) ([]Subscription, error)
	SetStatus(ctx context.Context, subscriptionID snowflake.ID, status Status) (Subscription, error)
	SetStatusTx(ctx context.Context, tx *gorm.DB, subscriptionID snowflake.ID, status Status) (Subscription, error)
	Activate(ctx context.Context, req ActivateRequest) (ActivateResult, error)
	CountActive(ctx context.Context) (int64, error)
}

var (
	ErrInvalidUser         = errors.New("invalid_user_id")
	ErrInvalidSubscription = errors.New("invalid_subscription_id")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrInvalidCredits      = errors.New("invalid_initial_credits")
	ErrAlreadyActive       = errors.New("subscription_already_active")
	ErrNotFound            = errors.New("subscription_not_found")
	ErrUserNotFound        = errors.New("user_not_found")
	ErrAdminNotFound       = errors.New("admin_not_found")
)
