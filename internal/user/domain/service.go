package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	ledgerdomain "github.com/smallbiznis/creditdesk/internal/ledger/domain"
	paymentdomain "github.com/smallbiznis/creditdesk/internal/payment/domain"
	subscriptiondomain "github.com/smallbiznis/creditdesk/internal/subscription/domain"
)

// ManualExternalIDPrefix marks accounts created by an admin rather than the directory.
const ManualExternalIDPrefix = "manual_"

type CreateUserRequest struct {
	AdminExternalID    string
	ExternalID         string
	Email              string
	FullName           string
	InitialCredits     int64
	SubscriptionStatus string
	PaymentAmount      *decimal.Decimal
	PaymentMonth       string
	ExpiresAt          *time.Time
}

type UpdateUserRequest struct {
	ID                 string
	FullName           *string
	Email              *string
	SubscriptionStatus *string
}

type AdjustCreditRequest struct {
	UserID          string
	AdminExternalID string
	Delta           int64
	Note            string
}

type CreditAdjustment struct {
	Entry   ledgerdomain.Entry `json:"entry"`
	Balance int64              `json:"balance"`
}

type RecordPaymentRequest struct {
	UserID          string
	AdminExternalID string
	AmountTnd       decimal.Decimal
	Month           string
	Note            string
	PaidAt          *time.Time
}

// Summary is one row of the admin user list.
type Summary struct {
	User
	LatestSubscription *subscriptiondomain.Subscription `json:"latest_subscription"`
	LatestPayment      *paymentdomain.Payment           `json:"latest_payment"`
	Balance            int64                            `json:"balance"`
}

// Detail is the full account view of one user.
type Detail struct {
	User          User                              `json:"user"`
	Subscriptions []subscriptiondomain.Subscription `json:"subscriptions"`
	Credits       []ledgerdomain.EntryView          `json:"credits"`
	Payments      []paymentdomain.Payment           `json:"payments"`
	Balance       int64                             `json:"balance"`
}

// LatestSubscription returns the current subscription, if any.
func (d Detail) LatestSubscription() *subscriptiondomain.Subscription {
	if len(d.Subscriptions) == 0 {
		return nil
	}
	return &d.Subscriptions[0]
}

type Service interface {
	List(ctx context.Context) ([]Summary, error)
	Get(ctx context.Context, id string) (Detail, error)
	GetByExternalID(ctx context.Context, externalID string) (User, error)
	RecentUsers(ctx context.Context, limit int) ([]Summary, error)
	CountUsers(ctx context.Context) (int64, error)
	Create(ctx context.Context, req CreateUserRequest) (Detail, error)
	Update(ctx context.Context, req UpdateUserRequest) (Detail, error)
	AdjustCredit(ctx context.Context, req AdjustCreditRequest) (CreditAdjustment, error)
	RecordPayment(ctx context.Context, req RecordPaymentRequest) (paymentdomain.Payment, error)
	ParseID(value string) (snowflake.ID, error)
}

var (
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidName         = errors.New("invalid_full_name")
	ErrInvalidEmail        = errors.New("invalid_email")
	ErrInvalidExternalID   = errors.New("invalid_external_id")
	ErrInvalidCredits      = errors.New("invalid_initial_credits")
	ErrNotFound            = errors.New("user_not_found")
	ErrAdminNotFound       = errors.New("admin_not_found")
	ErrDuplicateExternalID = errors.New("duplicate_external_id")
)
