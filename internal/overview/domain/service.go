package domain

import (
	"context"
	"errors"

	ledgerdomain "github.com/smallbiznis/creditdesk/internal/ledger/domain"
	paymentdomain "github.com/smallbiznis/creditdesk/internal/payment/domain"
	subscriptiondomain "github.com/smallbiznis/creditdesk/internal/subscription/domain"
	userdomain "github.com/smallbiznis/creditdesk/internal/user/domain"
)

const (
	RecentUsersLimit       = 5
	RecentPaymentsLimit    = 10
	DashboardCreditsLimit  = 5
	DashboardPaymentsLimit = 3
)

type AdminOverview struct {
	TotalUsers              int64                          `json:"total_users"`
	ActiveSubscriptions     int64                          `json:"active_subscriptions"`
	TotalRevenue            paymentdomain.Amount           `json:"total_revenue"`
	TotalCreditsDistributed int64                          `json:"total_credits_distributed"`
	RevenueByMonth          []paymentdomain.MonthlyRevenue `json:"revenue_by_month"`
	RecentUsers             []userdomain.Summary           `json:"recent_users"`
}

type PaymentsOverview struct {
	RevenueByMonth []paymentdomain.MonthlyRevenue `json:"revenue_by_month"`
	RecentPayments []paymentdomain.PaymentView    `json:"recent_payments"`
}

// Dashboard is what a signed-in user sees about their own account.
type Dashboard struct {
	User           userdomain.User                  `json:"user"`
	Subscription   *subscriptiondomain.Subscription `json:"subscription"`
	Balance        int64                            `json:"balance"`
	RecentCredits  []ledgerdomain.EntryView         `json:"recent_credits"`
	RecentPayments []paymentdomain.Payment          `json:"recent_payments"`
}

type History struct {
	Credits  []ledgerdomain.EntryView `json:"credits"`
	Payments []paymentdomain.Payment  `json:"payments"`
}

type Service interface {
	Admin(ctx context.Context) (AdminOverview, error)
	Payments(ctx context.Context) (PaymentsOverview, error)
	Dashboard(ctx context.Context, externalID string) (Dashboard, error)
	History(ctx context.Context, externalID string) (History, error)
}

var ErrNotProvisioned = errors.New("account_not_provisioned")
