package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	auditrepository "github.com/smallbiznis/creditdesk/internal/audit/repository"
	auditservice "github.com/smallbiznis/creditdesk/internal/audit/service"
	"github.com/smallbiznis/creditdesk/internal/clock"
	ledgerrepository "github.com/smallbiznis/creditdesk/internal/ledger/repository"
	ledgerservice "github.com/smallbiznis/creditdesk/internal/ledger/service"
	overviewdomain "github.com/smallbiznis/creditdesk/internal/overview/domain"
	paymentrepository "github.com/smallbiznis/creditdesk/internal/payment/repository"
	paymentservice "github.com/smallbiznis/creditdesk/internal/payment/service"
	subscriptiondomain "github.com/smallbiznis/creditdesk/internal/subscription/domain"
	subscriptionrepository "github.com/smallbiznis/creditdesk/internal/subscription/repository"
	subscriptionservice "github.com/smallbiznis/creditdesk/internal/subscription/service"
	"github.com/smallbiznis/creditdesk/internal/testutil"
	userdomain "github.com/smallbiznis/creditdesk/internal/user/domain"
	userrepository "github.com/smallbiznis/creditdesk/internal/user/repository"
	userservice "github.com/smallbiznis/creditdesk/internal/user/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestService(t *testing.T) (overviewdomain.Service, userdomain.Service) {
	t.Helper()

	db := testutil.NewDB(t)
	node := testutil.NewNode(t)
	log := zaptest.NewLogger(t)
	fakeClock := clock.NewFakeClock(time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC))
	userRepo := userrepository.Provide()
	subscriptionRepo := subscriptionrepository.Provide()

	audit := auditservice.NewService(auditservice.Params{
		DB: db, Log: log, GenID: node, Clock: fakeClock, Repo: auditrepository.Provide(),
	})
	ledger := ledgerservice.NewService(ledgerservice.Params{
		DB: db, Log: log, GenID: node, Clock: fakeClock, Repo: ledgerrepository.Provide(), UserRepo: userRepo,
	})
	payments := paymentservice.NewService(paymentservice.Params{
		DB: db, Log: log, GenID: node, Clock: fakeClock, Repo: paymentrepository.Provide(), UserRepo: userRepo,
	})
	subscriptions := subscriptionservice.NewService(subscriptionservice.Params{
		DB: db, Log: log, GenID: node, Clock: fakeClock, Repo: subscriptionRepo, UserRepo: userRepo,
		LedgerSvc: ledger, PaymentSvc: payments, AuditSvc: audit,
	})
	users := userservice.New(userservice.Params{
		DB: db, Log: log, GenID: node, Clock: fakeClock, Repo: userRepo, SubscriptionRepo: subscriptionRepo,
		SubscriptionSvc: subscriptions, LedgerSvc: ledger, PaymentSvc: payments, AuditSvc: audit,
	})

	testutil.SeedUser(t, db, node, "user_admin", userdomain.RoleAdmin)
	testutil.SeedUser(t, db, node, "user_member", userdomain.RoleUser)

	return NewService(Params{
		Log:             log,
		UserSvc:         users,
		SubscriptionSvc: subscriptions,
		LedgerSvc:       ledger,
		PaymentSvc:      payments,
	}), users
}

func provisionCustomer(t *testing.T, users userdomain.Service) userdomain.Detail {
	t.Helper()
	ctx := context.Background()
	amount := decimal.RequireFromString("12.500")

	detail, err := users.Create(ctx, userdomain.CreateUserRequest{
		AdminExternalID: "user_admin",
		ExternalID:      "user_a",
		Email:           "alice@example.com",
		FullName:        "Alice",
		InitialCredits:  50,
		PaymentAmount:   &amount,
		PaymentMonth:    "2024-06",
	})
	require.NoError(t, err)

	_, err = users.AdjustCredit(ctx, userdomain.AdjustCreditRequest{
		UserID:          detail.User.ID.String(),
		AdminExternalID: "user_admin",
		Delta:           -10,
		Note:            "refund",
	})
	require.NoError(t, err)
	return detail
}

func TestAdminOverview(t *testing.T) {
	svc, users := newTestService(t)
	provisionCustomer(t, users)

	overview, err := svc.Admin(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(2), overview.TotalUsers)
	assert.Equal(t, int64(1), overview.ActiveSubscriptions)
	assert.True(t, decimal.RequireFromString("12.5").Equal(overview.TotalRevenue.Decimal), overview.TotalRevenue.String())
	assert.Equal(t, int64(50), overview.TotalCreditsDistributed)
	require.Len(t, overview.RevenueByMonth, 1)
	assert.Equal(t, "2024-06", overview.RevenueByMonth[0].Month)
	assert.Len(t, overview.RecentUsers, 2)
}

func TestPaymentsOverview(t *testing.T) {
	svc, users := newTestService(t)
	provisionCustomer(t, users)

	overview, err := svc.Payments(context.Background())
	require.NoError(t, err)
	require.Len(t, overview.RecentPayments, 1)
	assert.Equal(t, "Alice", overview.RecentPayments[0].UserName)
	assert.Len(t, overview.RevenueByMonth, 1)
}

func TestDashboardAndHistory(t *testing.T) {
	svc, users := newTestService(t)
	provisionCustomer(t, users)
	ctx := context.Background()

	dashboard, err := svc.Dashboard(ctx, "user_a")
	require.NoError(t, err)
	assert.Equal(t, "Alice", dashboard.User.FullName)
	require.NotNil(t, dashboard.Subscription)
	assert.Equal(t, subscriptiondomain.StatusActive, dashboard.Subscription.Status)
	assert.Equal(t, int64(40), dashboard.Balance)
	assert.Len(t, dashboard.RecentCredits, 2)
	assert.Len(t, dashboard.RecentPayments, 1)

	history, err := svc.History(ctx, "user_a")
	require.NoError(t, err)
	assert.Len(t, history.Credits, 2)
	assert.Len(t, history.Payments, 1)

	member, err := svc.Dashboard(ctx, "user_member")
	require.NoError(t, err)
	assert.Nil(t, member.Subscription)
	assert.Equal(t, int64(0), member.Balance)
	assert.Empty(t, member.RecentCredits)
}

func TestDashboardNotProvisioned(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Dashboard(context.Background(), "user_unknown")
	assert.ErrorIs(t, err, overviewdomain.ErrNotProvisioned)

	_, err = svc.History(context.Background(), "")
	assert.ErrorIs(t, err, overviewdomain.ErrNotProvisioned)
}
