package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/creditdesk/internal/clock"
	paymentdomain "github.com/smallbiznis/creditdesk/internal/payment/domain"
	"github.com/smallbiznis/creditdesk/internal/payment/repository"
	"github.com/smallbiznis/creditdesk/internal/testutil"
	userdomain "github.com/smallbiznis/creditdesk/internal/user/domain"
	userrepository "github.com/smallbiznis/creditdesk/internal/user/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestService(t *testing.T) (paymentdomain.Service, *clock.FakeClock, userdomain.User) {
	t.Helper()

	db := testutil.NewDB(t)
	node := testutil.NewNode(t)
	fakeClock := clock.NewFakeClock(time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC))
	member := testutil.SeedUser(t, db, node, "user_payer", userdomain.RoleUser)

	svc := NewService(Params{
		DB:       db,
		Log:      zaptest.NewLogger(t),
		GenID:    node,
		Clock:    fakeClock,
		Repo:     repository.Provide(),
		UserRepo: userrepository.Provide(),
	})
	return svc, fakeClock, member
}

func TestRevenueByMonthGroupsAndOrders(t *testing.T) {
	svc, fakeClock, member := newTestService(t)
	ctx := context.Background()

	for _, p := range []struct {
		month  string
		amount string
	}{
		{"2024-02", "3.000"},
		{"2024-01", "10.000"},
		{"2024-01", "5.500"},
	} {
		_, err := svc.Create(ctx, paymentdomain.CreateRequest{
			UserID:    member.ID,
			AmountTnd: decimal.RequireFromString(p.amount),
			Month:     p.month,
		})
		require.NoError(t, err)
		fakeClock.Advance(time.Minute)
	}

	rows, err := svc.RevenueByMonth(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2024-01", rows[0].Month)
	assert.Equal(t, "15.500", rows[0].Total.StringFixed(3))
	assert.Equal(t, "2024-02", rows[1].Month)
	assert.Equal(t, "3.000", rows[1].Total.StringFixed(3))

	body, err := json.Marshal(rows)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"month":"2024-01","total":"15.500"},{"month":"2024-02","total":"3.000"}]`, string(body))

	total, err := svc.TotalRevenue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "18.500", total.StringFixed(3))
}

func TestTotalRevenueIsZeroWithoutPayments(t *testing.T) {
	svc, _, _ := newTestService(t)

	total, err := svc.TotalRevenue(context.Background())
	require.NoError(t, err)
	assert.True(t, total.IsZero())

	rows, err := svc.RevenueByMonth(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCreateValidatesInput(t *testing.T) {
	svc, _, member := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name    string
		amount  string
		month   string
		wantErr error
	}{
		{name: "zero amount", amount: "0", month: "2024-01", wantErr: paymentdomain.ErrInvalidAmount},
		{name: "negative amount", amount: "-1", month: "2024-01", wantErr: paymentdomain.ErrInvalidAmount},
		{name: "four decimals", amount: "1.0005", month: "2024-01", wantErr: paymentdomain.ErrInvalidAmount},
		{name: "bad month", amount: "1", month: "2024-1", wantErr: paymentdomain.ErrInvalidMonth},
		{name: "month with day", amount: "1", month: "2024-01-01", wantErr: paymentdomain.ErrInvalidMonth},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, paymentdomain.CreateRequest{
				UserID:    member.ID,
				AmountTnd: decimal.RequireFromString(tc.amount),
				Month:     tc.month,
			})
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}

	_, err := svc.Create(ctx, paymentdomain.CreateRequest{
		UserID:    member.ID + 77,
		AmountTnd: decimal.NewFromInt(1),
		Month:     "2024-01",
	})
	assert.ErrorIs(t, err, paymentdomain.ErrUserNotFound)
}

func TestCreateDefaultsPaidAtToNow(t *testing.T) {
	svc, fakeClock, member := newTestService(t)
	ctx := context.Background()

	payment, err := svc.Create(ctx, paymentdomain.CreateRequest{
		UserID:    member.ID,
		AmountTnd: decimal.RequireFromString("12.345"),
		Month:     "2024-02",
		Note:      "cash",
	})
	require.NoError(t, err)
	assert.True(t, payment.PaidAt.Equal(fakeClock.Now()))

	paidAt := time.Date(2024, 1, 31, 8, 0, 0, 0, time.UTC)
	older, err := svc.Create(ctx, paymentdomain.CreateRequest{
		UserID:    member.ID,
		AmountTnd: decimal.RequireFromString("1"),
		Month:     "2024-01",
		PaidAt:    &paidAt,
	})
	require.NoError(t, err)

	items, err := svc.ListByUser(ctx, member.ID, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, payment.ID, items[0].ID, "ordered by paid_at, newest first")
	assert.Equal(t, older.ID, items[1].ID)

	recent, err := svc.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, member.FullName, recent[0].UserName)
	assert.Equal(t, member.Email, recent[0].UserEmail)
}
