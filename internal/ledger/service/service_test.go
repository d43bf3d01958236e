package service

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/creditdesk/internal/clock"
	ledgerdomain "github.com/smallbiznis/creditdesk/internal/ledger/domain"
	"github.com/smallbiznis/creditdesk/internal/ledger/repository"
	"github.com/smallbiznis/creditdesk/internal/testutil"
	userdomain "github.com/smallbiznis/creditdesk/internal/user/domain"
	userrepository "github.com/smallbiznis/creditdesk/internal/user/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestService(t *testing.T) (ledgerdomain.Service, *clock.FakeClock, userdomain.User, userdomain.User) {
	t.Helper()

	db := testutil.NewDB(t)
	node := testutil.NewNode(t)
	fakeClock := clock.NewFakeClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))

	admin := testutil.SeedUser(t, db, node, "user_admin", userdomain.RoleAdmin)
	member := testutil.SeedUser(t, db, node, "user_member", userdomain.RoleUser)

	svc := NewService(Params{
		DB:       db,
		Log:      zaptest.NewLogger(t),
		GenID:    node,
		Clock:    fakeClock,
		Repo:     repository.Provide(),
		UserRepo: userrepository.Provide(),
	})
	return svc, fakeClock, admin, member
}

func TestBalanceEqualsSumOfDeltas(t *testing.T) {
	svc, fakeClock, admin, member := newTestService(t)
	ctx := context.Background()

	balance, err := svc.Balance(ctx, member.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)

	for _, delta := range []int64{100, -30, 5, -200} {
		_, err := svc.Append(ctx, ledgerdomain.AppendRequest{
			UserID:  member.ID,
			AdminID: admin.ID,
			Delta:   delta,
		})
		require.NoError(t, err)
		fakeClock.Advance(time.Minute)
	}

	balance, err = svc.Balance(ctx, member.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(-125), balance, "negative balances are allowed")

	total, err := svc.TotalDistributed(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(105), total, "only positive deltas count as distributed")
}

func TestAppendGrowsHistoryByOne(t *testing.T) {
	svc, fakeClock, admin, member := newTestService(t)
	ctx := context.Background()

	first, err := svc.Append(ctx, ledgerdomain.AppendRequest{
		UserID:  member.ID,
		AdminID: admin.ID,
		Delta:   10,
		Note:    "  welcome  ",
	})
	require.NoError(t, err)
	require.NotNil(t, first.Note)
	assert.Equal(t, "welcome", *first.Note)

	before, err := svc.History(ctx, member.ID, 0)
	require.NoError(t, err)
	require.Len(t, before, 1)

	fakeClock.Advance(time.Second)
	second, err := svc.Append(ctx, ledgerdomain.AppendRequest{
		UserID:  member.ID,
		AdminID: admin.ID,
		Delta:   -4,
	})
	require.NoError(t, err)
	assert.Nil(t, second.Note)

	after, err := svc.History(ctx, member.ID, 0)
	require.NoError(t, err)
	require.Len(t, after, len(before)+1)

	assert.Equal(t, second.ID, after[0].ID, "newest entry first")
	assert.Equal(t, first.ID, after[1].ID)
	assert.Equal(t, before[0].Delta, after[1].Delta, "earlier entries are unchanged")
	assert.Equal(t, admin.FullName, after[0].AdminName)

	limited, err := svc.History(ctx, member.ID, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, second.ID, limited[0].ID)
}

func TestAppendRejectsZeroDelta(t *testing.T) {
	svc, _, admin, member := newTestService(t)
	ctx := context.Background()

	_, err := svc.Append(ctx, ledgerdomain.AppendRequest{
		UserID:  member.ID,
		AdminID: admin.ID,
		Delta:   0,
	})
	assert.ErrorIs(t, err, ledgerdomain.ErrInvalidDelta)

	history, err := svc.History(ctx, member.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestAppendRequiresExistingRows(t *testing.T) {
	svc, _, admin, member := newTestService(t)
	ctx := context.Background()

	_, err := svc.Append(ctx, ledgerdomain.AppendRequest{
		UserID:  member.ID + 1000,
		AdminID: admin.ID,
		Delta:   1,
	})
	assert.ErrorIs(t, err, ledgerdomain.ErrUserNotFound)

	_, err = svc.Append(ctx, ledgerdomain.AppendRequest{
		UserID:  member.ID,
		AdminID: admin.ID + 1000,
		Delta:   1,
	})
	assert.ErrorIs(t, err, ledgerdomain.ErrAdminNotFound)
}
