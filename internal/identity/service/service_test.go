package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	auditdomain "github.com/smallbiznis/creditdesk/internal/audit/domain"
	auditrepository "github.com/smallbiznis/creditdesk/internal/audit/repository"
	auditservice "github.com/smallbiznis/creditdesk/internal/audit/service"
	"github.com/smallbiznis/creditdesk/internal/clock"
	"github.com/smallbiznis/creditdesk/internal/config"
	"github.com/smallbiznis/creditdesk/internal/directory"
	"github.com/smallbiznis/creditdesk/internal/directory/mocks"
	identitydomain "github.com/smallbiznis/creditdesk/internal/identity/domain"
	ledgerrepository "github.com/smallbiznis/creditdesk/internal/ledger/repository"
	ledgerservice "github.com/smallbiznis/creditdesk/internal/ledger/service"
	paymentrepository "github.com/smallbiznis/creditdesk/internal/payment/repository"
	paymentservice "github.com/smallbiznis/creditdesk/internal/payment/service"
	subscriptiondomain "github.com/smallbiznis/creditdesk/internal/subscription/domain"
	subscriptionrepository "github.com/smallbiznis/creditdesk/internal/subscription/repository"
	subscriptionservice "github.com/smallbiznis/creditdesk/internal/subscription/service"
	"github.com/smallbiznis/creditdesk/internal/testutil"
	userdomain "github.com/smallbiznis/creditdesk/internal/user/domain"
	userrepository "github.com/smallbiznis/creditdesk/internal/user/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type fixture struct {
	db        *gorm.DB
	directory *mocks.MockDirectory
	svc       identitydomain.Service
	subs      subscriptiondomain.Service
	users     userdomain.Repository
}

func newFixture(t *testing.T, pageSize int) *fixture {
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
	subs := subscriptionservice.NewService(subscriptionservice.Params{
		DB: db, Log: log, GenID: node, Clock: fakeClock, Repo: subscriptionRepo, UserRepo: userRepo,
		LedgerSvc: ledger, PaymentSvc: payments, AuditSvc: audit,
	})

	settings := config.DefaultDirectorySettings()
	settings.PageSize = pageSize
	dir := mocks.NewMockDirectory(gomock.NewController(t))

	svc := NewService(Params{
		DB:               db,
		Log:              log,
		GenID:            node,
		Clock:            fakeClock,
		Directory:        dir,
		Settings:         config.NewStaticDirectoryConfigHolder(settings),
		UserRepo:         userRepo,
		SubscriptionRepo: subscriptionRepo,
		SubscriptionSvc:  subs,
		AuditSvc:         audit,
	})

	return &fixture{db: db, directory: dir, svc: svc, subs: subs, users: userRepo}
}

func strPtr(v string) *string { return &v }

func directoryUser(id, first, email string, admin bool) directory.User {
	user := directory.User{
		ID:             id,
		FirstName:      strPtr(first),
		EmailAddresses: []directory.EmailAddress{{ID: "email_" + id, EmailAddress: email}},
	}
	if admin {
		user.PublicMetadata = map[string]any{"role": "admin"}
	}
	return user
}

func (f *fixture) findUser(t *testing.T, externalID string) *userdomain.User {
	t.Helper()
	user, err := f.users.FindByExternalID(context.Background(), f.db, externalID)
	require.NoError(t, err)
	return user
}

func TestSyncPagesAndIsIdempotent(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	page1 := []directory.User{
		directoryUser("user_admin", "Ada", "ada@example.com", true),
		directoryUser("user_a", "Alice", "alice@example.com", false),
	}
	page2 := []directory.User{
		{ID: "user_b"},
	}
	f.directory.EXPECT().ListUsers(gomock.Any(), 2, 0).Return(page1, nil).Times(2)
	f.directory.EXPECT().ListUsers(gomock.Any(), 2, 2).Return(page2, nil).Times(2)

	first, err := f.svc.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, identitydomain.SyncResult{Synced: 3, Created: 2, Updated: 1}, first)

	second, err := f.svc.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, identitydomain.SyncResult{Synced: 3, Created: 0, Updated: 3}, second)

	assert.Equal(t, int64(3), testutil.CountRows(t, f.db, "users"))
	assert.Equal(t, int64(2), testutil.CountRows(t, f.db, "subscriptions"))

	admin := f.findUser(t, "user_admin")
	require.NotNil(t, admin)
	assert.Equal(t, userdomain.RoleAdmin, admin.Role)
	assert.Equal(t, "Ada", admin.FullName)

	placeholder := f.findUser(t, "user_b")
	require.NotNil(t, placeholder)
	assert.Equal(t, "User", placeholder.FullName)
	assert.Equal(t, "", placeholder.Email)

	latest, err := f.subs.Latest(ctx, placeholder.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, subscriptiondomain.StatusPendingActivation, latest.Status)

	var syncAudits int64
	require.NoError(t, f.db.Model(&auditdomain.AuditLog{}).
		Where("action = ?", auditdomain.ActionDirectorySync).
		Count(&syncAudits).Error)
	assert.Equal(t, int64(2), syncAudits)
}

func TestSyncKeepsIdentityAndRefreshesProfile(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()

	f.directory.EXPECT().ListUsers(gomock.Any(), 100, 0).
		Return([]directory.User{directoryUser("user_a", "Alice", "alice@example.com", false)}, nil)
	_, err := f.svc.Sync(ctx)
	require.NoError(t, err)
	before := f.findUser(t, "user_a")
	require.NotNil(t, before)

	f.directory.EXPECT().ListUsers(gomock.Any(), 100, 0).
		Return([]directory.User{directoryUser("user_a", "Alicia", "alicia@example.com", false)}, nil)
	result, err := f.svc.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, identitydomain.SyncResult{Synced: 1, Updated: 1}, result)

	after := f.findUser(t, "user_a")
	require.NotNil(t, after)
	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, "Alicia", after.FullName)
	assert.Equal(t, "alicia@example.com", after.Email)
}

func TestSyncFailureKeepsEarlierPages(t *testing.T) {
	f := newFixture(t, 1)

	f.directory.EXPECT().ListUsers(gomock.Any(), 1, 0).
		Return([]directory.User{directoryUser("user_a", "Alice", "alice@example.com", false)}, nil)
	f.directory.EXPECT().ListUsers(gomock.Any(), 1, 1).
		Return(nil, errors.New("directory unavailable"))

	_, err := f.svc.Sync(context.Background())
	require.Error(t, err)

	assert.NotNil(t, f.findUser(t, "user_a"))
	assert.Equal(t, int64(1), testutil.CountRows(t, f.db, "subscriptions"))
}

func event(t *testing.T, eventType string, data any) directory.Event {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return directory.Event{Type: eventType, Data: raw}
}

func TestHandleUserCreatedDoesNotSeed(t *testing.T) {
	f := newFixture(t, 100)

	err := f.svc.HandleEvent(context.Background(), event(t, directory.EventUserCreated,
		directoryUser("user_admin", "Ada", "ada@example.com", true)))
	require.NoError(t, err)

	user := f.findUser(t, "user_admin")
	require.NotNil(t, user)
	assert.Equal(t, userdomain.RoleAdmin, user.Role)
	assert.Equal(t, int64(0), testutil.CountRows(t, f.db, "subscriptions"))
}

func TestHandleUserUpdatedChangesProfileOnly(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()

	require.NoError(t, f.svc.HandleEvent(ctx, event(t, directory.EventUserCreated,
		directoryUser("user_a", "Alice", "alice@example.com", false))))

	require.NoError(t, f.svc.HandleEvent(ctx, event(t, directory.EventUserUpdated,
		directoryUser("user_a", "Alicia", "alicia@example.com", true))))

	user := f.findUser(t, "user_a")
	require.NotNil(t, user)
	assert.Equal(t, "Alicia", user.FullName)
	assert.Equal(t, "alicia@example.com", user.Email)
	assert.Equal(t, userdomain.RoleUser, user.Role)

	require.NoError(t, f.svc.HandleEvent(ctx, event(t, directory.EventUserUpdated,
		directoryUser("user_unknown", "Nobody", "nobody@example.com", false))))
	assert.Nil(t, f.findUser(t, "user_unknown"))
}

func TestHandleUserDeletedRemovesDependents(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()

	f.directory.EXPECT().ListUsers(gomock.Any(), 100, 0).
		Return([]directory.User{directoryUser("user_a", "Alice", "alice@example.com", false)}, nil)
	_, err := f.svc.Sync(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), testutil.CountRows(t, f.db, "subscriptions"))

	deleted := event(t, directory.EventUserDeleted, directory.DeletedUser{ID: "user_a", Deleted: true})
	require.NoError(t, f.svc.HandleEvent(ctx, deleted))

	assert.Nil(t, f.findUser(t, "user_a"))
	assert.Equal(t, int64(0), testutil.CountRows(t, f.db, "subscriptions"))

	var audits int64
	require.NoError(t, f.db.Model(&auditdomain.AuditLog{}).
		Where("action = ?", auditdomain.ActionDirectoryUserDeleted).
		Count(&audits).Error)
	assert.Equal(t, int64(1), audits)

	require.NoError(t, f.svc.HandleEvent(ctx, deleted))
}

func TestHandleEventEdgeCases(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()

	assert.NoError(t, f.svc.HandleEvent(ctx, directory.Event{Type: "session.created", Data: json.RawMessage(`{}`)}))

	err := f.svc.HandleEvent(ctx, directory.Event{Type: directory.EventUserCreated, Data: json.RawMessage(`[]`)})
	assert.ErrorIs(t, err, directory.ErrInvalidPayload)

	err = f.svc.HandleEvent(ctx, event(t, directory.EventUserDeleted, directory.DeletedUser{}))
	assert.ErrorIs(t, err, identitydomain.ErrInvalidExternalID)
}
