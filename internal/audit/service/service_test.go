package service

import (
	"context"
	"testing"
	"time"

	auditdomain "github.com/smallbiznis/creditdesk/internal/audit/domain"
	"github.com/smallbiznis/creditdesk/internal/audit/repository"
	"github.com/smallbiznis/creditdesk/internal/clock"
	obscontext "github.com/smallbiznis/creditdesk/internal/observability/context"
	"github.com/smallbiznis/creditdesk/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestService(t *testing.T) auditdomain.Service {
	t.Helper()
	return NewService(Params{
		DB:    testutil.NewDB(t),
		Log:   zaptest.NewLogger(t),
		GenID: testutil.NewNode(t),
		Clock: clock.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	})
}

func TestAuditLogUsesContextActor(t *testing.T) {
	svc := newTestService(t)
	ctx := obscontext.WithActor(context.Background(), string(auditdomain.ActorTypeAdmin), "42")
	ctx = obscontext.WithRequestID(ctx, "req-1")
	target := "7"

	require.NoError(t, svc.AuditLog(ctx, "", nil, auditdomain.ActionCreditAdjust, auditdomain.TargetLedgerEntry, &target, map[string]any{"delta": 5}))

	items, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{Action: auditdomain.ActionCreditAdjust})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "admin", items[0].ActorType)
	require.NotNil(t, items[0].ActorID)
	assert.Equal(t, "42", *items[0].ActorID)
	assert.Equal(t, "req-1", items[0].Metadata["request_id"])
}

func TestAuditLogDefaultsToSystem(t *testing.T) {
	svc := newTestService(t)

	require.NoError(t, svc.AuditLog(context.Background(), "", nil, auditdomain.ActionDirectorySync, auditdomain.TargetDirectory, nil, nil))

	items, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "system", items[0].ActorType)
	assert.Nil(t, items[0].ActorID)
	assert.Nil(t, items[0].TargetID)
}

func TestAuditLogValidation(t *testing.T) {
	svc := newTestService(t)

	err := svc.AuditLog(context.Background(), "", nil, " ", auditdomain.TargetUser, nil, nil)
	assert.ErrorIs(t, err, auditdomain.ErrInvalidAction)

	_, err = svc.List(context.Background(), auditdomain.ListAuditLogRequest{Limit: -1})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidLimit)
}
