package authorization

import (
	"context"
	"testing"

	authdomain "github.com/smallbiznis/creditdesk/internal/auth/domain"
	"github.com/smallbiznis/creditdesk/internal/testutil"
	userdomain "github.com/smallbiznis/creditdesk/internal/user/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type staticResolver map[string]userdomain.Role

func (r staticResolver) Resolve(_ context.Context, claims authdomain.Claims) (userdomain.Role, error) {
	if claims.Subject == "" {
		return "", ErrInvalidActor
	}
	role, ok := r[claims.Subject]
	if !ok {
		return userdomain.RoleUser, nil
	}
	return role, nil
}

func newTestGate(t *testing.T) *Gate {
	t.Helper()
	db := testutil.NewDB(t)
	enforcer, err := NewEnforcer(db)
	require.NoError(t, err)

	return NewGate(GateParams{
		Log:      zaptest.NewLogger(t),
		Resolver: staticResolver{"user_admin": userdomain.RoleAdmin},
		Enforcer: enforcer,
	})
}

func TestGateAdminMayDoEverything(t *testing.T) {
	gate := newTestGate(t)
	admin := authdomain.Claims{Subject: "user_admin"}
	ctx := context.Background()

	for _, check := range [][2]string{
		{ObjectUser, ActionCreate},
		{ObjectSubscription, ActionActivate},
		{ObjectCredit, ActionAdjust},
		{ObjectDirectory, ActionSync},
		{ObjectSelf, ActionView},
	} {
		role, err := gate.Authorize(ctx, admin, check[0], check[1])
		require.NoError(t, err, "%s/%s", check[0], check[1])
		assert.Equal(t, userdomain.RoleAdmin, role)
	}
	assert.True(t, gate.IsAdmin(ctx, admin))
}

func TestGateUserOnlySeesSelf(t *testing.T) {
	gate := newTestGate(t)
	user := authdomain.Claims{Subject: "user_1"}
	ctx := context.Background()

	role, err := gate.Authorize(ctx, user, ObjectSelf, ActionView)
	require.NoError(t, err)
	assert.Equal(t, userdomain.RoleUser, role)

	_, err = gate.Authorize(ctx, user, ObjectUser, ActionView)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = gate.Authorize(ctx, user, ObjectCredit, ActionAdjust)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.False(t, gate.IsAdmin(ctx, user))
}

func TestEnforcerSeedIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)

	_, err := NewEnforcer(db)
	require.NoError(t, err)
	first := testutil.CountRows(t, db, "casbin_rule")

	_, err = NewEnforcer(db)
	require.NoError(t, err)
	assert.Equal(t, first, testutil.CountRows(t, db, "casbin_rule"))
	assert.Equal(t, int64(3), first)
}
