package authorization

import (
	"context"
	"strings"

	"github.com/casbin/casbin/v2"
	authdomain "github.com/smallbiznis/creditdesk/internal/auth/domain"
	userdomain "github.com/smallbiznis/creditdesk/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type GateParams struct {
	fx.In

	Log      *zap.Logger
	Resolver RoleResolver
	Enforcer *casbin.SyncedEnforcer
}

// Gate is consulted before any handler runs. A denial performs no writes.
type Gate struct {
	log      *zap.Logger
	resolver RoleResolver
	enforcer *casbin.SyncedEnforcer
}

func NewGate(p GateParams) *Gate {
	return &Gate{
		log:      p.Log.Named("authorization.gate"),
		resolver: p.Resolver,
		enforcer: p.Enforcer,
	}
}

// Authorize returns the caller's role when the policy allows object/action, and
// ErrForbidden otherwise.
func (g *Gate) Authorize(ctx context.Context, claims authdomain.Claims, object, action string) (userdomain.Role, error) {
	object = strings.TrimSpace(object)
	action = strings.TrimSpace(action)
	if object == "" || action == "" {
		return "", ErrForbidden
	}

	role, err := g.resolver.Resolve(ctx, claims)
	if err != nil {
		return "", err
	}

	allowed, err := g.enforcer.Enforce(roleSubject(role), object, action)
	if err != nil {
		return "", err
	}
	if !allowed {
		g.log.Info("authorization denied",
			zap.String("subject", claims.Subject),
			zap.String("role", string(role)),
			zap.String("object", object),
			zap.String("action", action),
		)
		return role, ErrForbidden
	}
	return role, nil
}

func (g *Gate) IsAdmin(ctx context.Context, claims authdomain.Claims) bool {
	role, err := g.resolver.Resolve(ctx, claims)
	return err == nil && role == userdomain.RoleAdmin
}
