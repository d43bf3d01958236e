package authorization

import (
	"context"
	"strings"

	authdomain "github.com/smallbiznis/creditdesk/internal/auth/domain"
	"github.com/smallbiznis/creditdesk/internal/cache"
	"github.com/smallbiznis/creditdesk/internal/config"
	"github.com/smallbiznis/creditdesk/internal/directory"
	userdomain "github.com/smallbiznis/creditdesk/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// RoleResolver maps a verified session to a role.
type RoleResolver interface {
	Resolve(ctx context.Context, claims authdomain.Claims) (userdomain.Role, error)
}

type ResolverParams struct {
	fx.In

	Log       *zap.Logger
	Directory directory.Directory
	Settings  *config.DirectoryConfigHolder
	Cache     *cache.RoleCache `optional:"true"`
}

type directoryRoleResolver struct {
	log       *zap.Logger
	directory directory.Directory
	settings  *config.DirectoryConfigHolder
	cache     *cache.RoleCache
}

func NewRoleResolver(p ResolverParams) RoleResolver {
	return &directoryRoleResolver{
		log:       p.Log.Named("authorization.role_resolver"),
		directory: p.Directory,
		settings:  p.Settings,
		cache:     p.Cache,
	}
}

// Resolve trusts an admin role carried in the session claims. Otherwise it asks
// the directory, whose answer may be cached. A directory failure resolves to USER.
func (r *directoryRoleResolver) Resolve(ctx context.Context, claims authdomain.Claims) (userdomain.Role, error) {
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return "", ErrInvalidActor
	}

	adminValue := r.settings.Get().AdminRoleValue
	if claims.HasRole(adminValue) {
		return userdomain.RoleAdmin, nil
	}

	if cached, ok := r.cache.Get(ctx, subject); ok {
		role := userdomain.Role(cached)
		if role.Valid() {
			return role, nil
		}
	}

	profile, err := r.directory.GetUser(ctx, subject)
	if err != nil {
		r.log.Warn("directory role lookup failed, treating caller as user",
			zap.String("external_id", subject),
			zap.Error(err),
		)
		return userdomain.RoleUser, nil
	}

	role := userdomain.RoleUser
	if profile.HasRole(adminValue) {
		role = userdomain.RoleAdmin
	}
	r.cache.Set(ctx, subject, string(role))
	return role, nil
}
