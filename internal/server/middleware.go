package server

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/creditdesk/internal/audit/domain"
	authdomain "github.com/smallbiznis/creditdesk/internal/auth/domain"
	"github.com/smallbiznis/creditdesk/internal/authorization"
	obscontext "github.com/smallbiznis/creditdesk/internal/observability/context"
	obslogger "github.com/smallbiznis/creditdesk/internal/observability/logger"
	userdomain "github.com/smallbiznis/creditdesk/internal/user/domain"
	"go.uber.org/zap"
)

const (
	contextClaimsKey = "session_claims"
	contextRoleKey   = "session_role"
)

// SessionRequired verifies the session token and stores its claims on the request.
// It never consults the database.
func (s *Server) SessionRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := s.sessions.ReadToken(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		claims, err := s.verifier.Verify(c.Request.Context(), raw)
		if err != nil {
			if errors.Is(err, authdomain.ErrNotConfigured) {
				AbortWithError(c, ErrServiceUnavailable)
				return
			}
			obslogger.FromContext(c.Request.Context()).Debug("session rejected", zap.Error(err))
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set(contextClaimsKey, claims)
		ctx := obscontext.WithActor(c.Request.Context(), string(auditdomain.ActorTypeUser), claims.Subject)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireAdmin aborts with 403 before the handler runs unless the caller may
// perform action on object. Admin actions are attributed to the caller in the
// audit log.
func (s *Server) RequireAdmin(object, action string) gin.HandlerFunc {
	return s.authorizeAction(object, action)
}

// RequireSelf lets any signed-in caller reach their own account views.
func (s *Server) RequireSelf() gin.HandlerFunc {
	return s.authorizeAction(authorization.ObjectSelf, authorization.ActionView)
}

func (s *Server) authorizeAction(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := claimsFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		role, err := s.gate.Authorize(c.Request.Context(), claims, object, action)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextRoleKey, role)
		if role == userdomain.RoleAdmin {
			ctx := obscontext.WithActor(c.Request.Context(), string(auditdomain.ActorTypeAdmin), claims.Subject)
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}

func claimsFromContext(c *gin.Context) (authdomain.Claims, bool) {
	value, ok := c.Get(contextClaimsKey)
	if !ok {
		return authdomain.Claims{}, false
	}
	claims, ok := value.(authdomain.Claims)
	if !ok || strings.TrimSpace(claims.Subject) == "" {
		return authdomain.Claims{}, false
	}
	return claims, true
}

// callerExternalID is the directory id of the signed-in caller.
func callerExternalID(c *gin.Context) string {
	claims, _ := claimsFromContext(c)
	return strings.TrimSpace(claims.Subject)
}
