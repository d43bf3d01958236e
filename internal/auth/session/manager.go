package session

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/creditdesk/internal/config"
)

const DefaultCookieName = "__session"

// Manager locates the session token on a request: a Bearer header first, then
// the session cookie.
type Manager struct {
	cookieName string
}

func NewManager(cfg config.Config) *Manager {
	name := strings.TrimSpace(cfg.Session.CookieName)
	if name == "" {
		name = DefaultCookieName
	}
	return &Manager{cookieName: name}
}

func (m *Manager) ReadToken(c *gin.Context) (string, bool) {
	if header := strings.TrimSpace(c.GetHeader("Authorization")); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") && strings.TrimSpace(token) != "" {
			return strings.TrimSpace(token), true
		}
	}

	token, err := c.Cookie(m.cookieName)
	if err != nil {
		return "", false
	}
	if strings.TrimSpace(token) == "" {
		return "", false
	}
	return token, true
}
