package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/creditdesk/internal/config"
	"go.uber.org/zap"
)

const keyRole = "creditdesk:role:"

// RoleCache remembers the role the directory reported for an external id.
// A nil *RoleCache misses every lookup and drops every write.
type RoleCache struct {
	client   *redis.Client
	settings *config.DirectoryConfigHolder
	log      *zap.Logger
}

func NewRoleCache(client *redis.Client, settings *config.DirectoryConfigHolder, log *zap.Logger) *RoleCache {
	if client == nil {
		return nil
	}
	return &RoleCache{
		client:   client,
		settings: settings,
		log:      log.Named("cache.role"),
	}
}

// Get returns the cached role. Redis failures are logged and reported as a miss.
func (c *RoleCache) Get(ctx context.Context, externalID string) (string, bool) {
	key, ok := roleKey(externalID)
	if c == nil || !ok {
		return "", false
	}
	role, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("role cache read failed", zap.String("external_id", externalID), zap.Error(err))
		}
		return "", false
	}
	return role, true
}

func (c *RoleCache) Set(ctx context.Context, externalID, role string) {
	key, ok := roleKey(externalID)
	if c == nil || !ok {
		return
	}
	ttl := c.settings.Get().RoleCacheTTL
	if ttl <= 0 {
		return
	}
	if err := c.client.Set(ctx, key, role, ttl).Err(); err != nil {
		c.log.Warn("role cache write failed", zap.String("external_id", externalID), zap.Error(err))
	}
}

// Invalidate drops the cached role, used when the directory reports a change.
func (c *RoleCache) Invalidate(ctx context.Context, externalID string) {
	key, ok := roleKey(externalID)
	if c == nil || !ok {
		return
	}
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.log.Warn("role cache invalidate failed", zap.String("external_id", externalID), zap.Error(err))
	}
}

// TTL reports the remaining lifetime of a cached role, for diagnostics.
func (c *RoleCache) TTL(ctx context.Context, externalID string) time.Duration {
	key, ok := roleKey(externalID)
	if c == nil || !ok {
		return 0
	}
	ttl, err := c.client.TTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		return 0
	}
	return ttl
}

func roleKey(externalID string) (string, bool) {
	trimmed := strings.TrimSpace(externalID)
	if trimmed == "" {
		return "", false
	}
	return keyRole + trimmed, true
}
