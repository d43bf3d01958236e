package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/creditdesk/internal/config"
	"go.uber.org/zap"
)

const (
	keySyncBucket = "creditdesk:sync:directory:bucket"
	keySyncLock   = "creditdesk:sync:directory:lock"
)

// syncUnlockScript deletes the lock only while it still holds the run's token.
const syncUnlockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

var (
	ErrSyncInProgress  = errors.New("sync_in_progress")
	ErrSyncRateLimited = errors.New("sync_rate_limited")
)

// SyncGuard keeps directory syncs from overlapping and caps how often they run.
// A nil guard admits every call.
type SyncGuard struct {
	client  *redis.Client
	bucket  *TokenBucket
	unlock  *redis.Script
	rate    float64
	burst   int
	lockTTL time.Duration
	log     *zap.Logger
}

func NewSyncGuard(client *redis.Client, cfg config.Config, log *zap.Logger) *SyncGuard {
	if client == nil {
		return nil
	}
	limitCfg := cfg.SyncLimit
	if limitCfg.LockTTL <= 0 {
		limitCfg.LockTTL = 5 * time.Minute
	}
	return &SyncGuard{
		client:  client,
		bucket:  NewTokenBucket(client),
		unlock:  redis.NewScript(syncUnlockScript),
		rate:    limitCfg.Rate,
		burst:   limitCfg.Burst,
		lockTTL: limitCfg.LockTTL,
		log:     log.Named("ratelimit.sync"),
	}
}

func (g *SyncGuard) Enabled() bool {
	return g != nil
}

// Acquire admits one sync run. The returned release must be called when the run
// ends; it is safe to call on every path.
func (g *SyncGuard) Acquire(ctx context.Context) (func(), error) {
	if !g.Enabled() {
		return func() {}, nil
	}

	if g.rate > 0 && g.burst > 0 {
		res, err := g.bucket.Allow(ctx, keySyncBucket, g.rate, g.burst)
		if err != nil {
			return nil, err
		}
		if !res.Allowed {
			g.log.Info("directory sync throttled", zap.Duration("retry_after", res.RetryAfter))
			return nil, ErrSyncRateLimited
		}
	}

	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, keySyncLock, token, g.lockTTL).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSyncInProgress
	}

	return func() {
		err := g.unlock.Run(context.WithoutCancel(ctx), g.client, []string{keySyncLock}, token).Err()
		if err != nil {
			g.log.Warn("release sync lock failed", zap.Error(err))
		}
	}, nil
}
