package universe

import (
	"context"
	"log/slog"
	"time"

	"cosmos-server/internal/cosmos"
	apperrors "cosmos-server/internal/shared/errors"
	sharedredis "cosmos-server/internal/shared/redis"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock key only if it still holds our token, so
// an expired lease cannot release a lock another run has since acquired.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// SimLock serializes load-simulate-persist cycles per universe with a
// Redis lease. When Redis is disabled the lock is a no-op and the
// repository's optimistic version check alone enforces serialization.
type SimLock struct {
	client *sharedredis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewSimLock(client *sharedredis.Client, ttl time.Duration, logger *slog.Logger) *SimLock {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &SimLock{client: client, ttl: ttl, logger: logger}
}

// Acquire takes the per-universe lease and returns a release function.
// Lock contention is reported as a conflict; callers treat it like an
// optimistic write conflict.
func (l *SimLock) Acquire(ctx context.Context, universeID string) (func(), error) {
	if l.client == nil {
		return func() {}, nil
	}

	key := "sim:lock:" + universeID
	token := cosmos.NewID("lock")

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		// Redis being unreachable degrades to optimistic-only mode
		// rather than blocking simulation.
		l.logger.Warn("Simulation lock unavailable, relying on version check", "error", err)
		return func() {}, nil
	}
	if !ok {
		return nil, apperrors.BusinessRulef("universe %s is already simulating", universeID)
	}

	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil && err != redis.Nil {
			l.logger.Warn("Failed to release simulation lock", "universe_id", universeID, "error", err)
		}
	}

	return release, nil
}
