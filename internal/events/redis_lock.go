package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"eventbooking/internal/shared/constants"
	"eventbooking/internal/shared/errs"
	"eventbooking/pkg/logger"
)

// Lua script for releasing a lock only if we still own it
const luaReleaseLock = `
-- KEYS[1] = lock key
-- ARGV[1] = owner token
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`

var releaseLockScript = redis.NewScript(luaReleaseLock)

const (
	defaultLockRetry = 25 * time.Millisecond
	defaultLockTTL   = 5 * time.Second
)

// RedisLocker is a Locker shared by every instance pointed at the same Redis.
// The lease bounds how long a crashed holder can block an event. The
// conditional decrement in the repository still guards the counter if a lease
// expires mid-operation.
type RedisLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
	log    *logger.Logger
}

func NewRedisLocker(client redis.UniversalClient, ttl, wait time.Duration, log *logger.Logger) *RedisLocker {
	if log == nil {
		log = logger.GetDefault()
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLocker{
		client: client,
		ttl:    ttl,
		wait:   wait,
		retry:  defaultLockRetry,
		log:    log,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, eventID uuid.UUID) (func(), error) {
	key := constants.BuildEventLockKey(eventID.String())
	token := uuid.NewString()

	waitCtx, cancel := withWait(ctx, l.wait)
	defer cancel()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(waitCtx, key, token, l.ttl).Result()
		if err != nil && waitCtx.Err() == nil {
			return nil, errs.Persistence("acquire event lock", err)
		}
		if ok {
			return l.unlocker(key, token), nil
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, errs.ErrBusy
		case <-ticker.C:
		}
	}
}

func (l *RedisLocker) unlocker(key, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's context may already be done; the lease must still go.
			ctx, cancel := context.WithTimeout(context.Background(), l.ttl)
			defer cancel()

			if err := releaseLockScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
				l.log.WarnContext(ctx, "Failed to release event lock", "key", key, "error", err.Error())
			}
		})
	}
}
