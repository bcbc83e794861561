package lockport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"gitlab.com/testhub.net/internal/core/ports/primary"
	"gitlab.com/testhub.net/internal/core/ports/secondary"
)

var _ secondary.Locker = (*Locker)(nil)

const (
	lockKeyPrefix = "testhub:lock:"
	retryInterval = 25 * time.Millisecond
)

// releaseScript deletes the key only while it still holds our token, so an
// expired lock taken over by another instance is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// refreshScript extends the expiry only while the key still holds our token.
var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Locker is a secondary.Locker shared by every instance using the same Redis.
type Locker struct {
	redisClient *redis.Client
	ttl         time.Duration
	logger      primary.Logger
}

func NewLocker(redisClient *redis.Client, ttl time.Duration, logger primary.Logger) *Locker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Locker{
		redisClient: redisClient,
		ttl:         ttl,
		logger:      logger,
	}
}

// Lock polls SET NX PX until it wins or ctx is done. While held, the TTL is
// refreshed every third of its length, so the TTL only bounds how long a lock
// outlives a crashed holder.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := lockKeyPrefix + key
	token := uuid.NewString()

	for {
		ok, err := l.redisClient.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			l.logger.Error("Failed to acquire lock", "key", key, "error", err)
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			stop := make(chan struct{})
			go l.keepAlive(redisKey, token, stop)
			return l.releaser(redisKey, token, stop), nil
		}

		timer := time.NewTimer(retryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("waiting for lock %s: %w", key, ctx.Err())
		case <-timer.C:
		}
	}
}

func (l *Locker) keepAlive(redisKey, token string, stop <-chan struct{}) {
	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !l.refresh(redisKey, token) {
				return
			}
		}
	}
}

// refresh reports whether the lock is still ours.
func (l *Locker) refresh(redisKey, token string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), l.ttl/3)
	defer cancel()
	n, err := refreshScript.Run(ctx, l.redisClient, []string{redisKey}, token, l.ttl.Milliseconds()).Int()
	if err != nil {
		l.logger.Warn("Failed to refresh lock", "key", redisKey, "error", err)
		return true
	}
	if n == 0 {
		l.logger.Error("Lock expired while held", "key", redisKey)
		return false
	}
	return true
}

func (l *Locker) releaser(redisKey, token string, stop chan struct{}) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, l.redisClient, []string{redisKey}, token).Err(); err != nil && err != redis.Nil {
				l.logger.Warn("Failed to release lock", "key", redisKey, "error", err)
			}
		})
	}
}
