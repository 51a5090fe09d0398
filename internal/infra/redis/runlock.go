package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/renewal-reminder/internal/domain"
	"github.com/kursadbilgin/renewal-reminder/internal/runlock"
	goredis "github.com/redis/go-redis/v9"
)

const (
	defaultLockTTL = 10 * time.Minute
	lockKeyPrefix  = "reminder-run:"
)

var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

var _ runlock.Locker = (*RedisRunLock)(nil)

// RedisRunLock is a single-holder lock on a Redis key with a TTL. The TTL
// bounds how long a crashed run can block the next one.
type RedisRunLock struct {
	client   *goredis.Client
	ttl      time.Duration
	newToken func() string
	script   *goredis.Script
}

func NewRedisRunLock(client *goredis.Client, ttl time.Duration) (*RedisRunLock, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}

	return &RedisRunLock{
		client:   client,
		ttl:      ttl,
		newToken: uuid.NewString,
		script:   releaseScript,
	}, nil
}

func (l *RedisRunLock) Acquire(ctx context.Context, name string) (runlock.Release, error) {
	if l == nil || l.client == nil {
		return nil, fmt.Errorf("run lock is not initialized")
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("lock name is required")
	}

	key := lockKeyPrefix + name
	token := l.newToken()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrRunInProgress, name)
	}

	released := false
	return func(ctx context.Context) error {
		if released {
			return nil
		}
		released = true

		err := l.script.Run(ctx, l.client, []string{key}, token).Err()
		if err != nil && !errors.Is(err, goredis.Nil) {
			return fmt.Errorf("failed to release run lock: %w", err)
		}
		return nil
	}, nil
}
