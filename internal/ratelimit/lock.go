package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// Release only deletes the key while it still holds the caller's token.
const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

var ErrInvalidLock = errors.New("lock key and ttl must be set")

type Locker struct {
	client redis.Cmdable
	script *redis.Script
}

func NewLocker(client redis.Cmdable) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{
		client: client,
		script: redis.NewScript(lockReleaseScript),
	}
}

// TryLock sets key when absent and returns the token needed to release it.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if l == nil || l.client == nil {
		return "", false, ErrLimiterNotConfigured
	}
	if key == "" || ttl <= 0 {
		return "", false, ErrInvalidLock
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (l *Locker) Release(ctx context.Context, key, token string) error {
	if l == nil || l.client == nil || key == "" || token == "" {
		return nil
	}
	return l.script.Run(ctx, l.client, []string{key}, token).Err()
}
