package ratelimit

import (
	"context"
	"errors"
	"math"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const tokenBucketScript = `
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local nowData = redis.call("TIME")
local now = (nowData[1] * 1000) + math.floor(nowData[2] / 1000)

local data = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(data[1])
local ts = tonumber(data[2])

if tokens == nil then
  tokens = burst
  ts = now
else
  local delta = now - ts
  if delta < 0 then
    delta = 0
  end
  tokens = math.min(burst, tokens + (delta / 1000) * rate)
  ts = now
end

local allowed = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
end

redis.call("HMSET", KEYS[1], "tokens", tokens, "ts", ts)
redis.call("PEXPIRE", KEYS[1], ttl)

-- integers only survive the Lua -> RESP conversion, so tokens is scaled by 1000
return {allowed, math.floor(tokens * 1000), ts}
`

var (
	ErrLimiterNotConfigured = errors.New("rate limiter not configured")
	ErrInvalidBucket        = errors.New("rate limiter key, rate and burst must be set")
)

type TokenBucket struct {
	client redis.Scripter
	script *redis.Script
}

type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

func NewTokenBucket(client redis.Scripter) *TokenBucket {
	if client == nil {
		return nil
	}
	return &TokenBucket{
		client: client,
		script: redis.NewScript(tokenBucketScript),
	}
}

// Allow takes one token from the bucket at key, refilled at rate tokens per second up to burst.
func (t *TokenBucket) Allow(ctx context.Context, key string, rate float64, burst int) (*RateLimitResult, error) {
	if t == nil || t.client == nil {
		return &RateLimitResult{Allowed: false}, ErrLimiterNotConfigured
	}
	if key == "" || rate <= 0 || burst <= 0 {
		return &RateLimitResult{Allowed: false}, ErrInvalidBucket
	}

	ttl := defaultBucketTTL(rate, burst)
	res, err := t.script.Run(ctx, t.client, []string{key}, rate, burst, ttl.Milliseconds()).Int64Slice()
	if err != nil {
		return &RateLimitResult{Allowed: false}, err
	}
	if len(res) < 3 {
		return &RateLimitResult{Allowed: false}, errors.New("invalid rate limit script response")
	}

	allowed := res[0] == 1
	remaining := float64(res[1]) / 1000
	ts := time.UnixMilli(res[2])

	var retryAfter time.Duration
	if !allowed {
		if needed := 1 - remaining; needed > 0 {
			retryAfter = time.Duration(needed / rate * float64(time.Second))
		}
	}

	return &RateLimitResult{
		Allowed:    allowed,
		Limit:      burst,
		Remaining:  int(math.Floor(remaining)),
		ResetTime:  ts.Add(retryAfter),
		RetryAfter: retryAfter,
	}, nil
}

func defaultBucketTTL(rate float64, burst int) time.Duration {
	if rate <= 0 || burst <= 0 {
		return time.Second
	}
	seconds := math.Ceil((float64(burst) / rate) * 2)
	if seconds < 1 {
		seconds = 1
	}
	return time.Duration(seconds) * time.Second
}
