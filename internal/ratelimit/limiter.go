package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/dormmenu/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	keyVoteUser   = "dormmenu:vote:user:%s"
	keyIngestLock = "dormmenu:ingest:lock:%s:%04d-%02d"
)

// Limiter throttles voters and serializes month reconciles. A nil Limiter allows everything.
type Limiter struct {
	bucket *TokenBucket
	locker *Locker

	voteRate  float64
	voteBurst int
	lockTTL   time.Duration
}

func New(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*Limiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})
	limiter, err := NewWithClient(client, limitCfg)
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	log = log.Named("ratelimit")
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				log.Warn("redis unreachable, votes will fail open", zap.String("addr", addr), zap.Error(err))
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return limiter, nil
}

func NewWithClient(client *redis.Client, cfg config.RateLimitConfig) (*Limiter, error) {
	if client == nil {
		return nil, ErrLimiterNotConfigured
	}
	if cfg.VoteRate <= 0 || cfg.VoteBurst <= 0 {
		return nil, errors.New("vote rate limit must be positive")
	}
	ttl := time.Duration(cfg.IngestLockTTLSeconds) * time.Second
	if ttl <= 0 {
		return nil, errors.New("ingest lock ttl must be positive")
	}
	return &Limiter{
		bucket:    NewTokenBucket(client),
		locker:    NewLocker(client),
		voteRate:  cfg.VoteRate,
		voteBurst: cfg.VoteBurst,
		lockTTL:   ttl,
	}, nil
}

func (l *Limiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *Limiter) AllowVote(ctx context.Context, userID string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyVoteUser, strings.TrimSpace(userID)), l.voteRate, l.voteBurst)
}

// TryLockMonth claims the (city, year, month) reconcile slot. ok is false while another run holds it.
func (l *Limiter) TryLockMonth(ctx context.Context, city string, year, month int) (string, bool, error) {
	if !l.Enabled() {
		return "", true, nil
	}
	return l.locker.TryLock(ctx, monthLockKey(city, year, month), l.lockTTL)
}

func (l *Limiter) ReleaseMonth(ctx context.Context, city string, year, month int, token string) error {
	if !l.Enabled() {
		return nil
	}
	return l.locker.Release(ctx, monthLockKey(city, year, month), token)
}

func monthLockKey(city string, year, month int) string {
	return fmt.Sprintf(keyIngestLock, strings.ToLower(strings.TrimSpace(city)), year, month)
}
