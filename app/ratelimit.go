package app

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// GenerationLimiter bounds how often a user may call the AI endpoints.
type GenerationLimiter interface {
	Allow(ctx context.Context, userID string) (bool, error)
}

// RedisLimiter is a fixed-window counter per user.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

type RedisLimiterConfig struct {
	Addr     string
	Password string
	DB       int
	Limit    int
	Window   time.Duration
}

// NewRedisLimiter connects and pings Redis.
func NewRedisLimiter(ctx context.Context, cfg RedisLimiterConfig) (*RedisLimiter, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return newRedisLimiter(rdb, cfg.Limit, cfg.Window), nil
}

func newRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, window: window, prefix: "grid64:gen:"}
}

// Allow increments the user's counter for the current window. The window
// starts with the first call and the key expires with it. Any call that
// finds the key without a TTL sets one, so a failed EXPIRE cannot pin the
// counter forever.
func (l *RedisLimiter) Allow(ctx context.Context, userID string) (bool, error) {
	key := l.prefix + userID

	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		ttl = pipe.TTL(ctx, key)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("rate limit incr: %w", err)
	}
	if ttl.Val() < 0 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return false, fmt.Errorf("rate limit expire: %w", err)
		}
	}
	return incr.Val() <= int64(l.limit), nil
}

func (l *RedisLimiter) Close() error {
	return l.client.Close()
}

func allowGeneration(ctx context.Context, limiter GenerationLimiter, userID string) error {
	if limiter == nil {
		return nil
	}
	ok, err := limiter.Allow(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRateLimited
	}
	return nil
}
