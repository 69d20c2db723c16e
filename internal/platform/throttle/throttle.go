// Package throttle counts failed logins per account and locks further
// attempts once a threshold is reached inside a time window.
package throttle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"library-backend/internal/platform/apierr"
	"library-backend/internal/platform/config"
)

type LoginLimiter interface {
	// Allow returns a TOO_MANY_REQUESTS error while key is locked out.
	Allow(ctx context.Context, key string) error
	RecordFailure(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}

const keyPrefix = "login_failed:"

func counterKey(key string) string {
	return keyPrefix + strings.ToLower(strings.TrimSpace(key))
}

// RedisLimiter keeps one INCR counter per key that expires with the window.
type RedisLimiter struct {
	rdb    redis.Cmdable
	max    int64
	window time.Duration
}

func NewRedisLimiter(rdb redis.Cmdable, maxFailures int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, max: int64(maxFailures), window: window}
}

// Allow fails open when redis cannot be reached.
func (l *RedisLimiter) Allow(ctx context.Context, key string) error {
	n, err := l.rdb.Get(ctx, counterKey(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		log.Warn().Err(err).Msg("login throttle unavailable")
		return nil
	}
	if n >= l.max {
		return apierr.TooManyRequests("too many failed login attempts, try again later")
	}
	return nil
}

func (l *RedisLimiter) RecordFailure(ctx context.Context, key string) error {
	k := counterKey(key)
	// Window starts at the first failure. INCR and EXPIRE NX commit together
	// so a counter never outlives its window.
	var incr *redis.IntCmd
	_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, l.window)
		return nil
	})
	if err != nil {
		return fmt.Errorf("record failure %s: %w", k, err)
	}
	if n := incr.Val(); n == l.max {
		log.Warn().Str("key", k).Int64("attempts", n).Msg("login locked out")
	}
	return nil
}

func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	return l.rdb.Del(ctx, counterKey(key)).Err()
}

// Noop is used when redis is disabled.
type Noop struct{}

func (Noop) Allow(context.Context, string) error         { return nil }
func (Noop) RecordFailure(context.Context, string) error { return nil }
func (Noop) Reset(context.Context, string) error         { return nil }

// NewClient opens and pings a redis client.
func NewClient(ctx context.Context, c config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         c.Addr,
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

// New picks the limiter for cfg. The returned close func is never nil.
func New(ctx context.Context, cfg config.Config) (LoginLimiter, func() error, error) {
	if !cfg.Redis.Enabled {
		return Noop{}, func() error { return nil }, nil
	}
	rdb, err := NewClient(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to redis")
	return NewRedisLimiter(rdb, cfg.Auth.MaxFailedLogins, cfg.Auth.LockoutWindow), rdb.Close, nil
}
