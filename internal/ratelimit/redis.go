package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a sliding-window limiter over a Redis sorted set, shared
// by every router instance.
type RedisLimiter struct {
	client *redis.Client
}

func NewRedisLimiter(redisURL string) (*RedisLimiter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return NewRedisLimiterWithClient(client), nil
}

func NewRedisLimiterWithClient(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{client: client}
}

func (l *RedisLimiter) Allow(ctx context.Context, tenantID string, limitPerMinute int) (Result, error) {
	if limitPerMinute <= 0 {
		return Result{Allowed: true, Limit: limitPerMinute, Remaining: -1}, nil
	}

	key := "ratelimit:" + tenantID
	now := time.Now()
	cutoff := now.Add(-time.Minute)
	resetAt := now.Add(time.Minute)

	pipe := l.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(cutoff.UnixNano(), 10))
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: now.UnixNano()})
	countCmd := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, err
	}

	count := int(countCmd.Val())
	remaining := limitPerMinute - count
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   count <= limitPerMinute,
		Limit:     limitPerMinute,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}

func (l *RedisLimiter) Close() error {
	return l.client.Close()
}
