package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisReserver makes the gate check and a provisional spend atomic against
// Redis: a conditional increment reserves the estimate before dispatch, and
// the ledger write either finalizes the reservation at the actual cost or
// releases it. Deployments that accept the bounded check-then-act overshoot
// can skip this entirely.
type RedisReserver struct {
	client *redis.Client
}

// reserveScript atomically checks spend+count against the limits and
// reserves the estimate. Non-positive limits are unlimited.
// KEYS[1] = spend key, KEYS[2] = count key
// ARGV[1] = estimate cents, ARGV[2] = limit cents, ARGV[3] = request limit,
// ARGV[4] = ttl seconds
var reserveScript = redis.NewScript(`
local spend = tonumber(redis.call('GET', KEYS[1]) or '0')
local count = tonumber(redis.call('GET', KEYS[2]) or '0')
local est = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])
local reqLimit = tonumber(ARGV[3])

if reqLimit > 0 and count + 1 > reqLimit then
	return 0
end
if limit > 0 and spend + est > limit then
	return 0
end

redis.call('INCRBY', KEYS[1], est)
redis.call('INCR', KEYS[2])
redis.call('EXPIRE', KEYS[1], ARGV[4])
redis.call('EXPIRE', KEYS[2], ARGV[4])
return 1
`)

func NewRedisReserver(redisURL string) (*RedisReserver, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisReserver{client: client}, nil
}

func NewRedisReserverWithClient(client *redis.Client) *RedisReserver {
	return &RedisReserver{client: client}
}

func spendKey(tenantID, date string) string {
	return "budget:spend:" + tenantID + ":" + date
}

func countKey(tenantID, date string) string {
	return "budget:count:" + tenantID + ":" + date
}

// Reserve provisionally charges the estimate. Returns false when either
// limit would be exceeded; nothing is consumed in that case.
func (r *RedisReserver) Reserve(ctx context.Context, tenantID, date string, estimateCents, limitCents, requestLimit int) (bool, error) {
	// Keys live two days so the previous period expires on its own after
	// the rollover.
	const ttl = 2 * 24 * 60 * 60

	res, err := reserveScript.Run(ctx, r.client,
		[]string{spendKey(tenantID, date), countKey(tenantID, date)},
		estimateCents, limitCents, requestLimit, ttl,
	).Int()
	if err != nil {
		return false, fmt.Errorf("reserve budget: %w", err)
	}

	return res == 1, nil
}

// Commit settles a reservation at the actual cost.
func (r *RedisReserver) Commit(ctx context.Context, tenantID, date string, estimateCents, actualCents int) error {
	delta := actualCents - estimateCents
	if delta == 0 {
		return nil
	}
	if err := r.client.IncrBy(ctx, spendKey(tenantID, date), int64(delta)).Err(); err != nil {
		return fmt.Errorf("commit reservation: %w", err)
	}
	return nil
}

// Release undoes a reservation whose request never completed.
func (r *RedisReserver) Release(ctx context.Context, tenantID, date string, estimateCents int) error {
	pipe := r.client.Pipeline()
	pipe.DecrBy(ctx, spendKey(tenantID, date), int64(estimateCents))
	pipe.Decr(ctx, countKey(tenantID, date))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("release reservation: %w", err)
	}
	return nil
}
