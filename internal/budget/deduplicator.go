package budget

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduplicator suppresses repeat alerts for the same tenant, day and level.
// The day is part of the key because budgets reset at the UTC rollover.
type Deduplicator interface {
	ShouldAlert(ctx context.Context, tenantID, date string, level AlertLevel) bool
	Clear(ctx context.Context, tenantID, date string)
}

// InMemoryDeduplicator is for single-instance deployments.
type InMemoryDeduplicator struct {
	mu   sync.Mutex
	sent map[string]AlertLevel
}

func NewInMemoryDeduplicator() *InMemoryDeduplicator {
	return &InMemoryDeduplicator{sent: make(map[string]AlertLevel)}
}

func (d *InMemoryDeduplicator) ShouldAlert(ctx context.Context, tenantID, date string, level AlertLevel) bool {
	key := tenantID + ":" + date
	d.mu.Lock()
	defer d.mu.Unlock()

	if last, ok := d.sent[key]; ok && last == level {
		return false
	}
	d.sent[key] = level
	return true
}

func (d *InMemoryDeduplicator) Clear(ctx context.Context, tenantID, date string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.sent, tenantID+":"+date)
}

// RedisDeduplicator coordinates alerting across router instances: SETNX
// guarantees only one instance wins each tenant/day/level alert.
type RedisDeduplicator struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDeduplicator(redisURL string, ttl time.Duration) (*RedisDeduplicator, error) {
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

	return NewRedisDeduplicatorWithClient(client, ttl), nil
}

func NewRedisDeduplicatorWithClient(client *redis.Client, ttl time.Duration) *RedisDeduplicator {
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	return &RedisDeduplicator{client: client, ttl: ttl}
}

func alertKey(tenantID, date string, level AlertLevel) string {
	return fmt.Sprintf("budget:alert:%s:%s:%s", tenantID, date, level)
}

func (d *RedisDeduplicator) ShouldAlert(ctx context.Context, tenantID, date string, level AlertLevel) bool {
	acquired, err := d.client.SetNX(ctx, alertKey(tenantID, date, level), time.Now().Unix(), d.ttl).Result()
	if err != nil {
		// Redis down: better a duplicate alert than a missed one.
		return true
	}
	return acquired
}

func (d *RedisDeduplicator) Clear(ctx context.Context, tenantID, date string) {
	keys, err := d.client.Keys(ctx, fmt.Sprintf("budget:alert:%s:%s:*", tenantID, date)).Result()
	if err != nil || len(keys) == 0 {
		return
	}
	d.client.Del(ctx, keys...)
}

func (d *RedisDeduplicator) Close() error {
	return d.client.Close()
}
