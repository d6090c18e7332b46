// Package cache takes tenant lookups off the hot path. Every generation
// request resolves a tenant from its API key; with a Postgres-backed
// repository that is a query per request without this layer.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pagecraft/ai-router/internal/tenant"
)

// TenantCache stores resolved tenants keyed by API key hash.
type TenantCache interface {
	Get(ctx context.Context, keyHash string) (*tenant.Tenant, bool)
	Set(ctx context.Context, keyHash string, t *tenant.Tenant, ttl time.Duration)
	Invalidate(ctx context.Context, keyHash string)
}

type InMemoryCache struct {
	mu    sync.RWMutex
	items map[string]cacheItem
}

type cacheItem struct {
	tenant    *tenant.Tenant
	expiresAt time.Time
}

func NewInMemoryCache() *InMemoryCache {
	c := &InMemoryCache{items: make(map[string]cacheItem)}
	go c.cleanup()
	return c
}

func (c *InMemoryCache) Get(ctx context.Context, keyHash string) (*tenant.Tenant, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[keyHash]
	if !ok || time.Now().After(item.expiresAt) {
		return nil, false
	}
	return item.tenant, true
}

func (c *InMemoryCache) Set(ctx context.Context, keyHash string, t *tenant.Tenant, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[keyHash] = cacheItem{tenant: t, expiresAt: time.Now().Add(ttl)}
}

func (c *InMemoryCache) Invalidate(ctx context.Context, keyHash string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, keyHash)
}

func (c *InMemoryCache) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		now := time.Now()
		c.mu.Lock()
		for key, item := range c.items {
			if now.After(item.expiresAt) {
				delete(c.items, key)
			}
		}
		c.mu.Unlock()
	}
}

// RedisCache shares tenant lookups across router instances.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(redisURL string) (*RedisCache, error) {
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
	return NewRedisCacheWithClient(client), nil
}

func NewRedisCacheWithClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func redisKey(keyHash string) string { return "tenant:bykey:" + keyHash }

func (c *RedisCache) Get(ctx context.Context, keyHash string) (*tenant.Tenant, bool) {
	data, err := c.client.Get(ctx, redisKey(keyHash)).Bytes()
	if err != nil {
		return nil, false
	}
	var t tenant.Tenant
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, false
	}
	return &t, true
}

func (c *RedisCache) Set(ctx context.Context, keyHash string, t *tenant.Tenant, ttl time.Duration) {
	data, err := json.Marshal(t)
	if err != nil {
		return
	}
	c.client.Set(ctx, redisKey(keyHash), data, ttl)
}

func (c *RedisCache) Invalidate(ctx context.Context, keyHash string) {
	c.client.Del(ctx, redisKey(keyHash))
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// CachingRepository decorates a tenant repository with API key lookup
// caching. Writes invalidate the cached entry.
type CachingRepository struct {
	tenant.Repository
	cache TenantCache
	ttl   time.Duration
}

func NewCachingRepository(repo tenant.Repository, c TenantCache, ttl time.Duration) *CachingRepository {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachingRepository{Repository: repo, cache: c, ttl: ttl}
}

func (r *CachingRepository) GetByAPIKey(ctx context.Context, apiKey string) (*tenant.Tenant, error) {
	keyHash := tenant.HashAPIKey(apiKey)

	if t, ok := r.cache.Get(ctx, keyHash); ok {
		return t, nil
	}

	t, err := r.Repository.GetByAPIKey(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	r.cache.Set(ctx, keyHash, t, r.ttl)
	return t, nil
}

func (r *CachingRepository) Update(ctx context.Context, t *tenant.Tenant) error {
	if err := r.Repository.Update(ctx, t); err != nil {
		return err
	}
	r.cache.Invalidate(ctx, t.APIKeyHash)
	return nil
}
