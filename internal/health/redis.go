package health

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pagecraft/ai-router/internal/domain"
)

// Lua scripts keep state transitions atomic across router instances sharing
// one Redis. Keys per model: health:<model>:status, :failures, :successes,
// :last_failure, plus the health:models set for sweeping.

// Keys: [status, failures, successes, last_failure, models_set]
// Args: [failure_threshold, model_id]
var failureScript = redis.NewScript(`
local status = redis.call('GET', KEYS[1]) or 'available'
redis.call('SET', KEYS[4], redis.call('TIME')[1])
redis.call('SADD', KEYS[5], ARGV[2])

if status == 'available' then
    local failures = redis.call('INCR', KEYS[2])
    if failures >= tonumber(ARGV[1]) then
        redis.call('SET', KEYS[1], 'down')
        return 'down'
    end
    return 'available'
end

if status == 'degraded' then
    redis.call('SET', KEYS[1], 'down')
    redis.call('SET', KEYS[3], '0')
    return 'down'
end

return status
`)

// Keys: [status, failures, successes, models_set] Args: [success_threshold, model_id]
var successScript = redis.NewScript(`
local status = redis.call('GET', KEYS[1]) or 'available'
redis.call('SADD', KEYS[4], ARGV[2])

if status == 'available' then
    redis.call('SET', KEYS[2], '0')
    return 'available'
end

if status == 'degraded' then
    local successes = redis.call('INCR', KEYS[3])
    if successes >= tonumber(ARGV[1]) then
        redis.call('SET', KEYS[1], 'available')
        redis.call('SET', KEYS[2], '0')
        redis.call('SET', KEYS[3], '0')
        return 'available'
    end
    return 'degraded'
end

redis.call('SET', KEYS[1], 'degraded')
redis.call('SET', KEYS[3], '1')
return 'degraded'
`)

// Keys: [status, successes, last_failure] Args: [cooldown_seconds]
var probeScript = redis.NewScript(`
local status = redis.call('GET', KEYS[1]) or 'available'
if status ~= 'down' then
    return status
end

local last = tonumber(redis.call('GET', KEYS[3]) or '0')
local now = tonumber(redis.call('TIME')[1])
if (now - last) >= tonumber(ARGV[1]) then
    redis.call('SET', KEYS[1], 'degraded')
    redis.call('SET', KEYS[2], '0')
    return 'degraded'
end
return 'down'
`)

// RedisTracker shares model health across router instances. Redis being
// unreachable degrades to no-ops: models stay at their last pushed state.
type RedisTracker struct {
	client *redis.Client
	sink   Sink
	config Config
}

func NewRedisTracker(redisURL string, sink Sink, cfg Config) (*RedisTracker, error) {
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

	return NewRedisTrackerWithClient(client, sink, cfg), nil
}

func NewRedisTrackerWithClient(client *redis.Client, sink Sink, cfg Config) *RedisTracker {
	return &RedisTracker{client: client, sink: sink, config: cfg}
}

func statusKey(modelID string) string      { return "health:" + modelID + ":status" }
func failuresKey(modelID string) string    { return "health:" + modelID + ":failures" }
func successesKey(modelID string) string   { return "health:" + modelID + ":successes" }
func lastFailureKey(modelID string) string { return "health:" + modelID + ":last_failure" }

const modelsSetKey = "health:models"

func (t *RedisTracker) RecordSuccess(ctx context.Context, modelID string) {
	keys := []string{statusKey(modelID), failuresKey(modelID), successesKey(modelID), modelsSetKey}
	status, err := successScript.Run(ctx, t.client, keys, t.config.SuccessThreshold, modelID).Text()
	if err != nil {
		slog.Warn("health record failed", "model", modelID, "error", err)
		return
	}
	t.push(modelID, status)
}

func (t *RedisTracker) RecordFailure(ctx context.Context, modelID string) {
	keys := []string{statusKey(modelID), failuresKey(modelID), successesKey(modelID), lastFailureKey(modelID), modelsSetKey}
	status, err := failureScript.Run(ctx, t.client, keys, t.config.FailureThreshold, modelID).Text()
	if err != nil {
		slog.Warn("health record failed", "model", modelID, "error", err)
		return
	}
	if status == string(domain.AvailabilityDown) {
		slog.Warn("model marked down", "model", modelID)
	}
	t.push(modelID, status)
}

// Sweep probes every tracked model whose cooldown elapsed and pushes the
// resulting state to the sink, so instances converge after a recovery.
func (t *RedisTracker) Sweep(ctx context.Context) {
	models, err := t.client.SMembers(ctx, modelsSetKey).Result()
	if err != nil {
		return
	}
	for _, modelID := range models {
		keys := []string{statusKey(modelID), successesKey(modelID), lastFailureKey(modelID)}
		status, err := probeScript.Run(ctx, t.client, keys, int(t.config.Cooldown.Seconds())).Text()
		if err != nil {
			continue
		}
		t.push(modelID, status)
	}
}

// Run sweeps until the context is cancelled.
func (t *RedisTracker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Sweep(ctx)
		}
	}
}

// Statuses reads the shared view of every tracked model. Models that never
// failed are absent, which callers treat as available.
func (t *RedisTracker) Statuses() map[string]domain.ModelAvailability {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	out := make(map[string]domain.ModelAvailability)
	models, err := t.client.SMembers(ctx, modelsSetKey).Result()
	if err != nil {
		return out
	}
	for _, modelID := range models {
		status, err := t.client.Get(ctx, statusKey(modelID)).Result()
		if err != nil {
			continue
		}
		switch s := domain.ModelAvailability(status); s {
		case domain.AvailabilityAvailable, domain.AvailabilityDegraded, domain.AvailabilityDown:
			out[modelID] = s
		}
	}
	return out
}

func (t *RedisTracker) Close() error {
	return t.client.Close()
}

func (t *RedisTracker) push(modelID, status string) {
	if t.sink == nil {
		return
	}
	switch domain.ModelAvailability(status) {
	case domain.AvailabilityAvailable, domain.AvailabilityDegraded, domain.AvailabilityDown:
		t.sink.SetAvailability(modelID, domain.ModelAvailability(status))
	}
}
