package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/relentless-ops/runbook-engine/internal/domain"
)

// RedisConfig configures the Redis-backed remote tier. Grounded on the
// teacher's CacheConfig (internal/infrastructure/cache/interface.go).
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	PoolSize    int
	DialTimeout time.Duration
}

// RedisTier implements RemoteTier against a Redis server.
type RedisTier struct {
	client *redis.Client
}

// NewRedisTier builds a RedisTier from RedisConfig. The connection is
// lazy; use Ping to verify reachability during startup health checks.
func NewRedisTier(cfg RedisConfig) *RedisTier {
	opts := &redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		DialTimeout: cfg.DialTimeout,
	}
	return &RedisTier{client: redis.NewClient(opts)}
}

// NewRedisTierFromClient wraps an already-constructed *redis.Client,
// used by tests to point at a miniredis instance.
func NewRedisTierFromClient(client *redis.Client) *RedisTier {
	return &RedisTier{client: client}
}

// Get fetches a value, returning a NotFound ToolError on a cache miss.
func (r *RedisTier) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.NotFound("cache_entry", key)
		}
		return nil, fmt.Errorf("redis get %q: %w", key, err)
	}
	return v, nil
}

// Set stores a value with the given TTL. ttl<=0 means no expiry.
func (r *RedisTier) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

// Delete removes a key.
func (r *RedisTier) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %q: %w", key, err)
	}
	return nil
}

// Ping verifies the remote tier is reachable.
func (r *RedisTier) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (r *RedisTier) Close() error {
	return r.client.Close()
}
