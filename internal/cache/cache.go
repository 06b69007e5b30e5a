// Package cache implements the two-tier hybrid cache layer (spec §4.3):
// a mandatory bounded in-process memory tier, and an optional remote
// tier wrapped by its own circuit breaker. Reads check memory, then
// remote through the breaker, then fall back to a caller-supplied
// producer; successful produces are written to both tiers, with the
// remote write fire-and-forget.
package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/relentless-ops/runbook-engine/internal/domain"
	"github.com/relentless-ops/runbook-engine/internal/resilience"
	"github.com/relentless-ops/runbook-engine/pkg/metrics"
)

// RemoteTier is the interface the optional remote cache backend must
// satisfy. Grounded on the teacher's cache.Cache interface
// (internal/infrastructure/cache/interface.go), trimmed to the
// key-value operations the engine needs.
type RemoteTier interface {
	Get(ctx context.Context, key string) ([]byte, error) // ErrNotFound on miss
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// ErrNotFound is returned by RemoteTier.Get on a cache miss.
var ErrNotFound = domain.NotFound("cache_entry", "")

// Producer computes the value for a cache miss.
type Producer func(ctx context.Context) ([]byte, error)

// Strategy selects hybrid vs. memory-only operation (spec §4.3).
type Strategy string

const (
	StrategyHybrid     Strategy = "hybrid"
	StrategyMemoryOnly Strategy = "memory_only"
)

// Config configures the cache layer.
type Config struct {
	Strategy        Strategy
	MemoryMaxItems  int
	CleanupInterval time.Duration
	ContentTypeTTL  map[string]time.Duration
	DefaultTTL      time.Duration
}

// DefaultContentTypeTTL returns the spec §4.3 default TTLs per content
// type.
func DefaultContentTypeTTL() map[string]time.Duration {
	return map[string]time.Duration{
		"runbooks":        time.Hour,
		"decision_trees":  40 * time.Minute,
		"procedures":      30 * time.Minute,
		"knowledge_base":  15 * time.Minute,
		"list_sources":    5 * time.Minute,
		"health":          10 * time.Second,
	}
}

// Cache coordinates the memory and (optional) remote tiers.
type Cache struct {
	cfg     Config
	memory  *MemoryTier
	remote  RemoteTier
	breaker *resilience.Breaker // nil if remote disabled
	logger  *slog.Logger
	mets    *metrics.CacheMetrics
}

// New builds a Cache. remote and breaker may be nil to force
// memory-only operation regardless of cfg.Strategy.
func New(cfg Config, remote RemoteTier, breaker *resilience.Breaker, logger *slog.Logger, mets *metrics.CacheMetrics) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ContentTypeTTL == nil {
		cfg.ContentTypeTTL = DefaultContentTypeTTL()
	}
	if cfg.DefaultTTL == 0 {
		cfg.DefaultTTL = 15 * time.Minute
	}
	mem := NewMemoryTier(cfg.MemoryMaxItems, cfg.CleanupInterval, mets)
	c := &Cache{cfg: cfg, memory: mem, logger: logger, mets: mets}
	if cfg.Strategy == StrategyHybrid && remote != nil && breaker != nil {
		c.remote = remote
		c.breaker = breaker
	}
	return c
}

// remoteUsable reports whether the remote tier is currently usable: the
// strategy requests hybrid mode, a remote is configured, and its
// breaker is not sustained-open (spec §4.3 "Memory-only: remote tier
// disabled ... by remote breaker sustained-open").
func (c *Cache) remoteUsable() bool {
	return c.remote != nil && c.breaker != nil && c.breaker.State() != resilience.StateOpen
}

// TTLFor resolves the configured TTL for a content type, falling back to
// the default.
func (c *Cache) TTLFor(contentType string) time.Duration {
	if ttl, ok := c.cfg.ContentTypeTTL[contentType]; ok {
		return ttl
	}
	return c.cfg.DefaultTTL
}

// GetOrProduce implements the tiered read-through path: memory -> remote
// (through breaker) -> producer -> fill both tiers. hit reports whether
// the value came from a tier rather than the producer.
func (c *Cache) GetOrProduce(ctx context.Context, key, contentType string, epoch uint64, produce Producer) (value []byte, hit bool, tier domain.CacheTier, err error) {
	if v, ok := c.memory.Get(key, epoch); ok {
		return v, true, domain.TierMemory, nil
	}

	if c.remoteUsable() {
		var v []byte
		callErr := c.breaker.Call(ctx, func(cctx context.Context) error {
			got, gerr := c.remote.Get(cctx, key)
			if gerr != nil {
				return gerr
			}
			v = got
			return nil
		})
		if callErr == nil {
			c.memory.Set(key, v, c.TTLFor(contentType), epoch)
			return v, true, domain.TierRemote, nil
		}
		if !domain.IsKind(callErr, domain.ErrNotFound) && !domain.IsKind(callErr, domain.ErrCircuitOpen) {
			c.logger.Warn("remote cache read failed, falling through to producer", "key", key, "error", callErr)
		}
	}

	v, perr := produce(ctx)
	if perr != nil {
		return nil, false, "", perr
	}

	ttl := c.TTLFor(contentType)
	c.memory.Set(key, v, ttl, epoch)
	c.writeRemoteAsync(key, v, ttl)
	return v, false, "", nil
}

// writeRemoteAsync fire-and-forgets a remote-tier write: remote failure
// must never fail the caller (spec §4.3 invariant).
func (c *Cache) writeRemoteAsync(key string, value []byte, ttl time.Duration) {
	if !c.remoteUsable() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.breaker.Call(ctx, func(cctx context.Context) error {
			return c.remote.Set(cctx, key, value, ttl)
		}); err != nil {
			c.logger.Debug("remote cache write failed", "key", key, "error", err)
		}
	}()
}

// Invalidate removes a key from the memory tier immediately (used for
// explicit invalidation; ordinary epoch invalidation is lazy - see
// MemoryTier.Get).
func (c *Cache) Invalidate(key string) {
	c.memory.Delete(key)
}

// MemoryOccupancy returns the current entry count and configured
// capacity of the memory tier.
func (c *Cache) MemoryOccupancy() (count, capacity int) {
	return c.memory.Len(), c.memory.Capacity()
}

// Close releases tier resources (remote connection, cleanup goroutine).
func (c *Cache) Close() error {
	c.memory.Close()
	if c.remote != nil {
		return c.remote.Close()
	}
	return nil
}
