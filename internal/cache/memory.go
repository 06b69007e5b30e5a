package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/relentless-ops/runbook-engine/pkg/metrics"
)

// memEntry is the value golang-lru stores per key. The library has no
// built-in per-entry TTL or epoch tagging, so both are carried alongside
// the payload and checked lazily on Get.
type memEntry struct {
	value      []byte
	insertedAt time.Time
	ttl        time.Duration
	epoch      uint64
}

func (e memEntry) expired(now time.Time, currentEpoch uint64) bool {
	if e.epoch != currentEpoch {
		return true
	}
	return now.Sub(e.insertedAt) >= e.ttl
}

// MemoryTier is the mandatory bounded in-process cache tier: an LRU of
// fixed capacity with lazy TTL and corpus-epoch expiry, plus a periodic
// sweep so idle entries don't linger past their TTL until the next read.
type MemoryTier struct {
	mu        sync.Mutex
	lru       *lru.Cache[string, memEntry]
	capacity  int
	mets      *metrics.CacheMetrics
	closeOnce sync.Once
	stopCh    chan struct{}
}

// NewMemoryTier builds a MemoryTier of the given capacity. If
// cleanupInterval is positive a background goroutine periodically purges
// expired entries; otherwise expiry is checked lazily on Get only.
func NewMemoryTier(capacity int, cleanupInterval time.Duration, mets *metrics.CacheMetrics) *MemoryTier {
	if capacity <= 0 {
		capacity = 10000
	}
	c, _ := lru.New[string, memEntry](capacity)
	t := &MemoryTier{lru: c, capacity: capacity, mets: mets, stopCh: make(chan struct{})}
	if cleanupInterval > 0 {
		go t.cleanupLoop(cleanupInterval)
	}
	return t
}

// Get returns the cached value if present, unexpired, and tagged with
// the current corpus epoch.
func (t *MemoryTier) Get(key string, currentEpoch uint64) ([]byte, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.lru.Get(key)
	if !ok {
		t.mets.RecordMiss("memory")
		return nil, false
	}
	if e.expired(time.Now(), currentEpoch) {
		t.lru.Remove(key)
		t.mets.RecordEviction("memory", evictionReason(e, currentEpoch))
		t.mets.RecordMiss("memory")
		return nil, false
	}
	t.mets.RecordHit("memory")
	return e.value, true
}

func evictionReason(e memEntry, currentEpoch uint64) string {
	if e.epoch != currentEpoch {
		return "epoch"
	}
	return "ttl"
}

// Set inserts or replaces an entry, evicting the LRU victim if the tier
// is at capacity.
func (t *MemoryTier) Set(key string, value []byte, ttl time.Duration, epoch uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	evicted := t.lru.Add(key, memEntry{value: value, insertedAt: time.Now(), ttl: ttl, epoch: epoch})
	if evicted {
		t.mets.RecordEviction("memory", "capacity")
	}
	t.mets.SetMemoryOccupancy(t.lru.Len(), t.capacity)
}

// Delete removes a key immediately.
func (t *MemoryTier) Delete(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lru.Remove(key)
}

// Len returns the current entry count.
func (t *MemoryTier) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lru.Len()
}

// Capacity returns the configured entry capacity.
func (t *MemoryTier) Capacity() int {
	return t.capacity
}

func (t *MemoryTier) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			t.sweep()
		case <-t.stopCh:
			return
		}
	}
}

// sweep removes all entries whose TTL has elapsed. Epoch-based
// invalidation stays lazy (checked on Get) since the tier has no way to
// learn "the current epoch" on its own - the Cache coordinator passes it
// in per-call.
func (t *MemoryTier) sweep() {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	for _, key := range t.lru.Keys() {
		e, ok := t.lru.Peek(key)
		if !ok {
			continue
		}
		if now.Sub(e.insertedAt) >= e.ttl {
			t.lru.Remove(key)
			t.mets.RecordEviction("memory", "ttl")
		}
	}
	t.mets.SetMemoryOccupancy(t.lru.Len(), t.capacity)
}

// Close stops the background cleanup goroutine.
func (t *MemoryTier) Close() {
	t.closeOnce.Do(func() { close(t.stopCh) })
}
