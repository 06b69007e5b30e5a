package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryTier_SetGet(t *testing.T) {
	tier := NewMemoryTier(10, 0, nil)
	defer tier.Close()

	tier.Set("k1", []byte("v1"), time.Minute, 1)

	v, ok := tier.Get("k1", 1)
	assert.True(t, ok)
	assert.Equal(t, []byte("v1"), v)
}

func TestMemoryTier_MissingKey(t *testing.T) {
	tier := NewMemoryTier(10, 0, nil)
	defer tier.Close()

	_, ok := tier.Get("nope", 1)
	assert.False(t, ok)
}

func TestMemoryTier_TTLExpiry(t *testing.T) {
	tier := NewMemoryTier(10, 0, nil)
	defer tier.Close()

	tier.Set("k1", []byte("v1"), 10*time.Millisecond, 1)
	time.Sleep(20 * time.Millisecond)

	_, ok := tier.Get("k1", 1)
	assert.False(t, ok, "expired entry must be treated as a miss")
}

func TestMemoryTier_EpochInvalidation(t *testing.T) {
	tier := NewMemoryTier(10, 0, nil)
	defer tier.Close()

	tier.Set("k1", []byte("v1"), time.Minute, 1)

	_, ok := tier.Get("k1", 2)
	assert.False(t, ok, "a stale corpus epoch must invalidate the entry even before TTL elapses")
}

func TestMemoryTier_CapacityEviction(t *testing.T) {
	tier := NewMemoryTier(2, 0, nil)
	defer tier.Close()

	tier.Set("k1", []byte("v1"), time.Minute, 1)
	tier.Set("k2", []byte("v2"), time.Minute, 1)
	tier.Set("k3", []byte("v3"), time.Minute, 1)

	assert.Equal(t, 2, tier.Len())
	_, ok := tier.Get("k1", 1)
	assert.False(t, ok, "oldest entry should be evicted once capacity is exceeded")
}

func TestMemoryTier_Delete(t *testing.T) {
	tier := NewMemoryTier(10, 0, nil)
	defer tier.Close()

	tier.Set("k1", []byte("v1"), time.Minute, 1)
	tier.Delete("k1")

	_, ok := tier.Get("k1", 1)
	assert.False(t, ok)
}

func TestMemoryTier_CleanupLoopSweepsExpired(t *testing.T) {
	tier := NewMemoryTier(10, 5*time.Millisecond, nil)
	defer tier.Close()

	tier.Set("k1", []byte("v1"), 5*time.Millisecond, 1)
	time.Sleep(40 * time.Millisecond)

	assert.Equal(t, 0, tier.Len(), "background sweep should have purged the expired entry")
}
