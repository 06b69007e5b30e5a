package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CacheMetrics tracks hit rate per tier and memory-tier occupancy
// (spec §4.3, §4.7 "cache hit rates per tier").
type CacheMetrics struct {
	Hits         *prometheus.CounterVec
	Misses       *prometheus.CounterVec
	Evictions    *prometheus.CounterVec
	MemoryItems  prometheus.Gauge
	MemoryCap    prometheus.Gauge
}

func newCacheMetrics(namespace string, reg prometheus.Registerer) *CacheMetrics {
	factory := promauto.With(reg)
	return &CacheMetrics{
		Hits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "infra_cache",
				Name:      "hits_total",
				Help:      "Cache hits by tier",
			},
			[]string{"tier"},
		),
		Misses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "infra_cache",
				Name:      "misses_total",
				Help:      "Cache misses by tier",
			},
			[]string{"tier"},
		),
		Evictions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "infra_cache",
				Name:      "evictions_total",
				Help:      "Cache entries evicted by tier and reason (ttl, capacity, epoch)",
			},
			[]string{"tier", "reason"},
		),
		MemoryItems: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "infra_cache",
				Name:      "memory_entries",
				Help:      "Current entry count in the memory tier",
			},
		),
		MemoryCap: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "infra_cache",
				Name:      "memory_capacity",
				Help:      "Configured entry capacity of the memory tier",
			},
		),
	}
}

// RecordHit records a cache hit for the given tier ("memory" or "remote").
func (m *CacheMetrics) RecordHit(tier string) {
	if m == nil {
		return
	}
	m.Hits.WithLabelValues(tier).Inc()
}

// RecordMiss records a cache miss for the given tier.
func (m *CacheMetrics) RecordMiss(tier string) {
	if m == nil {
		return
	}
	m.Misses.WithLabelValues(tier).Inc()
}

// RecordEviction records an eviction for the given tier and reason.
func (m *CacheMetrics) RecordEviction(tier, reason string) {
	if m == nil {
		return
	}
	m.Evictions.WithLabelValues(tier, reason).Inc()
}

// SetMemoryOccupancy sets the current/capacity gauges for the memory tier.
func (m *CacheMetrics) SetMemoryOccupancy(current, capacity int) {
	if m == nil {
		return
	}
	m.MemoryItems.Set(float64(current))
	m.MemoryCap.Set(float64(capacity))
}
