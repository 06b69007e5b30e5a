// Package metrics provides centralized Prometheus metrics management for
// the runbook engine.
//
// Metrics follow a fixed taxonomy:
//
//	runbook_engine_<category>_<subsystem>_<metric_name>_<unit>
//
// Categories: tool (per-tool request rate/latency/error rate, §4.7),
// adapter (per-adapter request count/latency/health, §4.7), cache
// (hit rate per tier, memory entry count, §4.3), breaker (state
// transitions, §4.2), corpus (size and epoch, §4.4).
//
// Each MetricsRegistry owns a private prometheus.Registerer so that
// multiple engine instances (or tests) can construct independent
// registries without colliding on duplicate metric registration.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsRegistry is the central registry for all engine metrics,
// organized by category. Thread-safe; category managers are
// lazy-initialized on first access.
type MetricsRegistry struct {
	namespace string
	reg       *prometheus.Registry

	toolOnce    sync.Once
	adapterOnce sync.Once
	cacheOnce   sync.Once
	breakerOnce sync.Once
	corpusOnce  sync.Once
	retryOnce   sync.Once

	tool    *ToolMetrics
	adapter *AdapterMetrics
	cache   *CacheMetrics
	breaker *BreakerMetrics
	corpus  *CorpusMetrics
	retry   *RetryMetrics
}

// NewMetricsRegistry creates a new MetricsRegistry with its own
// prometheus.Registry under the given namespace (default
// "runbook_engine" if empty).
func NewMetricsRegistry(namespace string) *MetricsRegistry {
	if namespace == "" {
		namespace = "runbook_engine"
	}
	return &MetricsRegistry{
		namespace: namespace,
		reg:       prometheus.NewRegistry(),
	}
}

// Namespace returns the configured metric namespace.
func (r *MetricsRegistry) Namespace() string { return r.namespace }

// Gatherer exposes the underlying registry for a promhttp.Handler.
func (r *MetricsRegistry) Gatherer() prometheus.Gatherer { return r.reg }

// Tool returns the per-tool-call metrics manager.
func (r *MetricsRegistry) Tool() *ToolMetrics {
	r.toolOnce.Do(func() { r.tool = newToolMetrics(r.namespace, r.reg) })
	return r.tool
}

// Adapter returns the per-adapter metrics manager.
func (r *MetricsRegistry) Adapter() *AdapterMetrics {
	r.adapterOnce.Do(func() { r.adapter = newAdapterMetrics(r.namespace, r.reg) })
	return r.adapter
}

// Cache returns the cache-tier metrics manager.
func (r *MetricsRegistry) Cache() *CacheMetrics {
	r.cacheOnce.Do(func() { r.cache = newCacheMetrics(r.namespace, r.reg) })
	return r.cache
}

// Breaker returns the circuit-breaker metrics manager.
func (r *MetricsRegistry) Breaker() *BreakerMetrics {
	r.breakerOnce.Do(func() { r.breaker = newBreakerMetrics(r.namespace, r.reg) })
	return r.breaker
}

// Corpus returns the corpus-size/epoch metrics manager.
func (r *MetricsRegistry) Corpus() *CorpusMetrics {
	r.corpusOnce.Do(func() { r.corpus = newCorpusMetrics(r.namespace, r.reg) })
	return r.corpus
}

// Retry returns the retry-operation metrics manager.
func (r *MetricsRegistry) Retry() *RetryMetrics {
	r.retryOnce.Do(func() { r.retry = newRetryMetrics(r.namespace, r.reg) })
	return r.retry
}
