package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// AdapterMetrics tracks per-adapter call outcomes and health status,
// feeding the health monitor's rolling-window calculations (spec §4.7).
type AdapterMetrics struct {
	CallsTotal      *prometheus.CounterVec
	DurationSeconds *prometheus.HistogramVec
	HealthStatus    *prometheus.GaugeVec
	DocumentCount   *prometheus.GaugeVec
}

func newAdapterMetrics(namespace string, reg prometheus.Registerer) *AdapterMetrics {
	factory := promauto.With(reg)
	return &AdapterMetrics{
		CallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "infra_adapter",
				Name:      "calls_total",
				Help:      "Adapter calls by adapter name, operation, and outcome",
			},
			[]string{"adapter", "operation", "outcome"},
		),
		DurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "infra_adapter",
				Name:      "duration_seconds",
				Help:      "Adapter call duration",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"adapter", "operation"},
		),
		// 0=healthy 1=degraded 2=unhealthy, mirroring domain.HealthStatus ordinal.
		HealthStatus: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "infra_adapter",
				Name:      "health_status",
				Help:      "Current adapter health status (0=healthy 1=degraded 2=unhealthy)",
			},
			[]string{"adapter"},
		),
		DocumentCount: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "infra_adapter",
				Name:      "document_count",
				Help:      "Documents currently indexed for this adapter",
			},
			[]string{"adapter"},
		),
	}
}

// RecordCall records one adapter call outcome.
func (m *AdapterMetrics) RecordCall(adapter, operation, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.CallsTotal.WithLabelValues(adapter, operation, outcome).Inc()
	m.DurationSeconds.WithLabelValues(adapter, operation).Observe(seconds)
}

// SetHealth sets the health status gauge for an adapter (0/1/2).
func (m *AdapterMetrics) SetHealth(adapter string, status float64) {
	if m == nil {
		return
	}
	m.HealthStatus.WithLabelValues(adapter).Set(status)
}

// SetDocumentCount sets the indexed document count gauge for an adapter.
func (m *AdapterMetrics) SetDocumentCount(adapter string, count float64) {
	if m == nil {
		return
	}
	m.DocumentCount.WithLabelValues(adapter).Set(count)
}
