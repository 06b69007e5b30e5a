package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ToolMetrics tracks per-tool-call request rate, latency, and error rate
// (spec §4.7 "Metrics exposed: per-tool request rate, latency
// percentiles, error rate").
type ToolMetrics struct {
	RequestsTotal   *prometheus.CounterVec
	DurationSeconds *prometheus.HistogramVec
	Degraded        *prometheus.CounterVec
}

func newToolMetrics(namespace string, reg prometheus.Registerer) *ToolMetrics {
	factory := promauto.With(reg)
	return &ToolMetrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "business_tool",
				Name:      "requests_total",
				Help:      "Total tool calls by tool name and outcome status",
			},
			[]string{"tool", "status"},
		),
		DurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "business_tool",
				Name:      "duration_seconds",
				Help:      "Tool call duration from dispatch to response envelope",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"tool"},
		),
		Degraded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "business_tool",
				Name:      "degraded_total",
				Help:      "Tool calls that returned a degraded envelope",
			},
			[]string{"tool"},
		),
	}
}

// RecordCall records one completed tool call.
func (m *ToolMetrics) RecordCall(tool, status string, seconds float64, degraded bool) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(tool, status).Inc()
	m.DurationSeconds.WithLabelValues(tool).Observe(seconds)
	if degraded {
		m.Degraded.WithLabelValues(tool).Inc()
	}
}
