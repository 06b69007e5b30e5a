package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BreakerMetrics tracks circuit breaker state transitions per named
// upstream (spec §4.2, §4.7 "breaker state transitions").
type BreakerMetrics struct {
	State       *prometheus.GaugeVec
	Transitions *prometheus.CounterVec
	Blocked     *prometheus.CounterVec
}

func newBreakerMetrics(namespace string, reg prometheus.Registerer) *BreakerMetrics {
	factory := promauto.With(reg)
	return &BreakerMetrics{
		State: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "technical_breaker",
				Name:      "state",
				Help:      "Current breaker state (0=closed 1=open 2=half_open)",
			},
			[]string{"upstream"},
		),
		Transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "technical_breaker",
				Name:      "transitions_total",
				Help:      "Breaker state transitions by upstream, before, and after state",
			},
			[]string{"upstream", "before", "after"},
		),
		Blocked: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "technical_breaker",
				Name:      "blocked_total",
				Help:      "Calls rejected fail-fast while the breaker was open or half-open-saturated",
			},
			[]string{"upstream"},
		),
	}
}

// SetState records the breaker's current state.
func (m *BreakerMetrics) SetState(upstream string, state float64) {
	if m == nil {
		return
	}
	m.State.WithLabelValues(upstream).Set(state)
}

// RecordTransition records one breaker state transition.
func (m *BreakerMetrics) RecordTransition(upstream, before, after string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(upstream, before, after).Inc()
}

// RecordBlocked records one fail-fast rejection.
func (m *BreakerMetrics) RecordBlocked(upstream string) {
	if m == nil {
		return
	}
	m.Blocked.WithLabelValues(upstream).Inc()
}
