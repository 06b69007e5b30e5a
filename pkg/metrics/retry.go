package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RetryMetrics tracks retry operation outcomes, keyed by operation name
// (e.g. an adapter or remote-cache upstream name).
type RetryMetrics struct {
	AttemptsTotal      *prometheus.CounterVec
	DurationSeconds    *prometheus.HistogramVec
	BackoffSeconds     *prometheus.HistogramVec
	FinalAttemptsTotal *prometheus.HistogramVec
}

func newRetryMetrics(namespace string, reg prometheus.Registerer) *RetryMetrics {
	factory := promauto.With(reg)
	return &RetryMetrics{
		AttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "technical_retry",
				Name:      "attempts_total",
				Help:      "Total number of retry attempts by operation, outcome, and error type",
			},
			[]string{"operation", "outcome", "error_type"},
		),
		DurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "technical_retry",
				Name:      "duration_seconds",
				Help:      "Duration of retry operations from start to completion",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"operation", "outcome"},
		),
		BackoffSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "technical_retry",
				Name:      "backoff_seconds",
				Help:      "Actual backoff delay between retry attempts",
				Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.2, 0.5, 1, 2, 5},
			},
			[]string{"operation"},
		),
		FinalAttemptsTotal: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "technical_retry",
				Name:      "final_attempts_total",
				Help:      "Number of attempts until final success or failure",
				Buckets:   []float64{1, 2, 3, 4, 5, 10, 20},
			},
			[]string{"operation", "outcome"},
		),
	}
}

// RecordAttempt records a single retry attempt.
func (m *RetryMetrics) RecordAttempt(operation, outcome, errorType string, duration float64) {
	if m == nil {
		return
	}
	m.AttemptsTotal.WithLabelValues(operation, outcome, errorType).Inc()
	m.DurationSeconds.WithLabelValues(operation, outcome).Observe(duration)
}

// RecordBackoff records the backoff delay before a retry attempt.
func (m *RetryMetrics) RecordBackoff(operation string, delaySeconds float64) {
	if m == nil {
		return
	}
	m.BackoffSeconds.WithLabelValues(operation).Observe(delaySeconds)
}

// RecordFinalAttempt records the final attempt count on completion.
func (m *RetryMetrics) RecordFinalAttempt(operation, outcome string, attempts int) {
	if m == nil {
		return
	}
	m.FinalAttemptsTotal.WithLabelValues(operation, outcome).Observe(float64(attempts))
}

// Reset clears all retry metrics (explicit reset only, per spec §4.7).
func (m *RetryMetrics) Reset() {
	if m == nil {
		return
	}
	m.AttemptsTotal.Reset()
	m.DurationSeconds.Reset()
	m.BackoffSeconds.Reset()
	m.FinalAttemptsTotal.Reset()
}
