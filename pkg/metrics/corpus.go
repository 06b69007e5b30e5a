package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CorpusMetrics tracks corpus size and epoch (spec §4.7 "corpus size and
// epoch").
type CorpusMetrics struct {
	Size  prometheus.Gauge
	Epoch prometheus.Gauge
}

func newCorpusMetrics(namespace string, reg prometheus.Registerer) *CorpusMetrics {
	factory := promauto.With(reg)
	return &CorpusMetrics{
		Size: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "infra_corpus",
				Name:      "documents",
				Help:      "Total documents in the current corpus snapshot",
			},
		),
		Epoch: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "infra_corpus",
				Name:      "epoch",
				Help:      "Current corpus epoch",
			},
		),
	}
}

// Set updates both gauges after a snapshot swap.
func (m *CorpusMetrics) Set(size int, epoch uint64) {
	if m == nil {
		return
	}
	m.Size.Set(float64(size))
	m.Epoch.Set(float64(epoch))
}
