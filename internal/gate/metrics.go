package gate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the gate's Prometheus collectors
type Metrics struct {
	decisions *prometheus.CounterVec
}

// NewMetrics registers the gate collectors with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blog",
			Subsystem: "gate",
			Name:      "decisions_total",
			Help:      "Gate decisions by outcome and redirect reason",
		}, []string{"decision", "reason"}),
	}
}

func (m *Metrics) observe(kind Kind, reason string) {
	m.decisions.WithLabelValues(kind.String(), reason).Inc()
}
