package enrich

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts enrichment step outcomes. A nil *Metrics records nothing.
type Metrics struct {
	Steps *prometheus.CounterVec
}

// NewMetrics creates and registers the enrichment counters.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_enrichment_steps_total",
			Help: "Enrichment step executions, by step and outcome",
		}, []string{"step", "outcome"}),
	}
	reg.MustRegister(m.Steps)
	return m
}

func (m *Metrics) observe(step, outcome string) {
	if m == nil {
		return
	}
	m.Steps.WithLabelValues(step, outcome).Inc()
}
