package ingest

import "github.com/prometheus/client_golang/prometheus"

// Ingestion outcomes used as the status label on EventsIngested.
const (
	StatusCreated   = "created"
	StatusDuplicate = "duplicate"
	StatusInvalid   = "invalid"
	StatusFailed    = "failed"
)

// Metrics holds the ingestion-path counters. A nil *Metrics is valid and
// records nothing, so tests can run the pipeline bare.
type Metrics struct {
	EventsIngested *prometheus.CounterVec
}

// NewMetrics creates and registers the ingestion counters.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_events_ingested_total",
			Help: "Beacon payload items processed, by event type and outcome",
		}, []string{"event_type", "status"}),
	}
	reg.MustRegister(m.EventsIngested)
	return m
}

func (m *Metrics) observe(eventType, status string) {
	if m == nil {
		return
	}
	if eventType == "" {
		eventType = "unknown"
	}
	m.EventsIngested.WithLabelValues(eventType, status).Inc()
}
