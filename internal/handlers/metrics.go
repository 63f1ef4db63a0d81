package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/homesignal/tracker/internal/enrich"
	"github.com/homesignal/tracker/internal/ingest"
)

// Metrics bundles the service's prometheus registry with the per-component
// counter sets handed into the pipeline and the enricher.
type Metrics struct {
	registry *prometheus.Registry
	Ingest   *ingest.Metrics
	Enrich   *enrich.Metrics
}

// NewMetrics builds a dedicated registry with process/go collectors plus
// the ingestion and enrichment counters.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Metrics{
		registry: reg,
		Ingest:   ingest.NewMetrics(reg),
		Enrich:   enrich.NewMetrics(reg),
	}
}

// RegisterMetricRoutes exposes the prometheus endpoint. Mounted behind the
// internal API key: beacon clients have no business scraping it.
func RegisterMetricRoutes(r gin.IRoutes, m *Metrics) {
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})))
}
