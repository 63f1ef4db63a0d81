package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/homesignal/tracker/internal/auth"
	"github.com/homesignal/tracker/internal/config"
	"github.com/homesignal/tracker/internal/handlers"
	"github.com/homesignal/tracker/internal/ingest"
)

// Pinger is the readiness dependency; satisfied by the Postgres store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter wires public endpoints and internal operational APIs.
// Public: /health, /ready, /collect, /collect.gif
// Internal (X-API-Key): /internal/enrich/:event_id, /metrics
func NewRouter(cfg config.Config, db Pinger, pipe *ingest.Pipeline, enricher handlers.EventEnricher, metrics *handlers.Metrics) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())

	// Liveness: confirms the process is running.
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Readiness: confirms the DB dependency is reachable.
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	// Beacon endpoints stay public; browsers send them with no credentials.
	handlers.RegisterCollectRoutes(r, pipe)
	handlers.RegisterPixelRoutes(r, pipe)

	internal := r.Group("/")
	internal.Use(auth.APIKeyMiddleware(cfg.InternalKeys))

	handlers.RegisterEnrichRoutes(internal, enricher)
	handlers.RegisterMetricRoutes(internal, metrics)

	return r
}
