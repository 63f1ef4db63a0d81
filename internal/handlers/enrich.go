package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/homesignal/tracker/internal/enrich"
)

// RegisterEnrichRoutes registers the enrichment trigger for the external
// job scheduler.
//
// POST /internal/enrich/:event_id
//   - Invoked at-least-once after a successful write; the enrichment steps
//     are idempotent so re-delivery is harmless
//   - 204 on success (including all-steps-noop), 404 for an unknown event,
//     503 when the event could not be loaded
func RegisterEnrichRoutes(r gin.IRoutes, enricher EventEnricher) {
	r.POST("/internal/enrich/:event_id", func(c *gin.Context) {
		eventID, err := uuid.Parse(c.Param("event_id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "event_id must be a UUID"})
			return
		}

		if err := enricher.Enrich(c.Request.Context(), eventID); err != nil {
			if errors.Is(err, enrich.ErrEventNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "unknown event"})
				return
			}
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "enrichment unavailable"})
			return
		}
		c.Status(http.StatusNoContent)
	})
}
