package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/homesignal/tracker/internal/ingest"
	"github.com/homesignal/tracker/internal/models"
)

// maxBodyBytes caps a collect request body. sendBeacon payloads are tiny;
// anything near this limit is not a beacon.
const maxBodyBytes = 256 << 10

// RegisterCollectRoutes registers the ingestion-path endpoint.
//
// POST /collect
//   - Public: beacons come from untrusted browsers with no credentials
//   - Accepts one payload object or an array (batch)
//   - Per-item: invalid items are skipped and reported at their index,
//     valid siblings are ingested
//   - 202 when at least one item was stored or idempotently matched,
//     400 when every item was invalid, 500 when storage failed for all
func RegisterCollectRoutes(r gin.IRoutes, pipe *ingest.Pipeline) {
	r.POST("/collect", func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
			return
		}

		reqCtx := ingest.RequestContext{
			ClientIP:  clientIP(c),
			UserAgent: c.GetHeader("User-Agent"),
		}

		results := pipe.IngestBatch(c.Request.Context(), body, reqCtx)

		resp := models.CollectResponse{Results: make([]models.CollectResult, len(results))}
		sawStorageFailure := false
		for i, res := range results {
			switch {
			case res.Err == nil:
				resp.Accepted++
				resp.Results[i] = models.CollectResult{
					EventID:   res.EventID.String(),
					Duplicate: res.Duplicate,
				}
			case res.ValidationFields() != nil:
				resp.Results[i] = models.CollectResult{Errors: res.ValidationFields()}
			default:
				sawStorageFailure = true
				resp.Results[i] = models.CollectResult{
					Errors: map[string]string{"storage": "temporarily unavailable"},
				}
			}
		}

		status := http.StatusAccepted
		if resp.Accepted == 0 {
			status = http.StatusBadRequest
			if sawStorageFailure {
				status = http.StatusInternalServerError
			}
		}
		c.JSON(status, resp)
	})
}

// clientIP prefers the first hop of X-Forwarded-For, falling back to the
// socket peer.
func clientIP(c *gin.Context) string {
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return c.ClientIP()
}
