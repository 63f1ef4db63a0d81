package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/homesignal/tracker/internal/ingest"
)

// transparentGIF is a 1x1 transparent image, the classic noscript tracking
// pixel response.
var transparentGIF = []byte(
	"GIF89a\x01\x00\x01\x00\x80\x00\x00\xff\xff\xff\x00\x00\x00," +
		"\x00\x00\x00\x00\x01\x00\x01\x00\x00\x02\x02D\x01\x00;")

// intParams are query keys coerced to integers before normalization.
var intParams = map[string]bool{"v": true, "tz_offset_min": true}

// RegisterPixelRoutes registers the noscript fallback endpoint.
//
// GET /collect.gif
//   - Query params become a page_load event with generated session, client
//     and event identifiers (no JS means no stable client-side session)
//   - Always answers the 1x1 GIF with 200; invalid params are dropped
//     silently so the pixel never breaks a page
func RegisterPixelRoutes(r gin.IRoutes, pipe *ingest.Pipeline) {
	r.GET("/collect.gif", func(c *gin.Context) {
		payload := map[string]any{}
		for key, values := range c.Request.URL.Query() {
			if len(values) == 0 || values[0] == "" {
				continue
			}
			if intParams[key] {
				if n, err := strconv.Atoi(values[0]); err == nil {
					payload[key] = n
				}
				continue
			}
			payload[key] = values[0]
		}

		if _, ok := payload["event_type"]; !ok {
			payload["event_type"] = "page_load"
		}
		if _, ok := payload["v"]; !ok {
			payload["v"] = 0
		}
		if _, ok := payload["site_key"]; !ok {
			payload["site_key"] = "noscript_fallback"
		}
		payload["session_id"] = generatedID("sid")
		payload["client_id"] = generatedID("cid")
		payload["event_id"] = uuid.New().String()

		if raw, err := json.Marshal(payload); err == nil {
			reqCtx := ingest.RequestContext{
				ClientIP:  clientIP(c),
				UserAgent: c.GetHeader("User-Agent"),
			}
			pipe.IngestOne(c.Request.Context(), raw, reqCtx)
		}

		c.Header("Cache-Control", "no-store")
		c.Data(http.StatusOK, "image/gif", transparentGIF)
	})
}

// generatedID builds a throwaway identifier for pixel hits, which carry no
// client-side state to correlate on.
func generatedID(prefix string) string {
	return fmt.Sprintf("%s_%d_%s", prefix, time.Now().Unix(), uuid.New().String()[:8])
}
