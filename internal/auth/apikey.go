package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// APIKeyMiddleware guards internal operational endpoints (the enrichment
// trigger, metrics) behind a shared key set via X-API-Key. The public
// collect endpoints are deliberately outside it: beacons arrive from
// untrusted browsers and carry no credentials.
func APIKeyMiddleware(keys map[string]bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := strings.TrimSpace(c.GetHeader("X-API-Key"))
		if !keys[apiKey] {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
