package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/crawdwall/capital-review-api/internal/service"
)

// Metrics records per-request counters and latency. The route template is
// used as the path label so /proposals/:id does not explode cardinality.
func Metrics(metrics *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			// Unmatched route, keep 404s under one label.
			path = "unmatched"
		}
		metrics.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
