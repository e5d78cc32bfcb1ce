package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campushub/codeathon-api/internal/service"
)

// Metrics records per-route latency and status counts. The route template is
// used as the label so /participations/:id stays one series.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			// unmatched routes fall back to the raw path (404s mostly)
			route = c.Request.URL.Path
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
