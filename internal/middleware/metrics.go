package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abel-mek/school-roster-api/internal/service"
)

// Metrics records duration and status for every request. The route template
// is used as the path label so /roster/parents/:parentId/children stays one
// series regardless of the parent ID.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	if metricsSvc == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			// unmatched routes (404s) fall back to the raw path
			path = c.Request.URL.Path
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
