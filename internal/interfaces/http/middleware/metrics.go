package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/autofragment/internal/infrastructure/monitoring/prometheus"
)

// Metrics records request counts and latencies by route template, so that
// run ids do not explode label cardinality.
func Metrics(m *prometheus.AppMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		prometheus.RecordHTTPRequest(m, c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

//Personal.AI order the ending
