package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/monitoring/prometheus"
)

// Metrics records request counts and latency labelled by the matched route
// template, so path parameters do not explode label cardinality.
func Metrics(m *prometheus.MMPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

//Personal.AI order the ending
