package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
)

// HTTPRecorder defines methods needed by the middleware
type HTTPRecorder interface {
	RecordHTTPRequest(method, path string, status int)
	RecordHTTPDuration(method, endpoint string, duration float64)
}

// unmatchedPath labels requests that hit no route, keeping label cardinality bounded
const unmatchedPath = "unmatched"

// MetricsMiddleware creates a Gin middleware that collects HTTP metrics
func MetricsMiddleware(recorder HTTPRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = unmatchedPath
		}

		recorder.RecordHTTPRequest(c.Request.Method, path, c.Writer.Status())
		recorder.RecordHTTPDuration(c.Request.Method, path, time.Since(start).Seconds())
	}
}
