package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/edgegw/internal/observability"
)

// RouteKey is the context key handlers use to name the matched route
// for metrics.
const RouteKey = "metricsRoute"

// unmatchedRoute labels requests no handler named.
const unmatchedRoute = "unmatched"

// Metrics returns a middleware that records request metrics.
func Metrics(metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics == nil {
			c.Next()
			return
		}

		start := time.Now()
		metrics.IncrementActiveRequests()
		defer metrics.DecrementActiveRequests()

		c.Next()

		metrics.RecordRequest(c.Request.Method, routeLabel(c), c.Writer.Status(), time.Since(start))
	}
}

func routeLabel(c *gin.Context) string {
	if route := c.GetString(RouteKey); route != "" {
		return route
	}
	if route := c.FullPath(); route != "" {
		return route
	}
	return unmatchedRoute
}
