package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/charlesng35/signup/pkg/metrics"
)

const unmatchedRoute = "unmatched"

// Metrics times every request into the API latency histogram. Requests that match no route
// share one label.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := prometheus.NewTimer(prometheus.ObserverFunc(func(seconds float64) {
			metrics.APILatency.
				WithLabelValues(c.Request.Method, routeLabel(c), strconv.Itoa(c.Writer.Status())).
				Observe(seconds)
		}))
		defer timer.ObserveDuration()

		c.Next()
	}
}

func routeLabel(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return unmatchedRoute
}
