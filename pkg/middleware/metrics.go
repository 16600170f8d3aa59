package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// RequestMetrics counts requests by matched route pattern and final status.
// Requests that matched no route are labelled "unmatched".
func RequestMetrics(counter *prometheus.CounterVec) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		counter.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
