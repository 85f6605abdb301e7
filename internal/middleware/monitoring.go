package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Uncodier/API-sub015/internal/monitoring"
)

// HTTPMetrics 按方法、路由和状态码记录请求计数与时延
func HTTPMetrics(metrics *monitoring.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		metrics.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(time.Since(start).Seconds())

		if c.Writer.Status() >= 400 {
			metrics.ErrorsTotal.WithLabelValues("http").Inc()
		}
	}
}
