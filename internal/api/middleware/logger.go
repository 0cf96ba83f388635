package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"example.com/clinic/internal/metrics"
)

// RequestLogger logs one structured line per request and feeds the HTTP
// counters.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		collector := metrics.GetCollector()
		collector.IncrementCounter(metrics.CounterHTTPRequests, 1)

		status := c.Writer.Status()
		event := log.Info()
		if status >= 500 {
			event = log.Error()
			collector.IncrementCounter(metrics.CounterHTTPRequestsError, 1)
		} else if status >= 400 {
			event = log.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}
