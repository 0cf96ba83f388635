package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/clinic/internal/metrics"
)

// Health reports liveness.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Metrics returns the process counters and gauges.
func Metrics(c *gin.Context) {
	c.JSON(http.StatusOK, metrics.GetCollector().GetSnapshot())
}
