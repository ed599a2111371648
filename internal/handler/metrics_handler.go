package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crawdwall/capital-review-api/internal/service"
)

// MetricsHandler serves the Prometheus scrape endpoint and the health probe.
type MetricsHandler struct {
	metrics *service.MetricsService
}

func NewMetricsHandler(metrics *service.MetricsService) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

// Prometheus godoc
// @Summary Prometheus metrics
// @Tags Observability
// @Produce plain
// @Success 200 {string} string
// @Router /metrics [get]
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health godoc
// @Summary Liveness probe
// @Tags Observability
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "capital-review-api"})
}
