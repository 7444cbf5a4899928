package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/concern-verifier-api/internal/service"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics    *service.MetricsService
	db         Pinger
	queueDepth func() int
}

// NewMetricsHandler constructs a metrics handler. db and queueDepth may be nil.
func NewMetricsHandler(metrics *service.MetricsService, db Pinger, queueDepth func() int) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, db: db, queueDepth: queueDepth}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health responds with a generic OK payload for liveness probes.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready checks the database and reports the verification backlog.
func (h *MetricsHandler) Ready(c *gin.Context) {
	body := gin.H{"status": "ready"}
	if h.queueDepth != nil {
		body["queueDepth"] = h.queueDepth()
	}
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			body["status"] = "unavailable"
			body["database"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
	}
	c.JSON(http.StatusOK, body)
}
