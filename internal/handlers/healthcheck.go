package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/davenrook/leasewise-backend/internal/domain"
	"github.com/davenrook/leasewise-backend/internal/platform/logger"
	"github.com/davenrook/leasewise-backend/internal/services"
)

type HealthCheckHandler struct {
	log    *logger.Logger
	health services.HealthCheckService
}

func NewHealthCheckHandler(log *logger.Logger, health services.HealthCheckService) *HealthCheckHandler {
	return &HealthCheckHandler{
		log:    log.With("handler", "HealthCheckHandler"),
		health: health,
	}
}

// GET /healthz
func (h *HealthCheckHandler) HealthCheck(c *gin.Context) {
	status := h.health.PerformHealthChecks(c.Request.Context())
	if status.Status != domain.HealthStatusHealthy {
		c.JSON(http.StatusServiceUnavailable, status)
		return
	}
	c.JSON(http.StatusOK, status)
}
