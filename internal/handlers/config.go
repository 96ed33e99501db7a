package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/davenrook/leasewise-backend/internal/domain"
	"github.com/davenrook/leasewise-backend/internal/platform/apierr"
	"github.com/davenrook/leasewise-backend/internal/platform/logger"
	"github.com/davenrook/leasewise-backend/internal/services"
)

type ConfigHandler struct {
	log     *logger.Logger
	configs services.IngestConfigService
}

func NewConfigHandler(log *logger.Logger, configs services.IngestConfigService) *ConfigHandler {
	return &ConfigHandler{
		log:     log.With("handler", "ConfigHandler"),
		configs: configs,
	}
}

// PUT /api/v1/configs/:name/:version
// Validate analyzers and classifiers, then store the collection config.
func (h *ConfigHandler) SetConfig(c *gin.Context) {
	name := c.Param("name")
	version := c.Param("version")

	var config domain.FieldDataCollectionConfig
	if err := c.ShouldBindJSON(&config); err != nil {
		RespondFromError(c, apierr.BadRequest("invalid config payload: %v", err))
		return
	}
	if err := h.configs.SetConfig(c.Request.Context(), &config, name, version); err != nil {
		h.log.Error("failed to set config", "name", name, "version", version, "error", err)
		RespondFromError(c, err)
		return
	}
	RespondOK(c, gin.H{"name": name, "version": version})
}

// GET /api/v1/configs/:name/:version
func (h *ConfigHandler) GetConfig(c *gin.Context) {
	name := c.Param("name")
	version := c.Param("version")

	config, err := h.configs.GetConfig(c.Request.Context(), name, version)
	if err != nil {
		RespondFromError(c, err)
		return
	}
	RespondOK(c, config)
}
