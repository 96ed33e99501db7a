package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/davenrook/leasewise-backend/internal/domain"
	"github.com/davenrook/leasewise-backend/internal/platform/apierr"
	"github.com/davenrook/leasewise-backend/internal/platform/logger"
	"github.com/davenrook/leasewise-backend/internal/services"
)

type InferenceHandler struct {
	log               *logger.Logger
	inference         services.InferenceService
	defaultConfigName string
	defaultConfigVer  string
}

func NewInferenceHandler(log *logger.Logger, inference services.InferenceService, defaultConfigName, defaultConfigVersion string) *InferenceHandler {
	return &InferenceHandler{
		log:               log.With("handler", "InferenceHandler"),
		inference:         inference,
		defaultConfigName: defaultConfigName,
		defaultConfigVer:  defaultConfigVersion,
	}
}

// POST /api/v1/configs/:name/:version/query
// Answer a question about a collection. The caller identifies itself with
// the X-User-Id header; the chat session is scoped to that user.
func (h *InferenceHandler) Query(c *gin.Context) {
	userID := c.GetHeader("X-User-Id")
	if userID == "" {
		RespondFromError(c, apierr.BadRequest("X-User-Id header is required"))
		return
	}

	configName := c.Param("name")
	if configName == "" {
		configName = h.defaultConfigName
	}
	configVersion := c.Param("version")
	if configVersion == "" {
		configVersion = h.defaultConfigVer
	}

	var req domain.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondFromError(c, apierr.BadRequest("invalid query payload: %v", err))
		return
	}
	if req.CID == "" || req.SID == "" || req.Query == "" {
		RespondFromError(c, apierr.BadRequest("cid, sid and query are required"))
		return
	}

	resp, err := h.inference.Query(c.Request.Context(), req, configName, configVersion, userID)
	if err != nil {
		h.log.Error("query failed", "cid", req.CID, "sid", req.SID, "error", err)
		RespondFromError(c, err)
		return
	}
	RespondOK(c, resp)
}
