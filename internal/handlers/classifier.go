package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/davenrook/leasewise-backend/internal/platform/apierr"
	"github.com/davenrook/leasewise-backend/internal/platform/docintel"
	"github.com/davenrook/leasewise-backend/internal/platform/logger"
)

type ClassifierHandler struct {
	log     *logger.Logger
	content docintel.Client
}

func NewClassifierHandler(log *logger.Logger, content docintel.Client) *ClassifierHandler {
	return &ClassifierHandler{
		log:     log.With("handler", "ClassifierHandler"),
		content: content,
	}
}

// PUT /api/v1/classifiers/:classifier_id
// Create the classifier and block until the operation settles.
func (h *ClassifierHandler) CreateClassifier(c *gin.Context) {
	classifierID := c.Param("classifier_id")

	var schema map[string]any
	if err := c.ShouldBindJSON(&schema); err != nil {
		RespondFromError(c, apierr.BadRequest("invalid classifier schema: %v", err))
		return
	}

	op, err := h.content.CreateClassifier(c.Request.Context(), classifierID, schema)
	if err != nil {
		h.log.Error("failed to create classifier", "classifier_id", classifierID, "error", err)
		RespondFromError(c, err)
		return
	}
	if _, err := h.content.PollResult(c.Request.Context(), op); err != nil {
		h.log.Error("classifier creation did not complete", "classifier_id", classifierID, "error", err)
		RespondFromError(c, err)
		return
	}
	RespondOK(c, gin.H{"classifier_id": classifierID})
}

// GET /api/v1/classifiers/:classifier_id
func (h *ClassifierHandler) GetClassifier(c *gin.Context) {
	classifierID := c.Param("classifier_id")

	detail, err := h.content.GetClassifier(c.Request.Context(), classifierID)
	if err != nil {
		if docintel.IsNotFound(err) {
			RespondFromError(c, apierr.NotFound("classifier %s not found", classifierID))
			return
		}
		RespondFromError(c, err)
		return
	}
	RespondOK(c, detail)
}
