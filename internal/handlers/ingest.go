package handlers

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/davenrook/leasewise-backend/internal/domain"
	"github.com/davenrook/leasewise-backend/internal/platform/apierr"
	"github.com/davenrook/leasewise-backend/internal/platform/logger"
	"github.com/davenrook/leasewise-backend/internal/services"
)

const dateOfDocumentLayout = "2006-01-02"

type IngestHandler struct {
	log               *logger.Logger
	runner            services.IngestRunner
	defaultConfigName string
	defaultConfigVer  string
}

func NewIngestHandler(log *logger.Logger, runner services.IngestRunner, defaultConfigName, defaultConfigVersion string) *IngestHandler {
	return &IngestHandler{
		log:               log.With("handler", "IngestHandler"),
		runner:            runner,
		defaultConfigName: defaultConfigName,
		defaultConfigVer:  defaultConfigVersion,
	}
}

// POST /api/v1/collections/:collection_id/documents
// Accepts a PDF either as a multipart "file" part or as the raw request
// body. lease_id and date_of_document come from the form or the query
// string; the date defaults to today.
func (h *IngestHandler) IngestDocument(c *gin.Context) {
	collectionID := c.Param("collection_id")
	if collectionID == "" {
		RespondFromError(c, apierr.BadRequest("collection_id is required"))
		return
	}

	configName := c.DefaultQuery("config_name", h.defaultConfigName)
	configVersion := c.DefaultQuery("config_version", h.defaultConfigVer)

	filename, fileBytes, err := h.readDocument(c)
	if err != nil {
		RespondFromError(c, err)
		return
	}

	leaseID := c.PostForm("lease_id")
	if leaseID == "" {
		leaseID = c.Query("lease_id")
	}

	dateOfDocument := time.Now().UTC()
	if raw := firstNonEmpty(c.PostForm("date_of_document"), c.Query("date_of_document")); raw != "" {
		parsed, perr := time.Parse(dateOfDocumentLayout, raw)
		if perr != nil {
			RespondFromError(c, apierr.BadRequest("invalid date_of_document %q, expected YYYY-MM-DD", raw))
			return
		}
		dateOfDocument = parsed
	}

	req := domain.IngestDocumentRequest{
		ID:             collectionID,
		Type:           domain.IngestDocumentTypeCollection,
		Filename:       filename,
		FileBytes:      fileBytes,
		DateOfDocument: dateOfDocument,
		LeaseID:        leaseID,
	}
	if err := h.runner.IngestDocuments(c.Request.Context(), configName, configVersion, []domain.IngestDocumentRequest{req}); err != nil {
		h.log.Error("document ingestion failed", "collection_id", collectionID, "filename", filename, "error", err)
		RespondFromError(c, err)
		return
	}
	RespondOK(c, gin.H{"collection_id": collectionID, "filename": filename})
}

func (h *IngestHandler) readDocument(c *gin.Context) (string, []byte, error) {
	if file, err := c.FormFile("file"); err == nil {
		f, err := file.Open()
		if err != nil {
			return "", nil, apierr.BadRequest("unable to open uploaded file: %v", err)
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return "", nil, apierr.BadRequest("unable to read uploaded file: %v", err)
		}
		return file.Filename, data, nil
	}

	filename := firstNonEmpty(c.Query("filename"), c.Query("document_name"))
	if filename == "" {
		return "", nil, apierr.BadRequest("filename is required when uploading a raw body")
	}
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return "", nil, apierr.BadRequest("unable to read request body: %v", err)
	}
	if len(data) == 0 {
		return "", nil, apierr.BadRequest("document body is empty")
	}
	return filename, data, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
