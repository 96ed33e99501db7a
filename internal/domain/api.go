package domain

import "time"

// IngestDocumentType distinguishes ingestion targets. Collections are the
// only supported type today.
type IngestDocumentType string

const (
	IngestDocumentTypeCollection IngestDocumentType = "Collection"
)

// IngestDocumentRequest is one document to run through content understanding
// and merge into a collection.
type IngestDocumentRequest struct {
	ID             string             `json:"id"`
	Type           IngestDocumentType `json:"type"`
	Filename       string             `json:"filename"`
	FileBytes      []byte             `json:"-"`
	DateOfDocument time.Time          `json:"date_of_document"`
	LeaseID        string             `json:"lease_id"`
}

// QueryRequest is the inference request body.
type QueryRequest struct {
	CID   string `json:"cid"`
	SID   string `json:"sid"`
	Query string `json:"query"`
	Model string `json:"model,omitempty"`
}

// GeneratedResponse is the structured answer the model is asked to produce:
// response text with inline citation numbers, plus the citation alias list.
type GeneratedResponse struct {
	Response  string   `json:"response"`
	Citations []string `json:"citations"`
}

type QueryMetrics struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	TotalLatencySec  float64 `json:"total_latency_sec"`
}

// QueryResponse is the inference response: the answer text and the restored
// citations, each a [source_document, source_bounding_boxes] pair.
type QueryResponse struct {
	Response  string                 `json:"response"`
	Citations [][]string             `json:"citations"`
	Metrics   *QueryMetrics          `json:"metrics,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// HealthCheck is one dependency probe result.
type HealthCheck struct {
	Status  string `json:"status"`
	Details string `json:"details"`
}

// HealthStatus aggregates all probe results.
type HealthStatus struct {
	Status string                 `json:"status"`
	Checks map[string]HealthCheck `json:"checks"`
}

const (
	HealthStatusHealthy   = "healthy"
	HealthStatusUnhealthy = "unhealthy"
)
