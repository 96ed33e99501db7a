package docintel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/davenrook/leasewise-backend/internal/domain"
	"github.com/davenrook/leasewise-backend/internal/platform/envutil"
	"github.com/davenrook/leasewise-backend/internal/platform/logger"
)

const apiVersion = "2024-12-01-preview"

// Operation is a handle for an in-flight analyze or classify call. The
// service reports the polling URL in the Operation-Location header.
type Operation struct {
	Location string
}

// Client talks to the document analysis service. Analyzer calls extract
// fields from a whole document; classifier calls split it into categorized
// sections first.
type Client interface {
	BeginAnalyze(ctx context.Context, analyzerID string, data []byte) (*Operation, error)
	BeginClassify(ctx context.Context, classifierID string, data []byte) (*Operation, error)
	PollResult(ctx context.Context, op *Operation) (*domain.ContentResult, error)

	ListAnalyzers(ctx context.Context) ([]map[string]any, error)
	CreateAnalyzer(ctx context.Context, analyzerID string, template map[string]any) (*Operation, error)

	ListClassifiers(ctx context.Context) ([]map[string]any, error)
	CreateClassifier(ctx context.Context, classifierID string, schema map[string]any) (*Operation, error)
	GetClassifier(ctx context.Context, classifierID string) (map[string]any, error)
}

type client struct {
	log          *logger.Logger
	endpoint     string
	key          string
	httpClient   *http.Client
	pollInterval time.Duration
	pollTimeout  time.Duration
}

func NewClient(log *logger.Logger) (Client, error) {
	endpoint := strings.TrimSpace(os.Getenv("CONTENT_UNDERSTANDING_ENDPOINT"))
	if endpoint == "" {
		return nil, fmt.Errorf("missing CONTENT_UNDERSTANDING_ENDPOINT")
	}
	key := strings.TrimSpace(os.Getenv("CONTENT_UNDERSTANDING_KEY"))
	if key == "" {
		return nil, fmt.Errorf("missing CONTENT_UNDERSTANDING_KEY")
	}

	return &client{
		log:          log.With("client", "ContentUnderstandingClient"),
		endpoint:     strings.TrimRight(endpoint, "/"),
		key:          key,
		httpClient:   &http.Client{Timeout: envutil.Duration("CONTENT_UNDERSTANDING_TIMEOUT", 60*time.Second)},
		pollInterval: envutil.Duration("CONTENT_UNDERSTANDING_POLL_INTERVAL", 2*time.Second),
		pollTimeout:  envutil.Duration("CONTENT_UNDERSTANDING_POLL_TIMEOUT", 5*time.Minute),
	}, nil
}

type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("content understanding http %d: %s", e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a 404 from the service.
func IsNotFound(err error) bool {
	se, ok := err.(*StatusError)
	return ok && se.StatusCode == http.StatusNotFound
}

func (c *client) url(path string) string {
	return c.endpoint + path + "?api-version=" + url.QueryEscape(apiVersion)
}

func (c *client) do(ctx context.Context, method, path string, contentType string, body io.Reader) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.key)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func (c *client) doJSON(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}
	return c.do(ctx, method, path, "application/json", &buf)
}

func (c *client) begin(ctx context.Context, path string, data []byte) (*Operation, error) {
	resp, _, err := c.do(ctx, http.MethodPost, path, "application/octet-stream", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	loc := resp.Header.Get("Operation-Location")
	if loc == "" {
		return nil, fmt.Errorf("missing Operation-Location header for %s", path)
	}
	return &Operation{Location: loc}, nil
}

func (c *client) BeginAnalyze(ctx context.Context, analyzerID string, data []byte) (*Operation, error) {
	c.log.Info("Starting document analysis", "analyzer_id", analyzerID, "bytes", len(data))
	return c.begin(ctx, "/contentunderstanding/analyzers/"+url.PathEscape(analyzerID)+":analyze", data)
}

func (c *client) BeginClassify(ctx context.Context, classifierID string, data []byte) (*Operation, error) {
	c.log.Info("Starting document classification", "classifier_id", classifierID, "bytes", len(data))
	return c.begin(ctx, "/contentunderstanding/classifiers/"+url.PathEscape(classifierID)+":classify", data)
}

// PollResult blocks until the operation settles or the poll timeout lapses.
func (c *client) PollResult(ctx context.Context, op *Operation) (*domain.ContentResult, error) {
	deadline := time.Now().Add(c.pollTimeout)
	for {
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("operation did not complete within %s", c.pollTimeout)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, op.Location, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Ocp-Apim-Subscription-Key", c.key)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		raw, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, readErr
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
		}

		var result domain.ContentResult
		if err := json.Unmarshal(raw, &result); err != nil {
			return nil, fmt.Errorf("decode operation result: %w", err)
		}

		switch strings.ToLower(result.Status) {
		case "succeeded":
			return &result, nil
		case "failed":
			return nil, fmt.Errorf("operation failed: %s", string(raw))
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}

type listResponse struct {
	Value []map[string]any `json:"value"`
}

func (c *client) ListAnalyzers(ctx context.Context) ([]map[string]any, error) {
	_, raw, err := c.do(ctx, http.MethodGet, "/contentunderstanding/analyzers", "", nil)
	if err != nil {
		return nil, err
	}
	var out listResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out.Value, nil
}

func (c *client) CreateAnalyzer(ctx context.Context, analyzerID string, template map[string]any) (*Operation, error) {
	c.log.Info("Creating analyzer", "analyzer_id", analyzerID)
	resp, _, err := c.doJSON(ctx, http.MethodPut, "/contentunderstanding/analyzers/"+url.PathEscape(analyzerID), template)
	if err != nil {
		return nil, err
	}
	loc := resp.Header.Get("Operation-Location")
	if loc == "" {
		return nil, fmt.Errorf("missing Operation-Location header for analyzer %s", analyzerID)
	}
	return &Operation{Location: loc}, nil
}

func (c *client) ListClassifiers(ctx context.Context) ([]map[string]any, error) {
	_, raw, err := c.do(ctx, http.MethodGet, "/contentunderstanding/classifiers", "", nil)
	if err != nil {
		return nil, err
	}
	var out listResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out.Value, nil
}

func (c *client) CreateClassifier(ctx context.Context, classifierID string, schema map[string]any) (*Operation, error) {
	c.log.Info("Creating classifier", "classifier_id", classifierID)
	resp, _, err := c.doJSON(ctx, http.MethodPut, "/contentunderstanding/classifiers/"+url.PathEscape(classifierID), schema)
	if err != nil {
		return nil, err
	}
	loc := resp.Header.Get("Operation-Location")
	if loc == "" {
		return nil, fmt.Errorf("missing Operation-Location header for classifier %s", classifierID)
	}
	return &Operation{Location: loc}, nil
}

func (c *client) GetClassifier(ctx context.Context, classifierID string) (map[string]any, error) {
	_, raw, err := c.do(ctx, http.MethodGet, "/contentunderstanding/classifiers/"+url.PathEscape(classifierID), "", nil)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
