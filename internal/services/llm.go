package services

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/davenrook/leasewise-backend/internal/domain"
	"github.com/davenrook/leasewise-backend/internal/platform/logger"
	"github.com/davenrook/leasewise-backend/internal/platform/openai"
)

const getCollectionDataTool = "get_collection_data"

// maxToolRounds bounds the tool-calling loop so a model that keeps asking
// for data cannot spin forever.
const maxToolRounds = 5

var firstJSONObjectRe = regexp.MustCompile(`(?s)\{.*?\}`)

// LLMRequestManager runs collection queries through the completion API. The
// model is given one tool, get_collection_data, which returns the aliased
// collection view; the first round requires a tool call so answers are
// always grounded in collection data.
//
// Status reports the outcome of the most recent completion call, nil until
// the first one. The health check reuses it instead of issuing a fresh
// probe when it is healthy.
type LLMRequestManager interface {
	AnswerCollectionQuestion(ctx context.Context, systemMessage, userMessage, model string, config *domain.FieldDataCollectionConfig, history *ChatHistory) (*domain.QueryResponse, error)
	AnswerGeneralQuestion(ctx context.Context, systemMessage, userMessage string) (string, error)
	Status() *domain.HealthCheck
}

type llmRequestManager struct {
	client   openai.Client
	provider CollectionDataProvider
	log      *logger.Logger

	mu         sync.Mutex
	lastStatus *domain.HealthCheck
}

func NewLLMRequestManager(client openai.Client, provider CollectionDataProvider, baseLog *logger.Logger) LLMRequestManager {
	return &llmRequestManager{
		client:   client,
		provider: provider,
		log:      baseLog.With("service", "LLMRequestManager"),
	}
}

func collectionTools() []openai.Tool {
	return []openai.Tool{{
		Type: "function",
		Function: openai.ToolFunction{
			Name:        getCollectionDataTool,
			Description: "Gets the data for a specified collection by the collection id.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"collection_id": map[string]any{
						"type":        "string",
						"description": "The unique identifier for the collection.",
					},
				},
				"required": []string{"collection_id"},
			},
		},
	}}
}

func (m *llmRequestManager) AnswerCollectionQuestion(ctx context.Context, systemMessage, userMessage, model string, config *domain.FieldDataCollectionConfig, history *ChatHistory) (*domain.QueryResponse, error) {
	if history.IsEmpty() {
		history.AddSystemMessage(systemMessage)
	}
	history.AddUserMessage(userMessage)

	m.log.Info("Running collection query", "query", userMessage)
	start := time.Now()

	var usage openai.Usage
	var final *openai.ChatResponse

	toolChoice := any("required")
	for round := 0; round < maxToolRounds; round++ {
		resp, err := m.client.ChatCompletion(ctx, openai.ChatRequest{
			Model:          model,
			Messages:       history.Messages(),
			Tools:          collectionTools(),
			ToolChoice:     toolChoice,
			ResponseFormat: &openai.ResponseFormat{Type: "json_object"},
		})
		m.recordStatus(err)
		if err != nil {
			return nil, err
		}
		usage.PromptTokens += resp.Usage.PromptTokens
		usage.CompletionTokens += resp.Usage.CompletionTokens
		usage.TotalTokens += resp.Usage.TotalTokens

		msg := resp.Choices[0].Message
		if len(msg.ToolCalls) == 0 {
			final = resp
			break
		}

		history.AddMessage(msg)
		for _, call := range msg.ToolCalls {
			result, err := m.invokeTool(ctx, call, config)
			if err != nil {
				return nil, err
			}
			history.AddMessage(domain.ChatMessage{
				Role:       domain.RoleTool,
				Name:       call.Function.Name,
				ToolCallID: call.ID,
				Content:    result,
			})
		}
		toolChoice = "auto"
	}
	if final == nil {
		return nil, fmt.Errorf("model did not produce an answer within %d tool rounds", maxToolRounds)
	}

	latency := time.Since(start).Seconds()
	generated := m.parseResponseContent(final.Choices[0].Message.Content)

	restored, err := m.provider.RestoreCitations(ctx, generated.Citations, config)
	if err != nil {
		return nil, err
	}
	response := &domain.QueryResponse{
		Response:  generated.Response,
		Citations: restored,
	}

	// The stored assistant turn carries the restored citations but never
	// the metrics.
	stored, err := json.Marshal(response)
	if err != nil {
		return nil, err
	}
	history.AddAssistantMessage(string(stored))

	response.Metrics = &domain.QueryMetrics{
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		TotalTokens:      usage.TotalTokens,
		TotalLatencySec:  latency,
	}
	return response, nil
}

func (m *llmRequestManager) invokeTool(ctx context.Context, call domain.ToolCall, config *domain.FieldDataCollectionConfig) (string, error) {
	if call.Function.Name != getCollectionDataTool {
		return "", fmt.Errorf("model requested unknown tool %q", call.Function.Name)
	}

	var args struct {
		CollectionID string `json:"collection_id"`
	}
	if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
		return "", fmt.Errorf("decode %s arguments: %w", getCollectionDataTool, err)
	}

	return m.provider.GetCollectionData(ctx, args.CollectionID, config)
}

// parseResponseContent extracts the first JSON object from the raw model
// output. Plain text or unparseable content falls back to an answer without
// citations.
func (m *llmRequestManager) parseResponseContent(raw string) domain.GeneratedResponse {
	objects := firstJSONObjectRe.FindAllString(raw, -1)
	if len(objects) == 0 {
		m.log.Warn("Model output contains no JSON object, using raw content")
		return domain.GeneratedResponse{Response: strings.TrimSpace(raw), Citations: []string{}}
	}
	if len(objects) > 1 {
		m.log.Warn("More than one JSON object found in model output, using the first one")
	}

	var generated domain.GeneratedResponse
	if err := json.Unmarshal([]byte(objects[0]), &generated); err != nil {
		m.log.Error("Failed to parse model output", "error", err)
		return domain.GeneratedResponse{Response: strings.TrimSpace(raw), Citations: []string{}}
	}
	if generated.Citations == nil {
		generated.Citations = []string{}
	}
	return generated
}

func (m *llmRequestManager) AnswerGeneralQuestion(ctx context.Context, systemMessage, userMessage string) (string, error) {
	m.log.Info("Running general query", "query", userMessage)
	answer, err := m.client.GenerateText(ctx, systemMessage, userMessage)
	m.recordStatus(err)
	return answer, err
}

func (m *llmRequestManager) recordStatus(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.lastStatus = &domain.HealthCheck{Status: domain.HealthStatusUnhealthy, Details: err.Error()}
		return
	}
	m.lastStatus = &domain.HealthCheck{Status: domain.HealthStatusHealthy, Details: "openai is running as expected."}
}

func (m *llmRequestManager) Status() *domain.HealthCheck {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastStatus
}
