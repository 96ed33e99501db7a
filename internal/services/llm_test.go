package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/davenrook/leasewise-backend/internal/domain"
	"github.com/davenrook/leasewise-backend/internal/platform/apierr"
	"github.com/davenrook/leasewise-backend/internal/platform/openai"
	"github.com/davenrook/leasewise-backend/internal/types"
)

// fakeLLMClient replays scripted responses and records requests.
type fakeLLMClient struct {
	responses    []*openai.ChatResponse
	requests     []openai.ChatRequest
	generalCalls int
	generalErr   error
}

func (f *fakeLLMClient) ChatCompletion(ctx context.Context, req openai.ChatRequest) (*openai.ChatResponse, error) {
	f.requests = append(f.requests, req)
	if len(f.responses) == 0 {
		return &openai.ChatResponse{Choices: []openai.ChatChoice{{Message: domain.ChatMessage{Role: domain.RoleAssistant}}}}, nil
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func (f *fakeLLMClient) GenerateText(ctx context.Context, system, user string) (string, error) {
	f.generalCalls++
	if f.generalErr != nil {
		return "", f.generalErr
	}
	return "general answer", nil
}

func toolCallResponse(callID, collectionID string, usage openai.Usage) *openai.ChatResponse {
	return &openai.ChatResponse{
		Choices: []openai.ChatChoice{{
			Message: domain.ChatMessage{
				Role: domain.RoleAssistant,
				ToolCalls: []domain.ToolCall{{
					ID:   callID,
					Type: "function",
					Function: domain.ToolCallFunction{
						Name:      getCollectionDataTool,
						Arguments: `{"collection_id":"` + collectionID + `"}`,
					},
				}},
			},
		}},
		Usage: usage,
	}
}

func answerResponse(content string, usage openai.Usage) *openai.ChatResponse {
	return &openai.ChatResponse{
		Choices: []openai.ChatChoice{{
			Message: domain.ChatMessage{Role: domain.RoleAssistant, Content: content},
		}},
		Usage: usage,
	}
}

func newLLMFixture(t *testing.T, client *fakeLLMClient) (LLMRequestManager, *ChatHistory, *domain.FieldDataCollectionConfig) {
	t.Helper()
	log := newTestLogger(t)
	docs := newFakeDocRepo()
	config := testConfig()

	// Seed one cited leaf so CITEcoll1-A resolves.
	raw, _ := json.Marshal(&domain.CollectionInformation{
		Leases: []*domain.Lease{
			{LeaseID: strPtr("l"), Fields: map[string][]*domain.FieldValue{
				"rent": {{ValueString: strPtr("1200"), Document: "Collections/coll1/l/a.pdf", Source: "D(1,0,0)"}},
			}},
		},
	})
	id := types.DocumentID("coll1", config.LeaseConfigHash)
	docs.docs[id] = &types.CollectionDocument{ID: id, CollectionID: "coll1", LeaseConfigHash: config.LeaseConfigHash, Information: raw}

	provider := NewCollectionDataProvider(docs, newFakeViewCache(), NewCitationMapper(), log)
	manager := NewLLMRequestManager(client, provider, log)

	historySvc := NewChatHistoryService(newFakeSessionRepo(), log)
	history, err := historySvc.Load(context.Background(), "sess", "user")
	if err != nil {
		t.Fatalf("load history: %v", err)
	}
	return manager, history, config
}

func TestAnswerCollectionQuestion_ToolLoop(t *testing.T) {
	client := &fakeLLMClient{responses: []*openai.ChatResponse{
		toolCallResponse("call-1", "coll1", openai.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}),
		answerResponse(`{"response":"Rent is $1200 [1].","citations":["CITEcoll1-A"]}`, openai.Usage{PromptTokens: 20, CompletionTokens: 10, TotalTokens: 30}),
	}}
	manager, history, config := newLLMFixture(t, client)

	resp, err := manager.AnswerCollectionQuestion(context.Background(), "system prompt", "what is the rent?", "test-model", config, history)
	if err != nil {
		t.Fatalf("answer: %v", err)
	}

	if resp.Response != "Rent is $1200 [1]." {
		t.Fatalf("unexpected response text: %q", resp.Response)
	}
	if len(resp.Citations) != 1 || resp.Citations[0][0] != "Collections/coll1/l/a.pdf" {
		t.Fatalf("unexpected citations: %v", resp.Citations)
	}
	if resp.Metrics == nil {
		t.Fatalf("expected metrics attached")
	}
	if resp.Metrics.PromptTokens != 30 || resp.Metrics.CompletionTokens != 15 || resp.Metrics.TotalTokens != 45 {
		t.Fatalf("expected usage accumulated across rounds, got %+v", resp.Metrics)
	}

	// First round must require a tool call, later rounds relax to auto.
	if len(client.requests) != 2 {
		t.Fatalf("expected 2 completion calls, got %d", len(client.requests))
	}
	if client.requests[0].ToolChoice != any("required") {
		t.Fatalf("expected first round tool_choice=required, got %v", client.requests[0].ToolChoice)
	}
	if client.requests[1].ToolChoice != any("auto") {
		t.Fatalf("expected second round tool_choice=auto, got %v", client.requests[1].ToolChoice)
	}

	// Stored assistant turn is the JSON payload without metrics.
	internal := history.InternalMessages()
	lastStored := internal[len(internal)-1]
	var stored domain.QueryResponse
	if err := json.Unmarshal([]byte(lastStored.Content), &stored); err != nil {
		t.Fatalf("stored assistant turn is not JSON: %v", err)
	}
	if stored.Metrics != nil {
		t.Fatalf("metrics must not be persisted")
	}
	if len(stored.Citations) != 1 {
		t.Fatalf("expected restored citations persisted, got %v", stored.Citations)
	}
}

func TestAnswerCollectionQuestion_SystemPromptOnlyOnFirstTurn(t *testing.T) {
	client := &fakeLLMClient{responses: []*openai.ChatResponse{
		answerResponse(`{"response":"a","citations":[]}`, openai.Usage{}),
		answerResponse(`{"response":"b","citations":[]}`, openai.Usage{}),
	}}
	manager, history, config := newLLMFixture(t, client)

	if _, err := manager.AnswerCollectionQuestion(context.Background(), "system prompt", "q1", "m", config, history); err != nil {
		t.Fatalf("first turn: %v", err)
	}
	if _, err := manager.AnswerCollectionQuestion(context.Background(), "system prompt", "q2", "m", config, history); err != nil {
		t.Fatalf("second turn: %v", err)
	}

	systems := 0
	for _, m := range history.InternalMessages() {
		if m.Role == domain.RoleSystem {
			systems++
		}
	}
	if systems != 1 {
		t.Fatalf("expected a single system message, got %d", systems)
	}
}

func TestAnswerCollectionQuestion_UnknownToolFails(t *testing.T) {
	client := &fakeLLMClient{responses: []*openai.ChatResponse{
		{
			Choices: []openai.ChatChoice{{
				Message: domain.ChatMessage{
					Role: domain.RoleAssistant,
					ToolCalls: []domain.ToolCall{{
						ID:       "call-1",
						Type:     "function",
						Function: domain.ToolCallFunction{Name: "delete_collection", Arguments: "{}"},
					}},
				},
			}},
		},
	}}
	manager, history, config := newLLMFixture(t, client)

	_, err := manager.AnswerCollectionQuestion(context.Background(), "s", "q", "m", config, history)
	if err == nil {
		t.Fatalf("expected error for unknown tool")
	}
}

func TestAnswerCollectionQuestion_MalformedCitationFails(t *testing.T) {
	client := &fakeLLMClient{responses: []*openai.ChatResponse{
		answerResponse(`{"response":"Rent is $1200 [1].","citations":["not-a-cite-token"]}`, openai.Usage{}),
	}}
	manager, history, config := newLLMFixture(t, client)

	_, err := manager.AnswerCollectionQuestion(context.Background(), "s", "q", "m", config, history)
	if err == nil {
		t.Fatalf("expected error for malformed citation in model output")
	}
	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest {
		t.Fatalf("expected bad request error, got %v", err)
	}
}

func TestStatus_TracksCompletionCalls(t *testing.T) {
	client := &fakeLLMClient{}
	manager, _, _ := newLLMFixture(t, client)

	if manager.Status() != nil {
		t.Fatalf("expected unknown status before any call")
	}

	if _, err := manager.AnswerGeneralQuestion(context.Background(), "s", "Ping"); err != nil {
		t.Fatalf("general question: %v", err)
	}
	if st := manager.Status(); st == nil || st.Status != domain.HealthStatusHealthy {
		t.Fatalf("expected healthy status after successful call, got %+v", st)
	}

	client.generalErr = errors.New("connection refused")
	if _, err := manager.AnswerGeneralQuestion(context.Background(), "s", "Ping"); err == nil {
		t.Fatalf("expected general question failure")
	}
	if st := manager.Status(); st == nil || st.Status != domain.HealthStatusUnhealthy {
		t.Fatalf("expected unhealthy status after failed call, got %+v", st)
	}
}

func TestParseResponseContent(t *testing.T) {
	log := newTestLogger(t)
	manager := NewLLMRequestManager(&fakeLLMClient{}, nil, log).(*llmRequestManager)

	cases := []struct {
		name          string
		raw           string
		wantResponse  string
		wantCitations int
	}{
		{name: "clean json", raw: `{"response":"answer","citations":["CITEc-A"]}`, wantResponse: "answer", wantCitations: 1},
		{name: "json with surrounding prose", raw: "Here you go: {\"response\":\"answer\",\"citations\":[]} hope that helps", wantResponse: "answer"},
		{name: "plain text", raw: "  just text  ", wantResponse: "just text"},
		{name: "broken json falls back to raw", raw: `{"response": <`, wantResponse: `{"response": <`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := manager.parseResponseContent(tc.raw)
			if got.Response != tc.wantResponse {
				t.Fatalf("response = %q, want %q", got.Response, tc.wantResponse)
			}
			if got.Citations == nil {
				t.Fatalf("citations must never be nil")
			}
			if len(got.Citations) != tc.wantCitations {
				t.Fatalf("citations = %v, want %d entries", got.Citations, tc.wantCitations)
			}
		})
	}
}
