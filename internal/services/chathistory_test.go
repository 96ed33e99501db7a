package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"gorm.io/gorm"

	"github.com/davenrook/leasewise-backend/internal/domain"
	"github.com/davenrook/leasewise-backend/internal/types"
)

// fakeSessionRepo is an in-memory ChatSessionRepo.
type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*types.ChatSession
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: map[string]*types.ChatSession{}}
}

func (r *fakeSessionRepo) Get(ctx context.Context, tx *gorm.DB, id string) (*types.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

func (r *fakeSessionRepo) Upsert(ctx context.Context, tx *gorm.DB, session *types.ChatSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *session
	r.sessions[session.ID] = &copied
	return nil
}

func (r *fakeSessionRepo) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func TestChatHistory_LoadMissingSessionIsEmpty(t *testing.T) {
	svc := NewChatHistoryService(newFakeSessionRepo(), newTestLogger(t))

	history, err := svc.Load(context.Background(), "sess-1", "User-A")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !history.IsEmpty() {
		t.Fatalf("expected empty history")
	}
	if history.UserMessageLimitExceeded() {
		t.Fatalf("empty history cannot exceed the limit")
	}
}

func TestChatHistory_SaveAndLoadRoundTrip(t *testing.T) {
	repo := newFakeSessionRepo()
	svc := NewChatHistoryService(repo, newTestLogger(t))

	history, _ := svc.Load(context.Background(), "sess-1", "User-A")
	history.AddSystemMessage("system prompt")
	history.AddUserMessage("what is the rent?")
	history.AddAssistantMessage(`{"response":"The rent is $1200 [1].","citations":[["doc.pdf","D(1,0,0)"]]}`)

	if err := svc.Save(context.Background(), history, "sess-1", "User-A"); err != nil {
		t.Fatalf("save: %v", err)
	}

	// User id casing must not split the session.
	row, _ := repo.Get(context.Background(), nil, types.SessionID("user-a", "sess-1"))
	if row == nil {
		t.Fatalf("expected session stored under lowercased user id")
	}
	if row.UserID != "user-a" {
		t.Fatalf("unexpected user id: %q", row.UserID)
	}

	var stored []domain.StoredChatMessage
	if err := json.Unmarshal(row.Messages, &stored); err != nil {
		t.Fatalf("decode stored messages: %v", err)
	}
	if len(stored) != 3 {
		t.Fatalf("expected 3 stored messages, got %d", len(stored))
	}
	if stored[0].Type != domain.ChatMessageTypeInternal || stored[1].Type != domain.ChatMessageTypeHuman || stored[2].Type != domain.ChatMessageTypeAI {
		t.Fatalf("unexpected classifications: %v %v %v", stored[0].Type, stored[1].Type, stored[2].Type)
	}

	reloaded, err := svc.Load(context.Background(), "sess-1", "USER-A")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(reloaded.InternalMessages()) != 3 {
		t.Fatalf("expected full internal transcript, got %d", len(reloaded.InternalMessages()))
	}
}

func TestChatHistory_DisplayRewritesAssistantJSON(t *testing.T) {
	repo := newFakeSessionRepo()
	svc := NewChatHistoryService(repo, newTestLogger(t))

	history, _ := svc.Load(context.Background(), "sess-1", "u")
	history.AddUserMessage("q")
	history.AddAssistantMessage(`{"response":"Rent is $1200 [1].","citations":[]}`)
	if err := svc.Save(context.Background(), history, "sess-1", "u"); err != nil {
		t.Fatalf("save: %v", err)
	}

	reloaded, _ := svc.Load(context.Background(), "sess-1", "u")
	messages := reloaded.Messages()
	if len(messages) != 2 {
		t.Fatalf("expected 2 display messages, got %d", len(messages))
	}
	if messages[1].Content != "Rent is $1200." {
		t.Fatalf("expected inline citations stripped, got %q", messages[1].Content)
	}
	// The internal transcript keeps the raw JSON payload.
	if reloaded.InternalMessages()[1].Content == messages[1].Content {
		t.Fatalf("expected internal message to keep raw content")
	}
}

func TestChatHistory_DisplayKeepsUnparsableAssistantContent(t *testing.T) {
	repo := newFakeSessionRepo()
	svc := NewChatHistoryService(repo, newTestLogger(t))

	history, _ := svc.Load(context.Background(), "sess-1", "u")
	history.AddAssistantMessage(`{not json`)
	if err := svc.Save(context.Background(), history, "sess-1", "u"); err != nil {
		t.Fatalf("save: %v", err)
	}

	reloaded, _ := svc.Load(context.Background(), "sess-1", "u")
	if got := reloaded.Messages()[0].Content; got != `{not json` {
		t.Fatalf("expected raw content kept on parse failure, got %q", got)
	}
}

func TestChatHistory_ToolTrafficHiddenFromDisplay(t *testing.T) {
	t.Setenv("CHAT_REMOVE_TOOL_CALLS", "true")
	repo := newFakeSessionRepo()
	svc := NewChatHistoryService(repo, newTestLogger(t))

	history, _ := svc.Load(context.Background(), "sess-1", "u")
	history.AddUserMessage("q")
	history.AddMessage(domain.ChatMessage{
		Role: domain.RoleAssistant,
		ToolCalls: []domain.ToolCall{
			{ID: "call-1", Type: "function", Function: domain.ToolCallFunction{Name: "get_collection_data", Arguments: `{"collection_id":"c"}`}},
		},
	})
	history.AddMessage(domain.ChatMessage{Role: domain.RoleTool, ToolCallID: "call-1", Content: "{}"})
	history.AddAssistantMessage("answer")
	if err := svc.Save(context.Background(), history, "sess-1", "u"); err != nil {
		t.Fatalf("save: %v", err)
	}

	reloaded, _ := svc.Load(context.Background(), "sess-1", "u")
	if len(reloaded.InternalMessages()) != 4 {
		t.Fatalf("expected all 4 messages persisted, got %d", len(reloaded.InternalMessages()))
	}
	if len(reloaded.Messages()) != 2 {
		t.Fatalf("expected tool traffic hidden, got %d display messages", len(reloaded.Messages()))
	}
}

func TestChatHistory_ToolTrafficKeptWhenConfigured(t *testing.T) {
	t.Setenv("CHAT_REMOVE_TOOL_CALLS", "false")
	repo := newFakeSessionRepo()
	svc := NewChatHistoryService(repo, newTestLogger(t))

	history, _ := svc.Load(context.Background(), "sess-1", "u")
	history.AddMessage(domain.ChatMessage{Role: domain.RoleTool, ToolCallID: "call-1", Content: "{}"})
	if err := svc.Save(context.Background(), history, "sess-1", "u"); err != nil {
		t.Fatalf("save: %v", err)
	}

	reloaded, _ := svc.Load(context.Background(), "sess-1", "u")
	if len(reloaded.Messages()) != 1 {
		t.Fatalf("expected tool message kept in display list, got %d", len(reloaded.Messages()))
	}
}

func TestChatHistory_UserMessageLimit(t *testing.T) {
	t.Setenv("CHAT_USER_MESSAGE_LIMIT", "2")
	svc := NewChatHistoryService(newFakeSessionRepo(), newTestLogger(t))

	history, _ := svc.Load(context.Background(), "sess-1", "u")
	history.AddUserMessage("one")
	if history.UserMessageLimitExceeded() {
		t.Fatalf("limit hit too early")
	}
	history.AddAssistantMessage("a")
	history.AddUserMessage("two")
	if !history.UserMessageLimitExceeded() {
		t.Fatalf("expected limit reached at 2 user turns")
	}
}
