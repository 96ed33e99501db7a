package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/davenrook/leasewise-backend/internal/domain"
	"github.com/davenrook/leasewise-backend/internal/platform/envutil"
	"github.com/davenrook/leasewise-backend/internal/platform/logger"
	"github.com/davenrook/leasewise-backend/internal/repos"
	"github.com/davenrook/leasewise-backend/internal/types"
	"github.com/davenrook/leasewise-backend/internal/utils"
)

// ChatHistory holds one session's transcript in two forms: the internal
// list keeps everything including tool-call traffic and raw assistant JSON,
// and is what gets persisted; the display list is what the completion API
// and clients see, optionally stripped of tool traffic and with assistant
// JSON payloads rewritten to their plain response text.
type ChatHistory struct {
	userMessageLimit int
	removeToolCalls  bool
	log              *logger.Logger

	internal []domain.ChatMessage
	messages []domain.ChatMessage
}

func (h *ChatHistory) AddMessage(m domain.ChatMessage) {
	h.internal = append(h.internal, m)
	h.messages = append(h.messages, m)
}

func (h *ChatHistory) AddSystemMessage(content string) {
	h.AddMessage(domain.ChatMessage{Role: domain.RoleSystem, Content: content})
}

func (h *ChatHistory) AddUserMessage(content string) {
	h.AddMessage(domain.ChatMessage{Role: domain.RoleUser, Content: content})
}

func (h *ChatHistory) AddAssistantMessage(content string) {
	h.AddMessage(domain.ChatMessage{Role: domain.RoleAssistant, Content: content})
}

// Messages is the display transcript, the one sent to the completion API.
func (h *ChatHistory) Messages() []domain.ChatMessage { return h.messages }

// InternalMessages is the full transcript as persisted.
func (h *ChatHistory) InternalMessages() []domain.ChatMessage { return h.internal }

func (h *ChatHistory) IsEmpty() bool { return len(h.messages) == 0 }

// UserMessageLimitExceeded reports whether the session already carries the
// configured number of user turns. Counted over the internal list so hidden
// turns still count.
func (h *ChatHistory) UserMessageLimitExceeded() bool {
	count := 0
	for _, m := range h.internal {
		if m.Role == domain.RoleUser {
			count++
		}
	}
	return count >= h.userMessageLimit
}

// rebuildDisplay derives the display list from the internal one.
func (h *ChatHistory) rebuildDisplay() {
	h.messages = h.messages[:0]
	for _, m := range h.internal {
		if h.removeToolCalls && m.ContainsToolTraffic() {
			continue
		}
		if m.Role == domain.RoleAssistant && strings.HasPrefix(m.Content, "{") {
			var parsed domain.QueryResponse
			if err := json.Unmarshal([]byte(m.Content), &parsed); err == nil {
				m.Content = utils.RemoveInlineCitations(parsed.Response)
			} else {
				h.log.Warn("Failed to parse assistant message content", "error", err)
			}
		}
		h.messages = append(h.messages, m)
	}
}

// ChatHistoryService loads and persists chat sessions.
type ChatHistoryService interface {
	Load(ctx context.Context, sessionID, userID string) (*ChatHistory, error)
	Save(ctx context.Context, history *ChatHistory, sessionID, userID string) error
}

type chatHistoryService struct {
	sessions         repos.ChatSessionRepo
	log              *logger.Logger
	domainName       string
	userMessageLimit int
	removeToolCalls  bool
}

func NewChatHistoryService(sessions repos.ChatSessionRepo, baseLog *logger.Logger) ChatHistoryService {
	return &chatHistoryService{
		sessions:         sessions,
		log:              baseLog.With("service", "ChatHistoryService"),
		domainName:       envutil.Str("CHAT_HISTORY_DOMAIN", "lease"),
		userMessageLimit: envutil.Int("CHAT_USER_MESSAGE_LIMIT", 10),
		removeToolCalls:  envutil.Bool("CHAT_REMOVE_TOOL_CALLS", true),
	}
}

func (s *chatHistoryService) newHistory() *ChatHistory {
	return &ChatHistory{
		userMessageLimit: s.userMessageLimit,
		removeToolCalls:  s.removeToolCalls,
		log:              s.log,
	}
}

// Load returns the stored session, or an empty history when none exists.
func (s *chatHistoryService) Load(ctx context.Context, sessionID, userID string) (*ChatHistory, error) {
	history := s.newHistory()

	row, err := s.sessions.Get(ctx, nil, types.SessionID(strings.ToLower(userID), sessionID))
	if err != nil {
		return nil, err
	}
	if row == nil {
		s.log.Info("No chat session found", "session_id", sessionID)
		return history, nil
	}

	var stored []domain.StoredChatMessage
	if err := json.Unmarshal(row.Messages, &stored); err != nil {
		return nil, err
	}
	for _, m := range stored {
		history.internal = append(history.internal, m.ChatMessage)
	}
	history.rebuildDisplay()
	return history, nil
}

func (s *chatHistoryService) Save(ctx context.Context, history *ChatHistory, sessionID, userID string) error {
	stored := make([]domain.StoredChatMessage, 0, len(history.internal))
	for _, m := range history.internal {
		stored = append(stored, domain.StoredChatMessage{
			ChatMessage: m,
			Type:        domain.ClassifyChatMessage(m),
		})
	}

	raw, err := json.Marshal(stored)
	if err != nil {
		return err
	}

	userID = strings.ToLower(userID)
	return s.sessions.Upsert(ctx, nil, &types.ChatSession{
		ID:       types.SessionID(userID, sessionID),
		UserID:   userID,
		Domain:   s.domainName,
		Messages: raw,
	})
}
