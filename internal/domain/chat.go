package domain

// Chat message roles, following the chat-completions wire format.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ChatMessageType classifies a stored message: human input, assistant
// answers, or internal tool-call traffic that display clients may hide.
type ChatMessageType string

const (
	ChatMessageTypeInternal ChatMessageType = "internal"
	ChatMessageTypeAI       ChatMessageType = "ai"
	ChatMessageTypeHuman    ChatMessageType = "human"
)

type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type ToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function ToolCallFunction `json:"function"`
}

// ChatMessage is one turn entry, in the exact shape sent to the completion
// API. Tool-call messages carry ToolCalls (assistant side) or ToolCallID
// (tool result side).
type ChatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	Name       string     `json:"name,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ContainsToolTraffic reports whether the message is part of a tool-call
// exchange rather than plain conversation.
func (m ChatMessage) ContainsToolTraffic() bool {
	return len(m.ToolCalls) > 0 || m.ToolCallID != "" || m.Role == RoleTool
}

// StoredChatMessage is the persisted form: the message plus its
// classification.
type StoredChatMessage struct {
	ChatMessage
	Type ChatMessageType `json:"type"`
}

// ClassifyChatMessage tags a message for storage.
func ClassifyChatMessage(m ChatMessage) ChatMessageType {
	if m.ContainsToolTraffic() {
		return ChatMessageTypeInternal
	}
	switch m.Role {
	case RoleUser:
		return ChatMessageTypeHuman
	case RoleAssistant:
		return ChatMessageTypeAI
	default:
		return ChatMessageTypeInternal
	}
}
