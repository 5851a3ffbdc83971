package domain

import "time"

// MessageRole mirrors the chat wire roles used by the model providers.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

// Session is one persisted conversation.
type Session struct {
	ID          string
	Title       string
	CharacterID string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Message is one persisted chat message. Tool call payloads are stored as
// raw JSON so the transcript survives provider changes.
type Message struct {
	ID         string
	SessionID  string
	Role       MessageRole
	Content    string
	ToolCallID string
	ToolName   string
	CreatedAt  time.Time
}

// ToolTraceEntry records one executed tool call within a chat turn.
type ToolTraceEntry struct {
	Name     string `json:"name"`
	Args     string `json:"args"`
	Result   string `json:"result"`
	IsError  bool   `json:"is_error"`
	Duration int64  `json:"duration_ms"`
}
