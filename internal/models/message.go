package models

import "time"

// MessageRole identifies the author of a chat message.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// Message is one turn of a project's agent conversation.
type Message struct {
	ID        string
	ProjectID string
	UserID    string
	Role      MessageRole
	Content   string
	CreatedAt time.Time
}
