package models

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatTurn is one entry of a transcript. Turns are never edited once appended.
type ChatTurn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTurn stamps a turn with now truncated to whole seconds.
func NewTurn(role Role, content string, now time.Time) ChatTurn {
	return ChatTurn{
		Role:      role,
		Content:   content,
		CreatedAt: now.Truncate(time.Second),
	}
}

// Timestamp is the display form used next to each message.
func (t ChatTurn) Timestamp() string {
	return t.CreatedAt.Format("15:04:05")
}

type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}
