package store

import "time"

// Message roles understood by the completion API.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is immutable once appended to a conversation.
type Message struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type Conversation struct {
	ID       string    `json:"id"`
	Messages []Message `json:"messages"`
}

type User struct {
	Email          string `json:"email"`
	FullName       string `json:"full_name,omitempty"`
	HashedPassword string `json:"hashed_password"`
	Disabled       bool   `json:"disabled"`
}

type Session struct {
	MentorName string `json:"mentorName"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	Status     string `json:"status"`
}

type KnowledgeDocument struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Source    string    `json:"source"`
	Type      string    `json:"type"`
	Embedding []float32 `json:"-"` // Internal, loaded from the index
}
