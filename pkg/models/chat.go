package models

import "time"

// Sender identifies who produced a chat message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// ChatMessage is one entry in a conversation. Messages are persisted
// newest-first in the session store and reversed on read.
type ChatMessage struct {
	Content   string            `json:"content"`
	Sender    Sender            `json:"sender"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// ConversationSummary describes one session at a glance.
type ConversationSummary struct {
	SessionID    string    `json:"session_id"`
	MessageCount int       `json:"message_count"`
	StartTime    time.Time `json:"start_time"`
	LastActivity time.Time `json:"last_activity"`
	Topics       []string  `json:"topics"`
}

// ConnectorHealth is the result of one health probe. It is recomputed per
// request and never cached across requests.
type ConnectorHealth struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	CheckedAt time.Time `json:"checked_at"`
}
