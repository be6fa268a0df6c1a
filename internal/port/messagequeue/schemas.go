package messagequeue

import "time"

// ThreadCreatedPayload is the schema for threads.created messages.
type ThreadCreatedPayload struct {
	ThreadID     string    `json:"thread_id"`
	AskSessionID string    `json:"ask_session_id"`
	UserID       string    `json:"user_id,omitempty"`
	IsShared     bool      `json:"is_shared"`
	CreatedAt    time.Time `json:"created_at"`
}

// MessageCreatedPayload is the schema for messages.created messages.
type MessageCreatedPayload struct {
	MessageID    string `json:"message_id"`
	AskSessionID string `json:"ask_session_id"`
	ThreadID     string `json:"thread_id,omitempty"`
	SenderType   string `json:"sender_type"`
}

// CatalogInvalidatePayload is the schema for catalog.invalidate messages.
// Kind is "project" or "challenge".
type CatalogInvalidatePayload struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}
