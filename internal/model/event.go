package model

import (
	"time"
)

// EventType represents the type of transcript event.
type EventType string

const (
	EventTypeMessage   EventType = "message"
	EventTypeError     EventType = "error"
	EventTypeRateLimit EventType = "rate_limit"
	EventTypeTimeout   EventType = "timeout"
	EventTypeReset     EventType = "reset"
)

// ConversationEvent is published to the transcript feed.
type ConversationEvent struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id"`
	Type      EventType      `json:"type"`
	Message   *Message       `json:"message,omitempty"`
	Reason    string         `json:"reason,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
