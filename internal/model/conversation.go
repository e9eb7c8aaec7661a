// Package model defines data structures for the chat server.
package model

import (
	"time"
)

// DefaultSystemPrompt is installed in every new session.
const DefaultSystemPrompt = "You are a helpful AI assistant. " +
	"You provide clear, accurate, and concise responses while being friendly and professional."

// ConversationState is the mutable state of one chat session.
type ConversationState struct {
	Messages        []Message `json:"messages"`
	SystemPrompt    string    `json:"system_prompt"`
	LastRequestTime time.Time `json:"-"`
}

// NewConversationState returns a state with an empty log and the default
// system prompt.
func NewConversationState() *ConversationState {
	return &ConversationState{
		Messages:     make([]Message, 0, 16),
		SystemPrompt: DefaultSystemPrompt,
	}
}

// Append adds a message to the end of the log.
func (s *ConversationState) Append(msg Message) {
	s.Messages = append(s.Messages, msg)
}

// Recent returns a copy of the last n messages. The stored log is not
// touched.
func (s *ConversationState) Recent(n int) []Message {
	if n <= 0 || len(s.Messages) == 0 {
		return nil
	}

	start := 0
	if len(s.Messages) > n {
		start = len(s.Messages) - n
	}

	recent := make([]Message, len(s.Messages)-start)
	copy(recent, s.Messages[start:])
	return recent
}

// Transcript returns a copy of the full log.
func (s *ConversationState) Transcript() []Message {
	copied := make([]Message, len(s.Messages))
	copy(copied, s.Messages)
	return copied
}

// ClearMessages empties the log and keeps the system prompt.
func (s *ConversationState) ClearMessages() {
	s.Messages = make([]Message, 0, 16)
}

// TurnSettings carries the per-turn user controls.
type TurnSettings struct {
	Endpoint    string  `json:"endpoint"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// SessionResponse is the view of a session rendered by the chat page.
type SessionResponse struct {
	Messages     []Message    `json:"messages"`
	SystemPrompt string       `json:"system_prompt"`
	Defaults     TurnSettings `json:"defaults"`
	QuickPrompts []string     `json:"quick_prompts"`
	App          AppInfo      `json:"app"`
}

// UpdateSystemPromptRequest is the request to replace the system prompt.
type UpdateSystemPromptRequest struct {
	SystemPrompt string `json:"system_prompt"`
}
