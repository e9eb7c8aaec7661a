package model

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn in a conversation log. It is never modified once
// appended.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewUserMessage creates a user turn.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant turn.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// SendMessageRequest is the request to submit a new user turn.
// Zero-valued settings fall back to the server defaults.
type SendMessageRequest struct {
	Content     string   `json:"content"`
	Endpoint    string   `json:"endpoint,omitempty"`
	Model       string   `json:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
}

// SendMessageResponse is the response after a completed turn.
type SendMessageResponse struct {
	Message  *Message  `json:"message"`
	Messages []Message `json:"messages"`
}

// ErrorResponse is the body returned for a failed or rejected turn.
type ErrorResponse struct {
	Code       string `json:"code"`
	Message    string `json:"error"`
	Level      string `json:"level"`
	RetryAfter int    `json:"retry_after,omitempty"`
}
