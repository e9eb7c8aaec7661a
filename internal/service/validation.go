package service

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/neurochat-ai/neurochat/internal/model"
)

const (
	maxContentLength = 100000

	MinTemperature = 0.0
	MaxTemperature = 1.0
	MinMaxTokens   = 10
	MaxMaxTokens   = 4096
)

// ValidateMessageContent rejects empty, whitespace-only, oversized or
// non-UTF-8 input.
func ValidateMessageContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return newValidationError("content", "please enter a message")
	}
	if len(content) > maxContentLength {
		return newValidationError("content", "message exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return newValidationError("content", "message must be valid UTF-8")
	}
	return nil
}

// ValidateAPIURL requires an absolute http(s) URL with a host.
func ValidateAPIURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return newValidationError("endpoint", "invalid API URL format")
	}
	return nil
}

// ValidateTemperature requires a value in [0, 1].
func ValidateTemperature(t float64) error {
	if t < MinTemperature || t > MaxTemperature {
		return newValidationError("temperature", "temperature must be between 0.0 and 1.0")
	}
	return nil
}

// ValidateMaxTokens requires a value in [10, 4096].
func ValidateMaxTokens(n int) error {
	if n < MinMaxTokens || n > MaxMaxTokens {
		return newValidationError("max_tokens", "max tokens must be between 10 and 4096")
	}
	return nil
}

// ValidateSettings checks every per-turn control.
func ValidateSettings(settings model.TurnSettings) error {
	if err := ValidateAPIURL(settings.Endpoint); err != nil {
		return err
	}
	if strings.TrimSpace(settings.Model) == "" {
		return newValidationError("model", "model name cannot be empty")
	}
	if err := ValidateTemperature(settings.Temperature); err != nil {
		return err
	}
	return ValidateMaxTokens(settings.MaxTokens)
}
