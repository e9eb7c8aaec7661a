// Package prompt renders conversation state into a text-completion prompt.
package prompt

import (
	"strings"

	"github.com/neurochat-ai/neurochat/internal/model"
)

const (
	systemPrefix    = "System: "
	humanPrefix     = "Human: "
	assistantPrefix = "Assistant: "

	// GenerationCue ends every prompt and marks where the model continues.
	GenerationCue = "Assistant:"
)

// DefaultStopSequences keep the model from writing the next speaker's turn.
var DefaultStopSequences = []string{"\nHuman:", "\n\nHuman:", "\nSystem:"}

// Build renders the system prompt, the last window messages of the log and
// the new user input, terminated by the generation cue. The window is a
// plain message count; it does not account for the model's token budget.
func Build(state *model.ConversationState, userInput string, window int) string {
	var b strings.Builder

	if state.SystemPrompt != "" {
		b.WriteString(systemPrefix)
		b.WriteString(state.SystemPrompt)
		b.WriteByte('\n')
	}

	for _, msg := range state.Recent(window) {
		b.WriteString(rolePrefix(msg.Role))
		b.WriteString(msg.Content)
		b.WriteByte('\n')
	}

	b.WriteString(humanPrefix)
	b.WriteString(userInput)
	b.WriteByte('\n')
	b.WriteString(GenerationCue)

	return b.String()
}

func rolePrefix(role model.Role) string {
	if role == model.RoleUser {
		return humanPrefix
	}
	return assistantPrefix
}
