// Package export renders a conversation as a downloadable JSON document.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/neurochat-ai/neurochat/internal/model"
)

// TimestampLayout is used for both the filename and the timestamp field.
const TimestampLayout = "20060102_150405"

// ErrNothingToExport is returned for a conversation with no messages.
var ErrNothingToExport = errors.New("no messages to export")

// Build returns the export document and its filename.
func Build(state *model.ConversationState, info model.AppInfo, now time.Time) (*model.ChatExport, string, error) {
	if len(state.Messages) == 0 {
		return nil, "", ErrNothingToExport
	}

	timestamp := now.Format(TimestampLayout)
	doc := &model.ChatExport{
		AppInfo:      info,
		Timestamp:    timestamp,
		Messages:     state.Transcript(),
		SystemPrompt: state.SystemPrompt,
	}

	return doc, Filename(now), nil
}

// Filename returns chat_history_YYYYMMDD_HHMMSS.json for t.
func Filename(t time.Time) string {
	return fmt.Sprintf("chat_history_%s.json", t.Format(TimestampLayout))
}

// Marshal encodes the document indented by two spaces.
func Marshal(doc *model.ChatExport) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}
	return data, nil
}
