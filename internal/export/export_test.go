package export

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurochat-ai/neurochat/internal/model"
)

var testInfo = model.AppInfo{Name: "NeuroChatAI", Version: "1.0.0"}

func TestBuild(t *testing.T) {
	state := model.NewConversationState()
	state.SystemPrompt = "Be terse."
	state.Append(model.NewUserMessage("Hi"))
	state.Append(model.NewAssistantMessage("Hello"))

	now := time.Date(2024, 3, 9, 7, 5, 2, 0, time.UTC)
	doc, filename, err := Build(state, testInfo, now)

	require.NoError(t, err)
	assert.Equal(t, "chat_history_20240309_070502.json", filename)
	assert.Equal(t, "20240309_070502", doc.Timestamp)
	assert.Equal(t, "Be terse.", doc.SystemPrompt)
	assert.Equal(t, testInfo, doc.AppInfo)
	assert.Len(t, doc.Messages, 2)

	// The export does not alias the live log.
	state.Append(model.NewUserMessage("later"))
	assert.Len(t, doc.Messages, 2)
}

func TestBuild_EmptyLogRefused(t *testing.T) {
	_, _, err := Build(model.NewConversationState(), testInfo, time.Now())

	assert.ErrorIs(t, err, ErrNothingToExport)
}

func TestMarshal_DocumentShape(t *testing.T) {
	state := model.NewConversationState()
	state.Append(model.NewUserMessage("Hi"))
	doc, _, err := Build(state, testInfo, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	data, err := Marshal(doc)
	require.NoError(t, err)

	assert.True(t, strings.Contains(string(data), "\n  \"app_info\": {"), "expected two-space indentation")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	for _, key := range []string{"app_info", "timestamp", "messages", "system_prompt"} {
		assert.Contains(t, decoded, key)
	}
	assert.Len(t, decoded, 4)
}

func TestMarshal_AppInfoFields(t *testing.T) {
	state := model.NewConversationState()
	state.Append(model.NewUserMessage("Hi"))
	info := model.AppInfo{
		Name:       "NeuroChatAI",
		Version:    "1.0.0",
		Created:    "2025-01-22 16:10:37 UTC",
		Author:     "Cs944612",
		Repository: "https://github.com/Cs944612/NeuroChatAI",
	}
	doc, _, err := Build(state, info, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	data, err := Marshal(doc)
	require.NoError(t, err)

	var decoded struct {
		AppInfo map[string]string `json:"app_info"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, map[string]string{
		"name":       "NeuroChatAI",
		"version":    "1.0.0",
		"created":    "2025-01-22 16:10:37 UTC",
		"author":     "Cs944612",
		"repository": "https://github.com/Cs944612/NeuroChatAI",
	}, decoded.AppInfo)
}
