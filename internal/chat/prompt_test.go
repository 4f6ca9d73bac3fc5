package chat

import (
	"testing"

	"twin-backend/internal/database"
	"twin-backend/internal/llm"

	"github.com/stretchr/testify/assert"
)

func TestInsertPersonaName(t *testing.T) {
	result := insertAt(DefaultSystemMessage, "Ada", personaNameIndex)
	assert.Equal(t, "Your name is a Digital Twin -Ada . You're a helpful assistant. If you don't know the answer, just say that you don't know, don't try to make up an answer.", result)
}

func TestInsertAtIndexPastEnd(t *testing.T) {
	assert.Equal(t, "baseAda", insertAt("base", "Ada", 100))
}

func TestInsertEmptyName(t *testing.T) {
	assert.Equal(t, DefaultSystemMessage, insertAt(DefaultSystemMessage, "", personaNameIndex))
}

func TestFormatHistoryMessages(t *testing.T) {
	history := []database.ChatMessage{
		{UserMessage: "first question", Assistant: "first answer"},
		{UserMessage: "second question", Assistant: "second answer"},
	}

	messages := formatHistoryMessages(history, "system prompt", "new question")

	assert.Equal(t, []llm.Message{
		{Role: llm.RoleSystem, Content: "system prompt"},
		{Role: llm.RoleUser, Content: "first question"},
		{Role: llm.RoleAssistant, Content: "first answer"},
		{Role: llm.RoleUser, Content: "second question"},
		{Role: llm.RoleAssistant, Content: "second answer"},
		{Role: llm.RoleUser, Content: "new question"},
	}, messages)
}

func TestFormatHistoryMessagesEmptyHistory(t *testing.T) {
	messages := formatHistoryMessages(nil, "system prompt", "question")

	assert.Equal(t, []llm.Message{
		{Role: llm.RoleSystem, Content: "system prompt"},
		{Role: llm.RoleUser, Content: "question"},
	}, messages)
}
