package chat

import (
	"twin-backend/internal/database"
	"twin-backend/internal/llm"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultSystemMessage is the prompt template used when a chat has no
// override prompt bound. The persona display name is spliced in at
// personaNameIndex, right after the dash.
const DefaultSystemMessage = "Your name is a Digital Twin - . You're a helpful assistant. If you don't know the answer, just say that you don't know, don't try to make up an answer."

const personaNameIndex = 29

// insertAt splices insert into base at the given byte index. The index is
// fixed and mid-sentence, so no surrounding whitespace is adjusted; the
// result must stay byte-for-byte stable.
func insertAt(base, insert string, index int) string {
	if index > len(base) {
		index = len(base)
	}
	return base[:index] + insert + base[index:]
}

// promptToUse resolves the effective override prompt: an explicit prompt id
// on the request wins, otherwise the one bound to the chat, otherwise none.
func promptToUse(db *gorm.DB, requested uuid.NullUUID, chat database.Chat) (*database.Prompt, error) {
	promptId := requested
	if !promptId.Valid {
		promptId = chat.PromptId
	}
	if !promptId.Valid {
		return nil, nil
	}

	prompt, err := GetPrompt(db, promptId.UUID)
	if err != nil {
		return nil, err
	}
	return &prompt, nil
}

// formatHistoryMessages turns the stored exchanges into the role-tagged
// message sequence for the provider: the resolved system prompt, prior
// turns oldest first, then the new question.
func formatHistoryMessages(history []database.ChatMessage, promptContent, question string) []llm.Message {
	messages := make([]llm.Message, 0, 2*len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: promptContent})
	for _, exchange := range history {
		messages = append(messages, llm.Message{Role: llm.RoleUser, Content: exchange.UserMessage})
		messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: exchange.Assistant})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: question})
	return messages
}
