package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type ChatQuestion struct {
	Question    string     `json:"question"`
	Model       string     `json:"model,omitempty"`
	Temperature *float64   `json:"temperature,omitempty"`
	MaxTokens   int64      `json:"max_tokens,omitempty"`
	APIKey      string     `json:"api_key,omitempty"`
	PromptId    *uuid.UUID `json:"prompt_id,omitempty"`
}

// ChatAnswer wraps one persisted exchange. PersonaName is always empty in
// responses; the persisted message intentionally stores no persona id.
type ChatAnswer struct {
	ChatId      uuid.UUID `json:"chat_id"`
	MessageId   uuid.UUID `json:"message_id"`
	UserMessage string    `json:"user_message"`
	Assistant   string    `json:"assistant"`
	MessageTime time.Time `json:"message_time"`
	PromptTitle string    `json:"prompt_title"`
	PersonaName string    `json:"persona_name"`
}

type CreateChatRequest struct {
	Title     string     `json:"title"`
	PersonaId uuid.UUID  `json:"persona_id"`
	PromptId  *uuid.UUID `json:"prompt_id,omitempty"`
}

type CreateChatResponse struct {
	ChatId string `json:"chat_id"`
}

type ChatMetadata struct {
	Id           uuid.UUID  `json:"id"`
	Title        string     `json:"title"`
	PersonaId    uuid.UUID  `json:"persona_id"`
	PromptId     *uuid.UUID `json:"prompt_id,omitempty"`
	CreationTime time.Time  `json:"creation_time"`
}

type GetChatsResponse struct {
	Chats []ChatMetadata `json:"chats"`
}

type RenameChatRequest struct {
	Title string `json:"title"`
}

type ChatHistoryQuery struct {
	Limit int `schema:"limit"`
}

type ChatHistoryItem struct {
	MessageId   uuid.UUID  `json:"message_id"`
	UserMessage string     `json:"user_message"`
	Assistant   string     `json:"assistant"`
	PromptId    *uuid.UUID `json:"prompt_id,omitempty"`
	MessageTime string     `json:"message_time"`
}

type CreatePersonaRequest struct {
	Name     string          `json:"name"`
	Settings json.RawMessage `json:"settings,omitempty"`
}

type PersonaMetadata struct {
	Id   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type CreatePersonaResponse struct {
	PersonaId string `json:"persona_id"`
}

type CreatePromptRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type PromptMetadata struct {
	Id      uuid.UUID `json:"id"`
	Title   string    `json:"title"`
	Content string    `json:"content"`
}

type CreatePromptResponse struct {
	PromptId string `json:"prompt_id"`
}
