package chat

import (
	"context"
	"sync"
	"time"

	"twin-backend/internal/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SQLite only supports one writer at a time, so we need a lock
// whenever we write to the database
var dbMutex sync.Mutex

func GetChat(db *gorm.DB, chatId uuid.UUID) (database.Chat, error) {
	var chat database.Chat
	err := db.First(&chat, "id = ?", chatId).Error
	return chat, err
}

func GetPersona(db *gorm.DB, personaId uuid.UUID) (database.Persona, error) {
	var persona database.Persona
	err := db.First(&persona, "id = ?", personaId).Error
	return persona, err
}

func GetPrompt(db *gorm.DB, promptId uuid.UUID) (database.Prompt, error) {
	var prompt database.Prompt
	err := db.First(&prompt, "id = ?", promptId).Error
	return prompt, err
}

// GetChatHistory returns the prior exchanges of a chat oldest first.
func GetChatHistory(db *gorm.DB, chatId uuid.UUID) ([]database.ChatMessage, error) {
	var history []database.ChatMessage
	err := db.Where("chat_id = ?", chatId).Order("message_time ASC").Find(&history).Error
	return history, err
}

// CreateChatMessage persists a new exchange, filling in the id and
// timestamp when the caller left them zero.
func CreateChatMessage(db *gorm.DB, message *database.ChatMessage) error {
	if message.Id == uuid.Nil {
		message.Id = uuid.New()
	}
	if message.MessageTime.IsZero() {
		message.MessageTime = time.Now().UTC()
	}

	dbMutex.Lock()
	defer dbMutex.Unlock()
	return db.Create(message).Error
}

// UpdateChatMessage finalizes a pending streamed exchange with the full
// assistant text.
func UpdateChatMessage(ctx context.Context, db *gorm.DB, messageId uuid.UUID, userMessage, assistant string) error {
	dbMutex.Lock()
	defer dbMutex.Unlock()
	return database.UpdateChatMessage(ctx, db, messageId, userMessage, assistant)
}

func CreateChat(db *gorm.DB, chat *database.Chat) error {
	dbMutex.Lock()
	defer dbMutex.Unlock()
	return db.Create(chat).Error
}

func RenameChat(db *gorm.DB, chatId uuid.UUID, title string) error {
	dbMutex.Lock()
	defer dbMutex.Unlock()
	return db.Model(&database.Chat{}).Where("id = ?", chatId).Update("title", title).Error
}

// DeleteChat removes the chat and its messages.
func DeleteChat(db *gorm.DB, chatId uuid.UUID) error {
	dbMutex.Lock()
	defer dbMutex.Unlock()

	if err := db.Delete(&database.ChatMessage{}, "chat_id = ?", chatId).Error; err != nil {
		return err
	}
	return db.Delete(&database.Chat{}, "id = ?", chatId).Error
}

func CreatePersona(db *gorm.DB, persona *database.Persona) error {
	dbMutex.Lock()
	defer dbMutex.Unlock()
	return db.Create(persona).Error
}

func CreatePrompt(db *gorm.DB, prompt *database.Prompt) error {
	dbMutex.Lock()
	defer dbMutex.Unlock()
	return db.Create(prompt).Error
}
