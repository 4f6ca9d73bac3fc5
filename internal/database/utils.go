package database

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UpdateChatMessage rewrites the user and assistant text of an existing
// message. The streaming flow uses it to finalize the row it created with
// an empty assistant field.
func UpdateChatMessage(ctx context.Context, txn *gorm.DB, messageId uuid.UUID, userMessage, assistant string) error {
	updates := map[string]any{
		"user_message": userMessage,
		"assistant":    assistant,
	}

	if err := txn.WithContext(ctx).Model(&ChatMessage{Id: messageId}).Updates(updates).Error; err != nil {
		slog.Error("error updating chat message", "message_id", messageId, "error", err)
		return err
	}
	return nil
}
