package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDatabaseSqliteMigrates(t *testing.T) {
	db, err := NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	for _, table := range []string{"personas", "prompts", "chats", "chat_messages"} {
		assert.True(t, db.Migrator().HasTable(table), "missing table %s", table)
	}
}

func TestUpdateChatMessage(t *testing.T) {
	db, err := NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	persona := Persona{Id: uuid.New(), Name: "Ada", CreationTime: time.Now().UTC()}
	require.NoError(t, db.Create(&persona).Error)

	chat := Chat{Id: uuid.New(), Title: "c", PersonaId: persona.Id, CreationTime: time.Now().UTC()}
	require.NoError(t, db.Create(&chat).Error)

	message := ChatMessage{
		Id:          uuid.New(),
		ChatId:      chat.Id,
		UserMessage: "question",
		Assistant:   "",
		MessageTime: time.Now().UTC(),
	}
	require.NoError(t, db.Create(&message).Error)

	require.NoError(t, UpdateChatMessage(context.Background(), db, message.Id, "question", "full answer"))

	var updated ChatMessage
	require.NoError(t, db.First(&updated, "id = ?", message.Id).Error)
	assert.Equal(t, "full answer", updated.Assistant)
	assert.Equal(t, "question", updated.UserMessage)
	assert.Equal(t, chat.Id, updated.ChatId)
}
