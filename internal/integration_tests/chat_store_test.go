package integrationtests

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"twin-backend/internal/chat"
	"twin-backend/internal/database"
	"twin-backend/internal/llm"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoProvider struct{}

func (echoProvider) Complete(ctx context.Context, req llm.Request) (string, error) {
	last := req.Messages[len(req.Messages)-1]
	return "echo: " + last.Content, nil
}

func (echoProvider) Stream(ctx context.Context, req llm.Request, onToken func(string) error) error {
	last := req.Messages[len(req.Messages)-1]
	for _, word := range strings.SplitAfter("echo: "+last.Content, " ") {
		if err := onToken(word); err != nil {
			return err
		}
	}
	return nil
}

func extractAssistant(t *testing.T, payload string) string {
	t.Helper()

	var frame struct {
		Assistant string `json:"assistant"`
	}
	require.NoError(t, json.Unmarshal([]byte(payload), &frame))
	return frame.Assistant
}

func TestChatStorePostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := createDB(t)

	persona := database.Persona{Id: uuid.New(), Name: "Ada", CreationTime: time.Now().UTC()}
	require.NoError(t, db.Create(&persona).Error)

	record := database.Chat{Id: uuid.New(), Title: "integration", PersonaId: persona.Id, CreationTime: time.Now().UTC()}
	require.NoError(t, db.Create(&record).Error)

	service := chat.NewAnswerService(db, echoProvider{}, chat.Options{Model: "test-model"})

	// Buffered round trip.
	answer, err := service.Generate(context.Background(), record.Id, "first question")
	require.NoError(t, err)
	assert.Equal(t, "echo: first question", answer.Assistant)

	// Streaming round trip against the same chat; the prior exchange must
	// appear in the provider messages and the final row must match the
	// concatenated tokens.
	frames, err := service.GenerateStream(context.Background(), record.Id, "second question")
	require.NoError(t, err)

	var assembled strings.Builder
	for frame := range frames {
		payload := strings.TrimPrefix(frame, "data: ")
		require.NotEqual(t, frame, payload, "frame missing data prefix")
		assembled.WriteString(extractAssistant(t, payload))
	}
	assert.Equal(t, "echo: second question", assembled.String())

	history, err := chat.GetChatHistory(db, record.Id)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "first question", history[0].UserMessage)
	assert.Equal(t, "echo: first question", history[0].Assistant)
	assert.Equal(t, "second question", history[1].UserMessage)
	assert.Equal(t, "echo: second question", history[1].Assistant)
}
