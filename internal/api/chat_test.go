package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"twin-backend/internal/database"
	"twin-backend/internal/llm"
	pkgapi "twin-backend/pkg/api"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type scriptedProvider struct {
	tokens  []string
	lastReq llm.Request
}

func (p *scriptedProvider) Complete(ctx context.Context, req llm.Request) (string, error) {
	p.lastReq = req
	return strings.Join(p.tokens, ""), nil
}

func (p *scriptedProvider) Stream(ctx context.Context, req llm.Request, onToken func(string) error) error {
	p.lastReq = req
	for _, token := range p.tokens {
		if err := onToken(token); err != nil {
			return err
		}
	}
	return nil
}

func setupRouter(t *testing.T, provider llm.Completer) (chi.Router, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.GetMigrator(db).Migrate())

	chatService := NewChatService(db, provider, Defaults{
		Model:       "gpt-4o-mini",
		Temperature: 0,
		MaxTokens:   256,
		APIKey:      "service-key",
	})
	router := chi.NewRouter()
	chatService.AddRoutes(router)
	return router, db
}

func doJSON(t *testing.T, router chi.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func createFixtures(t *testing.T, router chi.Router) (personaId, chatId string) {
	t.Helper()

	rec := doJSON(t, router, http.MethodPost, "/personas", pkgapi.CreatePersonaRequest{Name: "Ada"})
	require.Equal(t, http.StatusOK, rec.Code)
	var personaResp pkgapi.CreatePersonaResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&personaResp))

	createReq := pkgapi.CreateChatRequest{Title: "Test Chat", PersonaId: uuid.MustParse(personaResp.PersonaId)}
	rec = doJSON(t, router, http.MethodPost, "/chats", createReq)
	require.Equal(t, http.StatusOK, rec.Code)
	var chatResp pkgapi.CreateChatResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&chatResp))

	return personaResp.PersonaId, chatResp.ChatId
}

func TestChatLifecycle(t *testing.T) {
	provider := &scriptedProvider{tokens: []string{"fine"}}
	router, _ := setupRouter(t, provider)

	_, chatId := createFixtures(t, router)

	// List chats
	rec := doJSON(t, router, http.MethodGet, "/chats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var chatsResp pkgapi.GetChatsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&chatsResp))
	require.Len(t, chatsResp.Chats, 1)
	assert.Equal(t, "Test Chat", chatsResp.Chats[0].Title)

	// Rename
	rec = doJSON(t, router, http.MethodPost, "/chats/"+chatId+"/rename", pkgapi.RenameChatRequest{Title: "Renamed"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/chats/"+chatId, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var meta pkgapi.ChatMetadata
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&meta))
	assert.Equal(t, "Renamed", meta.Title)

	// Delete
	rec = doJSON(t, router, http.MethodDelete, "/chats/"+chatId, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/chats/"+chatId, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateChatUnknownPersona(t *testing.T) {
	router, _ := setupRouter(t, &scriptedProvider{})

	rec := doJSON(t, router, http.MethodPost, "/chats", map[string]any{
		"title":      "orphan",
		"persona_id": "0b2700e2-6cbe-4c54-9478-cd0e83f024b4",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAskQuestion(t *testing.T) {
	provider := &scriptedProvider{tokens: []string{"It is ", "42."}}
	router, db := setupRouter(t, provider)
	_, chatId := createFixtures(t, router)

	rec := doJSON(t, router, http.MethodPost, "/chats/"+chatId+"/question", pkgapi.ChatQuestion{Question: "What is the answer?"})
	require.Equal(t, http.StatusOK, rec.Code)

	var answer pkgapi.ChatAnswer
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&answer))
	assert.Equal(t, "What is the answer?", answer.UserMessage)
	assert.Equal(t, "It is 42.", answer.Assistant)
	assert.Empty(t, answer.PersonaName)

	// Default prompt carries the persona name.
	assert.Contains(t, provider.lastReq.Messages[0].Content, "Your name is a Digital Twin -Ada .")

	var count int64
	require.NoError(t, db.Model(&database.ChatMessage{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// History shows the exchange.
	rec = doJSON(t, router, http.MethodGet, "/chats/"+chatId+"/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history []pkgapi.ChatHistoryItem
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&history))
	require.Len(t, history, 1)
	assert.Equal(t, "It is 42.", history[0].Assistant)
}

func TestAskQuestionEmptyQuestion(t *testing.T) {
	router, _ := setupRouter(t, &scriptedProvider{})
	_, chatId := createFixtures(t, router)

	rec := doJSON(t, router, http.MethodPost, "/chats/"+chatId+"/question", pkgapi.ChatQuestion{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAskQuestionUnknownChat(t *testing.T) {
	router, _ := setupRouter(t, &scriptedProvider{tokens: []string{"x"}})

	rec := doJSON(t, router, http.MethodPost, "/chats/0b2700e2-6cbe-4c54-9478-cd0e83f024b4/question", pkgapi.ChatQuestion{Question: "hi"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAskQuestionUserKeyOverridesServiceKey(t *testing.T) {
	provider := &scriptedProvider{tokens: []string{"ok"}}
	router, _ := setupRouter(t, provider)
	_, chatId := createFixtures(t, router)

	rec := doJSON(t, router, http.MethodPost, "/chats/"+chatId+"/question", pkgapi.ChatQuestion{Question: "hi", APIKey: "user-key"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-key", provider.lastReq.APIKey)

	rec = doJSON(t, router, http.MethodPost, "/chats/"+chatId+"/question", pkgapi.ChatQuestion{Question: "hi"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "service-key", provider.lastReq.APIKey)
}

func TestStreamQuestion(t *testing.T) {
	provider := &scriptedProvider{tokens: []string{"Hel", "lo", "!"}}
	router, db := setupRouter(t, provider)
	_, chatId := createFixtures(t, router)

	rec := doJSON(t, router, http.MethodPost, "/chats/"+chatId+"/question/stream", pkgapi.ChatQuestion{Question: "greet"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	var assembled string
	var events int
	for _, line := range strings.Split(rec.Body.String(), "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		events++
		var payload pkgapi.ChatAnswer
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &payload))
		assembled += payload.Assistant
	}
	assert.Equal(t, 3, events)
	assert.Equal(t, "Hello!", assembled)

	var message database.ChatMessage
	require.NoError(t, db.First(&message, "user_message = ?", "greet").Error)
	assert.Equal(t, "Hello!", message.Assistant)
}

func TestStreamQuestionUnknownChat(t *testing.T) {
	router, _ := setupRouter(t, &scriptedProvider{tokens: []string{"x"}})

	rec := doJSON(t, router, http.MethodPost, "/chats/0b2700e2-6cbe-4c54-9478-cd0e83f024b4/question/stream", pkgapi.ChatQuestion{Question: "hi"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPromptOverrideEndToEnd(t *testing.T) {
	provider := &scriptedProvider{tokens: []string{"aye"}}
	router, _ := setupRouter(t, provider)
	_, chatId := createFixtures(t, router)

	rec := doJSON(t, router, http.MethodPost, "/prompts", pkgapi.CreatePromptRequest{Title: "pirate", Content: "You are a pirate."})
	require.Equal(t, http.StatusOK, rec.Code)
	var promptResp pkgapi.CreatePromptResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&promptResp))

	question := map[string]any{"question": "ahoy", "prompt_id": promptResp.PromptId}
	rec = doJSON(t, router, http.MethodPost, "/chats/"+chatId+"/question", question)
	require.Equal(t, http.StatusOK, rec.Code)

	var answer pkgapi.ChatAnswer
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&answer))
	assert.Equal(t, "pirate", answer.PromptTitle)
	assert.Equal(t, "You are a pirate.", provider.lastReq.Messages[0].Content)
}
