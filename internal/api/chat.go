package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"twin-backend/internal/chat"
	"twin-backend/internal/database"
	"twin-backend/internal/llm"
	"twin-backend/pkg/api"
)

// Defaults holds the service-level answer configuration. Request fields
// override these per call; the request api_key takes precedence over the
// configured key.
type Defaults struct {
	Model       string
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

type ChatService struct {
	db       *gorm.DB
	provider llm.Completer
	defaults Defaults
}

func NewChatService(db *gorm.DB, provider llm.Completer, defaults Defaults) *ChatService {
	return &ChatService{db: db, provider: provider, defaults: defaults}
}

func (s *ChatService) AddRoutes(r chi.Router) {
	r.Route("/chats", func(r chi.Router) {
		r.Get("/", RestHandler(s.GetChats))
		r.Post("/", RestHandler(s.CreateChat))
		r.Get("/{chat_id}", RestHandler(s.GetChat))
		r.Post("/{chat_id}/rename", RestHandler(s.RenameChat))
		r.Delete("/{chat_id}", RestHandler(s.DeleteChat))
		r.Get("/{chat_id}/history", RestHandler(s.GetHistory))
		r.Post("/{chat_id}/question", RestHandler(s.AskQuestion))
		r.Post("/{chat_id}/question/stream", EventStreamHandler(s.StreamQuestion))
	})
	r.Route("/personas", func(r chi.Router) {
		r.Get("/", RestHandler(s.GetPersonas))
		r.Post("/", RestHandler(s.CreatePersona))
	})
	r.Route("/prompts", func(r chi.Router) {
		r.Get("/", RestHandler(s.GetPrompts))
		r.Post("/", RestHandler(s.CreatePrompt))
	})
}

func notFoundOr(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return CodedErrorf(http.StatusNotFound, format, args...)
	}
	return err
}

func (s *ChatService) GetChats(r *http.Request) (any, error) {
	var chats []database.Chat
	if err := s.db.Find(&chats).Error; err != nil {
		return nil, err
	}

	resp := api.GetChatsResponse{Chats: make([]api.ChatMetadata, 0, len(chats))}
	for _, c := range chats {
		meta := api.ChatMetadata{
			Id:           c.Id,
			Title:        c.Title,
			PersonaId:    c.PersonaId,
			CreationTime: c.CreationTime,
		}
		if c.PromptId.Valid {
			promptId := c.PromptId.UUID
			meta.PromptId = &promptId
		}
		resp.Chats = append(resp.Chats, meta)
	}
	return resp, nil
}

func (s *ChatService) CreateChat(r *http.Request) (any, error) {
	req, err := ParseRequest[api.CreateChatRequest](r)
	if err != nil {
		return nil, err
	}

	if _, err := chat.GetPersona(s.db, req.PersonaId); err != nil {
		return nil, notFoundOr(err, "persona %v not found", req.PersonaId)
	}

	record := database.Chat{
		Id:           uuid.New(),
		Title:        req.Title,
		PersonaId:    req.PersonaId,
		CreationTime: time.Now().UTC(),
	}
	if req.PromptId != nil {
		if _, err := chat.GetPrompt(s.db, *req.PromptId); err != nil {
			return nil, notFoundOr(err, "prompt %v not found", *req.PromptId)
		}
		record.PromptId = uuid.NullUUID{UUID: *req.PromptId, Valid: true}
	}

	if err := chat.CreateChat(s.db, &record); err != nil {
		return nil, err
	}

	return api.CreateChatResponse{ChatId: record.Id.String()}, nil
}

func (s *ChatService) GetChat(r *http.Request) (any, error) {
	chatId, err := URLParamUUID(r, "chat_id")
	if err != nil {
		return nil, err
	}

	record, err := chat.GetChat(s.db, chatId)
	if err != nil {
		return nil, notFoundOr(err, "chat %v not found", chatId)
	}

	meta := api.ChatMetadata{
		Id:           record.Id,
		Title:        record.Title,
		PersonaId:    record.PersonaId,
		CreationTime: record.CreationTime,
	}
	if record.PromptId.Valid {
		promptId := record.PromptId.UUID
		meta.PromptId = &promptId
	}
	return meta, nil
}

func (s *ChatService) RenameChat(r *http.Request) (any, error) {
	chatId, err := URLParamUUID(r, "chat_id")
	if err != nil {
		return nil, err
	}
	req, err := ParseRequest[api.RenameChatRequest](r)
	if err != nil {
		return nil, err
	}

	if err := chat.RenameChat(s.db, chatId, req.Title); err != nil {
		return nil, err
	}

	return nil, nil
}

func (s *ChatService) DeleteChat(r *http.Request) (any, error) {
	chatId, err := URLParamUUID(r, "chat_id")
	if err != nil {
		return nil, err
	}

	if err := chat.DeleteChat(s.db, chatId); err != nil {
		return nil, err
	}

	return nil, nil
}

func (s *ChatService) GetHistory(r *http.Request) (any, error) {
	chatId, err := URLParamUUID(r, "chat_id")
	if err != nil {
		return nil, err
	}
	query, err := ParseRequestQueryParams[api.ChatHistoryQuery](r)
	if err != nil {
		return nil, err
	}

	history, err := chat.GetChatHistory(s.db, chatId)
	if err != nil {
		return nil, err
	}
	if query.Limit > 0 && len(history) > query.Limit {
		history = history[len(history)-query.Limit:]
	}

	resp := make([]api.ChatHistoryItem, 0, len(history))
	for _, msg := range history {
		item := api.ChatHistoryItem{
			MessageId:   msg.Id,
			UserMessage: msg.UserMessage,
			Assistant:   msg.Assistant,
			MessageTime: msg.MessageTime.Format("2006-01-02 15:04:05"),
		}
		if msg.PromptId.Valid {
			promptId := msg.PromptId.UUID
			item.PromptId = &promptId
		}
		resp = append(resp, item)
	}

	return resp, nil
}

func (s *ChatService) answerService(req api.ChatQuestion) *chat.AnswerService {
	opts := chat.Options{
		Model:       s.defaults.Model,
		Temperature: s.defaults.Temperature,
		MaxTokens:   s.defaults.MaxTokens,
		APIKey:      s.defaults.APIKey,
		UserAPIKey:  req.APIKey,
	}
	if req.Model != "" {
		opts.Model = req.Model
	}
	if req.Temperature != nil {
		opts.Temperature = *req.Temperature
	}
	if req.MaxTokens > 0 {
		opts.MaxTokens = req.MaxTokens
	}
	if req.PromptId != nil {
		opts.PromptId = uuid.NullUUID{UUID: *req.PromptId, Valid: true}
	}

	return chat.NewAnswerService(s.db, s.provider, opts)
}

func (s *ChatService) AskQuestion(r *http.Request) (any, error) {
	chatId, err := URLParamUUID(r, "chat_id")
	if err != nil {
		return nil, err
	}
	req, err := ParseRequest[api.ChatQuestion](r)
	if err != nil {
		return nil, err
	}
	if req.Question == "" {
		return nil, CodedErrorf(http.StatusBadRequest, "question must not be empty")
	}

	answer, err := s.answerService(req).Generate(r.Context(), chatId, req.Question)
	if err != nil {
		return nil, notFoundOr(err, "chat %v has a missing record: %v", chatId, err)
	}

	return answer, nil
}

func (s *ChatService) StreamQuestion(r *http.Request) (EventFrames, error) {
	chatId, err := URLParamUUID(r, "chat_id")
	if err != nil {
		return nil, err
	}
	req, err := ParseRequest[api.ChatQuestion](r)
	if err != nil {
		return nil, err
	}
	if req.Question == "" {
		return nil, CodedErrorf(http.StatusBadRequest, "question must not be empty")
	}

	frames, err := s.answerService(req).GenerateStream(r.Context(), chatId, req.Question)
	if err != nil {
		return nil, notFoundOr(err, "chat %v has a missing record: %v", chatId, err)
	}

	return EventFrames(frames), nil
}

func (s *ChatService) GetPersonas(r *http.Request) (any, error) {
	var personas []database.Persona
	if err := s.db.Find(&personas).Error; err != nil {
		return nil, err
	}

	resp := make([]api.PersonaMetadata, 0, len(personas))
	for _, p := range personas {
		resp = append(resp, api.PersonaMetadata{Id: p.Id, Name: p.Name})
	}
	return resp, nil
}

func (s *ChatService) CreatePersona(r *http.Request) (any, error) {
	req, err := ParseRequest[api.CreatePersonaRequest](r)
	if err != nil {
		return nil, err
	}
	if req.Name == "" {
		return nil, CodedErrorf(http.StatusBadRequest, "persona name must not be empty")
	}

	persona := database.Persona{
		Id:           uuid.New(),
		Name:         req.Name,
		CreationTime: time.Now().UTC(),
	}
	if len(req.Settings) > 0 {
		persona.Settings = datatypes.JSON(req.Settings)
	}

	if err := chat.CreatePersona(s.db, &persona); err != nil {
		return nil, err
	}

	return api.CreatePersonaResponse{PersonaId: persona.Id.String()}, nil
}

func (s *ChatService) GetPrompts(r *http.Request) (any, error) {
	var prompts []database.Prompt
	if err := s.db.Find(&prompts).Error; err != nil {
		return nil, err
	}

	resp := make([]api.PromptMetadata, 0, len(prompts))
	for _, p := range prompts {
		resp = append(resp, api.PromptMetadata{Id: p.Id, Title: p.Title, Content: p.Content})
	}
	return resp, nil
}

func (s *ChatService) CreatePrompt(r *http.Request) (any, error) {
	req, err := ParseRequest[api.CreatePromptRequest](r)
	if err != nil {
		return nil, err
	}
	if req.Content == "" {
		return nil, CodedErrorf(http.StatusBadRequest, "prompt content must not be empty")
	}

	prompt := database.Prompt{
		Id:           uuid.New(),
		Title:        req.Title,
		Content:      req.Content,
		CreationTime: time.Now().UTC(),
	}
	if err := chat.CreatePrompt(s.db, &prompt); err != nil {
		return nil, err
	}

	return api.CreatePromptResponse{PromptId: prompt.Id.String()}, nil
}
