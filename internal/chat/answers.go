package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"twin-backend/internal/database"
	"twin-backend/internal/llm"
	"twin-backend/pkg/api"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Options configures one AnswerService. UserAPIKey takes precedence over
// APIKey when set; neither is validated locally, a missing key surfaces as
// an error from the provider call.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int64

	// APIKey is the service-level key; UserAPIKey is supplied by the
	// caller and wins when non-empty.
	APIKey     string
	UserAPIKey string

	// PromptId, when valid, overrides the prompt bound to the chat.
	PromptId uuid.NullUUID

	// SystemMessage defaults to DefaultSystemMessage.
	SystemMessage string
}

// AnswerService answers a question against one chat: it assembles the
// provider messages from the chat history and persona, calls the
// completion provider, and persists the exchange.
type AnswerService struct {
	db       *gorm.DB
	provider llm.Completer
	opts     Options
	apiKey   string
}

func NewAnswerService(db *gorm.DB, provider llm.Completer, opts Options) *AnswerService {
	if opts.SystemMessage == "" {
		opts.SystemMessage = DefaultSystemMessage
	}

	apiKey := opts.APIKey
	if opts.UserAPIKey != "" {
		apiKey = opts.UserAPIKey
	}

	return &AnswerService{db: db, provider: provider, opts: opts, apiKey: apiKey}
}

// promptMaterial is everything resolved before the provider call, shared by
// both the buffered and the streaming path.
type promptMaterial struct {
	messages    []llm.Message
	promptTitle string
	promptId    uuid.NullUUID
}

func (s *AnswerService) resolve(chatId uuid.UUID, question string) (promptMaterial, error) {
	chat, err := GetChat(s.db, chatId)
	if err != nil {
		return promptMaterial{}, fmt.Errorf("error loading chat: %w", err)
	}

	history, err := GetChatHistory(s.db, chatId)
	if err != nil {
		return promptMaterial{}, fmt.Errorf("error loading chat history: %w", err)
	}

	persona, err := GetPersona(s.db, chat.PersonaId)
	if err != nil {
		return promptMaterial{}, fmt.Errorf("error loading persona: %w", err)
	}

	prompt, err := promptToUse(s.db, s.opts.PromptId, chat)
	if err != nil {
		return promptMaterial{}, fmt.Errorf("error loading prompt: %w", err)
	}

	promptContent := insertAt(s.opts.SystemMessage, persona.Name, personaNameIndex)
	material := promptMaterial{}
	if prompt != nil {
		promptContent = prompt.Content
		material.promptTitle = prompt.Title
		material.promptId = uuid.NullUUID{UUID: prompt.Id, Valid: true}
	}

	material.messages = formatHistoryMessages(history, promptContent, question)
	return material, nil
}

func (s *AnswerService) request(messages []llm.Message) llm.Request {
	return llm.Request{
		Model:       s.opts.Model,
		Temperature: s.opts.Temperature,
		MaxTokens:   s.opts.MaxTokens,
		APIKey:      s.apiKey,
		Messages:    messages,
	}
}

// Generate answers the question in one buffered provider call and persists
// exactly one new ChatMessage. Provider errors propagate unhandled; nothing
// is persisted on failure.
func (s *AnswerService) Generate(ctx context.Context, chatId uuid.UUID, question string) (api.ChatAnswer, error) {
	material, err := s.resolve(chatId, question)
	if err != nil {
		return api.ChatAnswer{}, err
	}

	answer, err := s.provider.Complete(ctx, s.request(material.messages))
	if err != nil {
		return api.ChatAnswer{}, err
	}

	message := database.ChatMessage{
		ChatId:      chatId,
		UserMessage: question,
		Assistant:   answer,
		PromptId:    material.promptId,
	}
	if err := CreateChatMessage(s.db, &message); err != nil {
		return api.ChatAnswer{}, fmt.Errorf("error saving chat message: %w", err)
	}

	return api.ChatAnswer{
		ChatId:      chatId,
		MessageId:   message.Id,
		UserMessage: question,
		Assistant:   answer,
		MessageTime: message.MessageTime,
		PromptTitle: material.promptTitle,
	}, nil
}

// Frames is the sequence of event-stream lines produced by one streaming
// call. Each frame is the literal prefix "data: " followed by the JSON
// payload; the transport adds the event terminator.
type Frames func(yield func(frame string) bool)

// GenerateStream answers the question with a streaming provider call.
//
// The pending ChatMessage (empty assistant text) is persisted before the
// first frame and updated in place with the full answer once the stream
// ends. Each frame's payload carries only the latest token in its assistant
// field; the running total lives only in the internal accumulator.
//
// Provider errors inside the background call are logged and suppressed: the
// frame sequence still terminates and the message is finalized with
// whatever was accumulated, possibly the empty string. Abandoning the
// iterator early does not cancel the provider call or the final update.
func (s *AnswerService) GenerateStream(ctx context.Context, chatId uuid.UUID, question string) (Frames, error) {
	material, err := s.resolve(chatId, question)
	if err != nil {
		return nil, err
	}

	message := database.ChatMessage{
		ChatId:      chatId,
		UserMessage: question,
		Assistant:   "",
		PromptId:    material.promptId,
	}
	if err := CreateChatMessage(s.db, &message); err != nil {
		return nil, fmt.Errorf("error saving chat message: %w", err)
	}

	// The provider call starts only after the pending record exists.
	sink := newTokenSink()

	callCtx := context.WithoutCancel(ctx)
	go func() {
		defer sink.Finish()

		err := s.provider.Stream(callCtx, s.request(material.messages), func(token string) error {
			sink.Push(token)
			return nil
		})
		if err != nil {
			slog.Error("streaming completion failed", "chat_id", chatId, "error", err)
		}
		sink.EndStream()
	}()

	payload := api.ChatAnswer{
		ChatId:      chatId,
		MessageId:   message.Id,
		UserMessage: question,
		MessageTime: message.MessageTime,
		PromptTitle: material.promptTitle,
	}

	frames := func(yield func(frame string) bool) {
		var tokens []string
		yielding := true
		for token := range sink.Tokens() {
			tokens = append(tokens, token)
			if !yielding {
				continue
			}

			payload.Assistant = token
			data, err := json.Marshal(payload)
			if err != nil {
				slog.Error("error encoding stream frame", "chat_id", chatId, "error", err)
				continue
			}
			if !yield("data: " + string(data)) {
				// Consumer abandoned iteration; keep draining so the
				// provider call completes and the message still finalizes.
				yielding = false
			}
		}

		<-sink.Done()

		assistant := strings.Join(tokens, "")
		if err := UpdateChatMessage(callCtx, s.db, message.Id, question, assistant); err != nil {
			slog.Error("error finalizing streamed message", "chat_id", chatId, "message_id", message.Id, "error", err)
		}
	}

	return frames, nil
}
