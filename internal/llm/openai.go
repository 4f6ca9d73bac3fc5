package llm

import (
	"context"
	"fmt"
	"log/slog"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAI calls the hosted OpenAI chat completions endpoint.
type OpenAI struct {
	baseURL string
}

func NewOpenAI() *OpenAI {
	return &OpenAI{}
}

// NewOpenAIWithBaseURL points the client at a non-default endpoint, e.g. a
// proxy that speaks the OpenAI API.
func NewOpenAIWithBaseURL(baseURL string) *OpenAI {
	return &OpenAI{baseURL: baseURL}
}

func (o *OpenAI) client(apiKey string) openai.Client {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if o.baseURL != "" {
		opts = append(opts, option.WithBaseURL(o.baseURL))
	}
	return openai.NewClient(opts...)
}

func buildParams(req Request) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       req.Model,
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(req.MaxTokens)
	}
	return params
}

func (o *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	client := o.client(req.APIKey)
	res, err := client.Chat.Completions.New(ctx, buildParams(req))
	if err != nil {
		slog.Error("openai error: chat completions failed", "error", err)
		return "", fmt.Errorf("openai completion failed: %w", err)
	}

	if len(res.Choices) == 0 {
		return "", fmt.Errorf("openai completion returned no choices")
	}
	return res.Choices[0].Message.Content, nil
}

func (o *OpenAI) Stream(ctx context.Context, req Request, onToken func(token string) error) error {
	client := o.client(req.APIKey)
	stream := client.Chat.Completions.NewStreaming(ctx, buildParams(req))
	defer stream.Close()

	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		token := chunk.Choices[0].Delta.Content
		if token == "" {
			continue
		}
		if err := onToken(token); err != nil {
			return err
		}
	}

	if err := stream.Err(); err != nil {
		slog.Error("openai error: streaming chat completion failed", "error", err)
		return fmt.Errorf("openai streaming completion failed: %w", err)
	}
	return nil
}
