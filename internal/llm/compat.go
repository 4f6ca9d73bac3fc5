package llm

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-resty/resty/v2"
)

// Compat talks to OpenAI-compatible completion servers (vLLM, LM Studio,
// LiteLLM and the like) over their /v1/chat/completions endpoint.
type Compat struct {
	client *resty.Client
}

func NewCompat(baseURL string) *Compat {
	return &Compat{
		client: resty.New().SetBaseURL(strings.TrimSuffix(baseURL, "/")),
	}
}

type compatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type compatRequest struct {
	Model       string          `json:"model"`
	Messages    []compatMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int64           `json:"max_tokens,omitempty"`
	Stream      bool            `json:"stream"`
}

type compatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type compatChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func compatBody(req Request, stream bool) compatRequest {
	messages := make([]compatMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, compatMessage{Role: msg.Role, Content: msg.Content})
	}
	return compatRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      stream,
	}
}

func (c *Compat) Complete(ctx context.Context, req Request) (string, error) {
	var parsed compatResponse
	res, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(req.APIKey).
		SetBody(compatBody(req, false)).
		SetResult(&parsed).
		Post("/v1/chat/completions")
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	if res.IsError() {
		return "", fmt.Errorf("completion request failed with status %d: %s", res.StatusCode(), res.String())
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("completion response contains no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

func (c *Compat) Stream(ctx context.Context, req Request, onToken func(token string) error) error {
	res, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(req.APIKey).
		SetBody(compatBody(req, true)).
		SetDoNotParseResponse(true).
		Post("/v1/chat/completions")
	if err != nil {
		return fmt.Errorf("streaming completion request failed: %w", err)
	}
	body := res.RawBody()
	defer body.Close()

	if res.StatusCode() >= 400 {
		return fmt.Errorf("streaming completion request failed with status %d", res.StatusCode())
	}

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			return nil
		}

		var chunk compatChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			slog.Error("error decoding stream chunk", "error", err)
			continue
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}
		if err := onToken(chunk.Choices[0].Delta.Content); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading completion stream: %w", err)
	}
	return nil
}
