package llm

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string
	Content string
}

type Request struct {
	Model       string
	Temperature float64
	MaxTokens   int64
	APIKey      string
	Messages    []Message
}

// Completer is the chat-completion provider abstraction. A missing or
// invalid API key is not validated here; it surfaces as an error from the
// provider call itself.
type Completer interface {
	// Complete issues one buffered completion and returns the full
	// assistant message.
	Complete(ctx context.Context, req Request) (string, error)

	// Stream issues a streaming completion, invoking onToken for every
	// content delta in the order the provider produces them. It returns
	// once the provider signals completion, or with the first error from
	// the provider or the callback.
	Stream(ctx context.Context, req Request, onToken func(token string) error) error
}
