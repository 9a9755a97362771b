package providers

import "context"

// Message is a single chat message in provider format.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is a request for a chat completion.
type CompletionRequest struct {
	Messages    []Message
	Temperature float32
	TopP        float32
	MaxTokens   int
}

// Provider is a chat-completion backend.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
