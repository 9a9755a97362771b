package services

import (
	"context"
	"time"

	"github.com/voxchat/voxchat-backend/internal/providers"
)

// systemPrompt frames the assistant for every chat completion.
const systemPrompt = `You are an advanced AI assistant with the following capabilities:

1. **Conversational Understanding**: You understand context, intent, and can recognize important information.
2. **Sentiment Awareness**: You detect and respond appropriately to the user's emotional state.
3. **Helpful & Adaptive**: You learn from conversations and provide personalized responses.
4. **Professional**: You maintain a friendly yet professional tone.

Guidelines:
- Be concise but thorough
- Show empathy when detecting negative sentiment
- Provide structured responses when explaining complex topics
- Ask clarifying questions when needed
- Remember context from previous messages`

// ChatService produces assistant replies for a message history.
type ChatService struct {
	provider providers.Provider
	timeout  time.Duration
}

func NewChatService(provider providers.Provider, timeout time.Duration) *ChatService {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ChatService{
		provider: provider,
		timeout:  timeout,
	}
}

// Chat sends the history, prefixed with the system prompt, to the
// completion backend. The call is bounded by the configured timeout so a
// hung runtime cannot wedge the request.
func (s *ChatService) Chat(ctx context.Context, messages []providers.Message, temperature float32) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	withSystem := make([]providers.Message, 0, len(messages)+1)
	withSystem = append(withSystem, providers.Message{Role: "system", Content: systemPrompt})
	withSystem = append(withSystem, messages...)

	return s.provider.Complete(ctx, providers.CompletionRequest{
		Messages:    withSystem,
		Temperature: temperature,
		TopP:        0.9,
		MaxTokens:   800,
	})
}
