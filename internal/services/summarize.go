package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/voxchat/voxchat-backend/internal/providers"
)

const summarySystemPrompt = "You are a helpful assistant that creates very brief, concise summaries of conversations. Keep summaries under the specified character limit."

// SummarizeService produces short conversation summaries.
type SummarizeService struct {
	provider providers.Provider
	timeout  time.Duration
}

func NewSummarizeService(provider providers.Provider, timeout time.Duration) *SummarizeService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SummarizeService{
		provider: provider,
		timeout:  timeout,
	}
}

// Summarize asks the completion backend for a summary of at most maxLength
// characters. The limit is a target, not strictly enforced.
func (s *SummarizeService) Summarize(ctx context.Context, messages []providers.Message, maxLength int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var conversationText strings.Builder
	for _, msg := range messages {
		speaker := "Assistant"
		if msg.Role == "user" {
			speaker = "User"
		}
		fmt.Fprintf(&conversationText, "%s: %s\n", speaker, msg.Content)
	}

	prompt := fmt.Sprintf(
		"Please provide a very brief (%d characters max) summary of this conversation. Be concise and capture the main topic:\n\n%s",
		maxLength, conversationText.String(),
	)

	summary, err := s.provider.Complete(ctx, providers.CompletionRequest{
		Messages: []providers.Message{
			{Role: "system", Content: summarySystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.3,
		MaxTokens:   150,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(summary), nil
}
