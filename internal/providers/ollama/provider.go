// Package ollama implements the chat-completion provider against a local
// Ollama runtime through its OpenAI-compatible API.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/voxchat/voxchat-backend/internal/providers"
)

// Provider talks to an Ollama instance via the /v1 OpenAI-compatible API.
type Provider struct {
	name   string
	model  string
	client *openai.Client
}

// NewProvider creates a provider for the given base URL and model.
func NewProvider(baseURL, model string) (*Provider, error) {
	if baseURL == "" {
		return nil, errors.New("base URL is required for Ollama provider")
	}
	if model == "" {
		return nil, errors.New("model name is required for Ollama provider")
	}

	clientConfig := openai.DefaultConfig("ollama") // Local runtime ignores the key
	clientConfig.BaseURL = strings.TrimSuffix(baseURL, "/") + "/v1"

	return &Provider{
		name:   "Ollama",
		model:  model,
		client: openai.NewClientWithConfig(clientConfig),
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return p.name
}

// Complete performs a non-streaming completion and returns the reply text.
func (p *Provider) Complete(ctx context.Context, req providers.CompletionRequest) (string, error) {
	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
