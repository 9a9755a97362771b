package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/voxchat/voxchat-backend/internal/conversation"
)

// ChatClient calls POST /api/chat with the full message history and the
// configured temperature.
type ChatClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewChatClient(baseURL string, timeout time.Duration) *ChatClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ChatClient{
		baseURL:    baseURL,
		httpClient: newHTTPClient(timeout),
	}
}

type chatRequest struct {
	Messages    []conversation.Message `json:"messages"`
	Temperature float64                `json:"temperature"`
}

type chatResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

// Complete returns the assistant reply, or an error carrying the service's
// message when the call fails.
func (c *ChatClient) Complete(ctx context.Context, messages []conversation.Message, temperature float64) (string, error) {
	var resp chatResponse
	status, err := postJSON(ctx, c.httpClient, joinURL(c.baseURL, "/api/chat"), chatRequest{
		Messages:    messages,
		Temperature: temperature,
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	if status < 200 || status >= 300 {
		if resp.Error != "" {
			return "", fmt.Errorf("chat service error: %s", resp.Error)
		}
		return "", fmt.Errorf("chat service returned status %d", status)
	}
	return resp.Response, nil
}
