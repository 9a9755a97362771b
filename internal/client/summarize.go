package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/voxchat/voxchat-backend/internal/conversation"
)

// SummarizeClient calls POST /api/summarize. Failures are surfaced so the
// summary generator can degrade to its local fallback.
type SummarizeClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewSummarizeClient(baseURL string, timeout time.Duration) *SummarizeClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SummarizeClient{
		baseURL:    baseURL,
		httpClient: newHTTPClient(timeout),
	}
}

type summarizeRequest struct {
	Messages  []conversation.Message `json:"messages"`
	MaxLength int                    `json:"maxLength"`
}

type summarizeResponse struct {
	Summary string `json:"summary"`
}

// Summarize requests a short summary of the given messages.
func (c *SummarizeClient) Summarize(ctx context.Context, messages []conversation.Message, maxLength int) (string, error) {
	var resp summarizeResponse
	status, err := postJSON(ctx, c.httpClient, joinURL(c.baseURL, "/api/summarize"), summarizeRequest{
		Messages:  messages,
		MaxLength: maxLength,
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("summarize request failed: %w", err)
	}
	if status < 200 || status >= 300 {
		return "", fmt.Errorf("summarize service returned status %d", status)
	}
	return resp.Summary, nil
}
