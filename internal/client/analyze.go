package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/voxchat/voxchat-backend/internal/analysis"
)

// AnalyzeClient calls POST /api/analyze. Any transport or status failure is
// substituted with a neutral result so a turn never fails on analysis.
type AnalyzeClient struct {
	baseURL    string
	httpClient *http.Client
	log        *logrus.Logger
}

func NewAnalyzeClient(baseURL string, timeout time.Duration, log *logrus.Logger) *AnalyzeClient {
	if log == nil {
		log = logrus.New()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AnalyzeClient{
		baseURL:    baseURL,
		httpClient: newHTTPClient(timeout),
		log:        log,
	}
}

// Analyze classifies text. On failure the neutral substitute is returned
// alongside the error so callers always have a usable result.
func (c *AnalyzeClient) Analyze(ctx context.Context, text string) (analysis.Result, error) {
	var result analysis.Result
	status, err := postJSON(ctx, c.httpClient, joinURL(c.baseURL, "/api/analyze"), map[string]string{"text": text}, &result)
	if err != nil {
		c.log.WithError(err).Debug("analyze call failed, substituting neutral result")
		return analysis.Neutral(), err
	}
	if status < 200 || status >= 300 {
		c.log.WithField("status", status).Debug("analyze call failed, substituting neutral result")
		return analysis.Neutral(), fmt.Errorf("analyze returned status %d", status)
	}
	if result.Entities == nil {
		result.Entities = []string{}
	}
	return result, nil
}
