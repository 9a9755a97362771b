package summary

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/voxchat/voxchat-backend/internal/conversation"
)

// Fallback titles used when no summary can be produced.
const (
	titleEmpty    = "New Conversation"
	titleFallback = "Conversation"
)

// Service produces a short summary for a message list. Implemented by the
// HTTP client for /api/summarize.
type Service interface {
	Summarize(ctx context.Context, messages []conversation.Message, maxLength int) (string, error)
}

// Generator derives conversation titles, degrading to a local fallback when
// the summarization service is unavailable.
type Generator struct {
	service     Service
	maxLength   int
	maxMessages int
	log         *logrus.Logger
}

func NewGenerator(service Service, maxLength, maxMessages int, log *logrus.Logger) *Generator {
	if log == nil {
		log = logrus.New()
	}
	if maxLength <= 0 {
		maxLength = 50
	}
	if maxMessages <= 0 {
		maxMessages = 10
	}
	return &Generator{
		service:     service,
		maxLength:   maxLength,
		maxMessages: maxMessages,
		log:         log,
	}
}

// Generate returns a short title for the conversation. It never fails: on
// any service error it falls back to the first user message truncated to
// the title limit.
func (g *Generator) Generate(ctx context.Context, messages []conversation.Message) string {
	if len(messages) == 0 {
		return titleEmpty
	}

	head := messages
	if len(head) > g.maxMessages {
		head = head[:g.maxMessages]
	}

	if g.service != nil {
		title, err := g.service.Summarize(ctx, head, g.maxLength)
		if err == nil {
			title = strings.TrimSpace(title)
			if title != "" {
				return title
			}
		} else {
			g.log.WithError(err).Debug("summarization failed, using fallback title")
		}
	}

	return g.fallback(messages)
}

func (g *Generator) fallback(messages []conversation.Message) string {
	for _, msg := range messages {
		if msg.Role == conversation.RoleUser {
			return truncate(msg.Content, g.maxLength)
		}
	}
	return titleFallback
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
