package conversation

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry in a conversation transcript.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Turn records one user message together with its reply and analysis.
type Turn struct {
	Timestamp time.Time `json:"timestamp"`
	UserText  string    `json:"user"`
	BotText   string    `json:"bot"`
	Sentiment string    `json:"sentiment"`
	Intent    string    `json:"intent"`
	Entities  []string  `json:"entities"`
}

// Record is the persisted unit representing one full conversation.
type Record struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Messages     []Message `json:"messages"`
	Turns        []Turn    `json:"turns"`
	Analytics    Analytics `json:"analytics"`
	SavedAt      time.Time `json:"savedAt"`
	MessageCount int       `json:"messageCount"`
}

// NewID generates a fresh conversation identifier.
func NewID() string {
	return fmt.Sprintf("conv_%s", uuid.New().String())
}
