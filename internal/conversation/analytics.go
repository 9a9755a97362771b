package conversation

import (
	"time"

	"github.com/voxchat/voxchat-backend/internal/analysis"
)

// Feedback labels.
const (
	FeedbackUp   = "👍"
	FeedbackDown = "👎"
)

// Analytics holds the derived counters for one conversation.
type Analytics struct {
	TotalMessages     int            `json:"totalMessages"`
	UserMessages      int            `json:"userMessages"`
	BotMessages       int            `json:"botMessages"`
	Sentiments        map[string]int `json:"sentiments"`
	Intents           map[string]int `json:"intents"`
	Feedback          map[string]int `json:"feedback"`
	ConversationStart time.Time      `json:"conversationStart"`
}

// NewAnalytics returns zeroed counters with the start time set to now.
func NewAnalytics() Analytics {
	return Analytics{
		Sentiments: map[string]int{
			analysis.SentimentPositive: 0,
			analysis.SentimentNegative: 0,
			analysis.SentimentNeutral:  0,
		},
		Intents: map[string]int{},
		Feedback: map[string]int{
			FeedbackUp:   0,
			FeedbackDown: 0,
		},
		ConversationStart: time.Now(),
	}
}

// RecordUserMessage tallies a user message and its analysis.
func (a *Analytics) RecordUserMessage(result analysis.Result) {
	a.TotalMessages++
	a.UserMessages++
	if a.Sentiments == nil {
		a.Sentiments = map[string]int{}
	}
	a.Sentiments[result.Sentiment]++
	if a.Intents == nil {
		a.Intents = map[string]int{}
	}
	a.Intents[result.Intent]++
}

// RecordBotMessage tallies an assistant reply.
func (a *Analytics) RecordBotMessage() {
	a.TotalMessages++
	a.BotMessages++
}

// RecordFeedback tallies a thumbs-up or thumbs-down on a reply.
func (a *Analytics) RecordFeedback(label string) {
	if a.Feedback == nil {
		a.Feedback = map[string]int{}
	}
	a.Feedback[label]++
}

// Clone returns a copy with its own maps, safe to read outside the
// session mutex while the live counters keep changing.
func (a Analytics) Clone() Analytics {
	out := a
	out.Sentiments = copyCounts(a.Sentiments)
	out.Intents = copyCounts(a.Intents)
	out.Feedback = copyCounts(a.Feedback)
	return out
}

func copyCounts(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Satisfaction returns the share of positive feedback in percent, and
// false when no feedback has been recorded.
func (a *Analytics) Satisfaction() (float64, bool) {
	total := a.Feedback[FeedbackUp] + a.Feedback[FeedbackDown]
	if total == 0 {
		return 0, false
	}
	return float64(a.Feedback[FeedbackUp]) / float64(total) * 100, true
}
