package analysis

import (
	"regexp"
	"strings"
)

// Sentiment labels as rendered in the UI.
const (
	SentimentPositive = "😊 Positive"
	SentimentNegative = "😟 Negative"
	SentimentNeutral  = "😐 Neutral"
)

// Intent labels.
const (
	IntentGreeting    = "greeting"
	IntentHelpRequest = "help_request"
	IntentGratitude   = "gratitude"
	IntentQuestion    = "question"
	IntentStatement   = "statement"
)

// Result holds the per-message analysis returned by /api/analyze.
type Result struct {
	Sentiment string   `json:"sentiment"`
	Intent    string   `json:"intent"`
	Entities  []string `json:"entities"`
}

// Neutral is the substitute result used when analysis is unavailable.
func Neutral() Result {
	return Result{
		Sentiment: SentimentNeutral,
		Intent:    IntentStatement,
		Entities:  []string{},
	}
}

var (
	positiveWords = []string{"good", "great", "excellent", "happy", "love", "wonderful", "amazing", "thank", "thanks"}
	negativeWords = []string{"bad", "terrible", "hate", "angry", "sad", "awful", "worst", "disappointed"}

	greetingWords  = []string{"hello", "hi", "hey", "greetings"}
	helpWords      = []string{"help", "support", "assist"}
	gratitudeWords = []string{"thanks", "thank you", "appreciate"}

	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	urlPattern   = regexp.MustCompile(`https?://[A-Za-z0-9$\-_@.&+!*(),%/:=?#~]+`)
	phonePattern = regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`)
)

// Analyzer classifies user messages. All methods are pure and safe for
// concurrent use.
type Analyzer struct{}

func New() *Analyzer {
	return &Analyzer{}
}

// Analyze runs sentiment, intent and entity extraction over one message.
func (a *Analyzer) Analyze(text string) Result {
	return Result{
		Sentiment: a.Sentiment(text),
		Intent:    a.Intent(text),
		Entities:  a.Entities(text),
	}
}

// Sentiment scores the message by keyword tallies.
func (a *Analyzer) Sentiment(text string) string {
	lower := strings.ToLower(text)

	var pos, neg int
	for _, w := range positiveWords {
		if strings.Contains(lower, w) {
			pos++
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(lower, w) {
			neg++
		}
	}

	switch {
	case pos > neg:
		return SentimentPositive
	case neg > pos:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

// Intent maps the message to one of the known intent labels.
func (a *Analyzer) Intent(text string) string {
	lower := strings.ToLower(text)

	for _, w := range greetingWords {
		if strings.Contains(lower, w) {
			return IntentGreeting
		}
	}
	for _, w := range helpWords {
		if strings.Contains(lower, w) {
			return IntentHelpRequest
		}
	}
	for _, w := range gratitudeWords {
		if strings.Contains(lower, w) {
			return IntentGratitude
		}
	}
	if strings.Contains(text, "?") {
		return IntentQuestion
	}
	return IntentStatement
}

// Entities extracts emails, URLs and phone numbers, each prefixed with a
// type marker.
func (a *Analyzer) Entities(text string) []string {
	entities := []string{}

	for _, email := range emailPattern.FindAllString(text, -1) {
		entities = append(entities, "📧 "+email)
	}
	for _, url := range urlPattern.FindAllString(text, -1) {
		entities = append(entities, "🔗 "+url)
	}
	for _, phone := range phonePattern.FindAllString(text, -1) {
		entities = append(entities, "📱 "+phone)
	}

	return entities
}
