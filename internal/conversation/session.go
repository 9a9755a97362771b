package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/voxchat/voxchat-backend/internal/analysis"
)

var (
	// ErrEmptyMessage is returned when a submission is blank.
	ErrEmptyMessage = errors.New("empty message")
	// ErrBusy is returned when a submission is already in flight.
	ErrBusy = errors.New("submission already in flight")
)

// Analyzer classifies a user message.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (analysis.Result, error)
}

// Completer produces an assistant reply for a message history.
type Completer interface {
	Complete(ctx context.Context, messages []Message, temperature float64) (string, error)
}

// Saver persists and rehydrates conversation records.
type Saver interface {
	Save(ctx context.Context, record *Record) error
	Get(ctx context.Context, id string) (*Record, error)
}

// Notifier surfaces non-blocking user-visible notices.
type Notifier interface {
	Notify(level, message string) //nolint // levels: "success", "error", "info"
}

// Session owns the single active conversation and coordinates the turn
// pipeline. Construct one per process; there are no package singletons.
type Session struct {
	analyzer  Analyzer
	completer Completer
	store     Saver
	notifier  Notifier
	log       *logrus.Logger

	temperature float64

	mu        sync.Mutex
	id        string
	title     string
	messages  []Message
	turns     []Turn
	analytics Analytics
	inFlight  bool
}

// NewSession creates a session with a fresh conversation id.
func NewSession(analyzer Analyzer, completer Completer, store Saver, notifier Notifier, temperature float64, log *logrus.Logger) *Session {
	if log == nil {
		log = logrus.New()
	}
	return &Session{
		analyzer:    analyzer,
		completer:   completer,
		store:       store,
		notifier:    notifier,
		log:         log,
		temperature: temperature,
		id:          NewID(),
		analytics:   NewAnalytics(),
	}
}

// ID returns the active conversation id.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// SetTemperature adjusts the sampling temperature for subsequent turns.
func (s *Session) SetTemperature(t float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.temperature = t
}

// Submit runs one full turn: analysis, completion, transcript append and
// save. A blank message or a submission already in flight is a no-op.
func (s *Session) Submit(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return ErrBusy
	}
	s.inFlight = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	// Analysis failures never fail the turn.
	result, err := s.analyzer.Analyze(ctx, text)
	if err != nil {
		s.log.WithError(err).Warn("analysis unavailable, using neutral result")
		result = analysis.Neutral()
	}

	s.mu.Lock()
	s.messages = append(s.messages, Message{Role: RoleUser, Content: text})
	s.analytics.RecordUserMessage(result)
	history := make([]Message, len(s.messages))
	copy(history, s.messages)
	temperature := s.temperature
	s.mu.Unlock()

	reply, err := s.completer.Complete(ctx, history, temperature)
	if err != nil {
		// The user message stays recorded; only the reply half aborts.
		s.notify("error", "Unable to get response: "+err.Error())
		return err
	}

	s.mu.Lock()
	s.messages = append(s.messages, Message{Role: RoleAssistant, Content: reply})
	s.analytics.RecordBotMessage()
	s.turns = append(s.turns, Turn{
		Timestamp: time.Now(),
		UserText:  text,
		BotText:   reply,
		Sentiment: result.Sentiment,
		Intent:    result.Intent,
		Entities:  result.Entities,
	})
	s.mu.Unlock()

	s.save(ctx)
	return nil
}

// StartNew persists the current conversation if it has any messages, then
// resets to a fresh empty conversation.
func (s *Session) StartNew(ctx context.Context) {
	s.mu.Lock()
	hasMessages := len(s.messages) > 0
	s.mu.Unlock()

	if hasMessages {
		s.save(ctx)
	}

	s.mu.Lock()
	s.id = NewID()
	s.title = ""
	s.messages = nil
	s.turns = nil
	s.analytics = NewAnalytics()
	s.mu.Unlock()
}

// LoadExisting replaces the in-memory state with a stored record. A missing
// id is a silent no-op. The current conversation is persisted first when it
// has messages.
func (s *Session) LoadExisting(ctx context.Context, id string) error {
	s.mu.Lock()
	sameConversation := s.id == id
	hasMessages := len(s.messages) > 0
	s.mu.Unlock()

	if hasMessages && !sameConversation {
		s.save(ctx)
	}

	record, err := s.store.Get(ctx, id)
	if err != nil || record == nil {
		return nil
	}

	s.mu.Lock()
	s.id = record.ID
	s.title = record.Title
	s.messages = record.Messages
	s.turns = record.Turns
	s.analytics = record.Analytics
	s.mu.Unlock()
	return nil
}

// HandleDeleted resets the session when its active conversation was removed
// from the store, so the session never points at a deleted record.
func (s *Session) HandleDeleted(ctx context.Context, id string) {
	s.mu.Lock()
	active := s.id == id
	// Drop state without re-saving; the record is gone on purpose.
	if active {
		s.messages = nil
		s.turns = nil
	}
	s.mu.Unlock()

	if active {
		s.StartNew(ctx)
	}
}

// Feedback tallies a thumbs-up or thumbs-down on the latest reply.
func (s *Session) Feedback(label string) {
	s.mu.Lock()
	s.analytics.RecordFeedback(label)
	s.mu.Unlock()

	if label == FeedbackUp {
		s.notify("success", "Thank you for the feedback!")
	} else {
		s.notify("info", "Feedback recorded. We'll improve!")
	}
}

// ClearMessages drops the visible transcript. Destructive; callers must
// confirm with the user first.
func (s *Session) ClearMessages() {
	s.mu.Lock()
	s.messages = nil
	s.mu.Unlock()
	s.notify("success", "Chat history cleared")
}

// ResetAnalytics zeroes all counters and turn history. Destructive; callers
// must confirm with the user first.
func (s *Session) ResetAnalytics() {
	s.mu.Lock()
	s.analytics = NewAnalytics()
	s.turns = nil
	s.mu.Unlock()
	s.notify("success", "Analytics reset successfully")
}

// Flush persists the current conversation. Called on shutdown so an active
// conversation is not lost with the process.
func (s *Session) Flush(ctx context.Context) {
	s.mu.Lock()
	hasMessages := len(s.messages) > 0
	s.mu.Unlock()

	if hasMessages {
		s.save(ctx)
	}
}

// Snapshot returns a copy of the current conversation state.
func (s *Session) Snapshot() Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordLocked()
}

func (s *Session) recordLocked() Record {
	messages := make([]Message, len(s.messages))
	copy(messages, s.messages)
	turns := make([]Turn, len(s.turns))
	copy(turns, s.turns)

	return Record{
		ID:           s.id,
		Title:        s.title,
		Messages:     messages,
		Turns:        turns,
		Analytics:    s.analytics.Clone(),
		MessageCount: len(messages),
	}
}

// save persists the current state. Persistence failures are logged and do
// not affect the in-memory conversation.
func (s *Session) save(ctx context.Context) {
	s.mu.Lock()
	record := s.recordLocked()
	s.mu.Unlock()

	if len(record.Messages) == 0 {
		return
	}

	if err := s.store.Save(ctx, &record); err != nil {
		s.log.WithError(err).WithField("conversation", record.ID).Error("failed to save conversation")
		return
	}

	// The store may have generated or refreshed the title.
	s.mu.Lock()
	if s.id == record.ID && record.Title != "" {
		s.title = record.Title
	}
	s.mu.Unlock()
}

func (s *Session) notify(level, message string) {
	if s.notifier != nil {
		s.notifier.Notify(level, message)
	}
}
