package voice

import (
	"context"
	"strings"
	"sync"
	"time"
)

// TranscriptEvent is one recognition update from the fallback path.
type TranscriptEvent struct {
	Text  string
	Final bool
}

// Transcriber is the local speech-to-text fallback used when the realtime
// channel is not enabled: same partial/final semantics, no network channel.
// A session uses either a Transcriber or a voice Session, never both.
type Transcriber interface {
	Start(ctx context.Context) (<-chan TranscriptEvent, error)
	Stop() error
}

// FallbackRecognizer routes Transcriber events through the same
// recognized-text-to-submit contract as the realtime session.
type FallbackRecognizer struct {
	transcriber    Transcriber
	notifier       Notifier
	onPartial      func(string)
	submit         func(string)
	submitDebounce time.Duration

	mu       sync.Mutex
	active   bool
	debounce *time.Timer
}

func NewFallbackRecognizer(transcriber Transcriber, notifier Notifier, onPartial, submit func(string), debounce time.Duration) *FallbackRecognizer {
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}
	return &FallbackRecognizer{
		transcriber:    transcriber,
		notifier:       notifier,
		onPartial:      onPartial,
		submit:         submit,
		submitDebounce: debounce,
	}
}

// Start begins local recognition. No-op when already listening.
func (r *FallbackRecognizer) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.active {
		r.mu.Unlock()
		return nil
	}
	r.active = true
	r.mu.Unlock()

	events, err := r.transcriber.Start(ctx)
	if err != nil {
		r.mu.Lock()
		r.active = false
		r.mu.Unlock()
		if r.notifier != nil {
			r.notifier.Notify("error", "Speech recognition unavailable: "+err.Error())
		}
		return err
	}

	go func() {
		for event := range events {
			r.handle(event)
		}
		r.mu.Lock()
		r.active = false
		r.mu.Unlock()
	}()
	return nil
}

// Stop releases the recognizer synchronously.
func (r *FallbackRecognizer) Stop() error {
	r.mu.Lock()
	active := r.active
	r.mu.Unlock()
	if !active {
		return nil
	}
	return r.transcriber.Stop()
}

func (r *FallbackRecognizer) handle(event TranscriptEvent) {
	if !event.Final {
		if r.onPartial != nil {
			r.onPartial(event.Text)
		}
		return
	}

	text := strings.TrimSpace(event.Text)
	if text == "" {
		if r.notifier != nil {
			r.notifier.Notify("error", "Could not recognize speech. Please try again.")
		}
		return
	}

	r.mu.Lock()
	if r.debounce != nil {
		r.debounce.Stop()
	}
	submit := r.submit
	r.debounce = time.AfterFunc(r.submitDebounce, func() {
		if submit != nil {
			submit(text)
		}
	})
	r.mu.Unlock()
}
