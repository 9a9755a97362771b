package voice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedTranscriber struct {
	events   chan TranscriptEvent
	startErr error
	stopped  bool
}

func (s *scriptedTranscriber) Start(ctx context.Context) (<-chan TranscriptEvent, error) {
	if s.startErr != nil {
		return nil, s.startErr
	}
	return s.events, nil
}

func (s *scriptedTranscriber) Stop() error {
	s.stopped = true
	close(s.events)
	return nil
}

func TestFallbackRecognizer_RoutesPartialsAndFinals(t *testing.T) {
	transcriber := &scriptedTranscriber{events: make(chan TranscriptEvent, 4)}

	var mu sync.Mutex
	var partials, finals []string
	r := NewFallbackRecognizer(transcriber, &recordingNotifier{},
		func(text string) {
			mu.Lock()
			partials = append(partials, text)
			mu.Unlock()
		},
		func(text string) {
			mu.Lock()
			finals = append(finals, text)
			mu.Unlock()
		},
		10*time.Millisecond,
	)

	require.NoError(t, r.Start(context.Background()))
	transcriber.events <- TranscriptEvent{Text: "turn on", Final: false}
	transcriber.events <- TranscriptEvent{Text: "turn on the lights", Final: true}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(finals) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"turn on"}, partials)
	assert.Equal(t, []string{"turn on the lights"}, finals)
}

func TestFallbackRecognizer_EmptyFinalReportsFailure(t *testing.T) {
	transcriber := &scriptedTranscriber{events: make(chan TranscriptEvent, 2)}
	notifier := &recordingNotifier{}

	r := NewFallbackRecognizer(transcriber, notifier, nil, func(string) {
		t.Error("empty final must not be submitted")
	}, 10*time.Millisecond)

	require.NoError(t, r.Start(context.Background()))
	transcriber.events <- TranscriptEvent{Text: "   ", Final: true}

	require.Eventually(t, func() bool {
		return notifier.count() == 1
	}, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
}

func TestFallbackRecognizer_StartFailure(t *testing.T) {
	transcriber := &scriptedTranscriber{startErr: errors.New("no engine")}
	notifier := &recordingNotifier{}

	r := NewFallbackRecognizer(transcriber, notifier, nil, nil, 0)
	assert.Error(t, r.Start(context.Background()))
	assert.Equal(t, 1, notifier.count())

	// Recoverable: a later start may succeed.
	transcriber.startErr = nil
	transcriber.events = make(chan TranscriptEvent)
	assert.NoError(t, r.Start(context.Background()))
	assert.NoError(t, r.Stop())
}

func TestFallbackRecognizer_StartIdempotent(t *testing.T) {
	transcriber := &scriptedTranscriber{events: make(chan TranscriptEvent)}
	r := NewFallbackRecognizer(transcriber, nil, nil, nil, 0)

	require.NoError(t, r.Start(context.Background()))
	require.NoError(t, r.Start(context.Background()))
	require.NoError(t, r.Stop())
	assert.True(t, transcriber.stopped)
}
