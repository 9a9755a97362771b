package speech

import (
	"context"
	"sync"
)

// StubRecognizer returns a fixed transcript for every utterance. Used in
// development and tests when no real recognition engine is wired.
type StubRecognizer struct {
	// Transcript is emitted as the final result of each utterance.
	Transcript string
}

func (r *StubRecognizer) NewStream(ctx context.Context, sampleRate int) (Stream, error) {
	return &stubStream{
		transcript: r.Transcript,
		results:    make(chan Result, 4),
	}, nil
}

type stubStream struct {
	transcript string
	results    chan Result

	mu       sync.Mutex
	received int
	partial  bool
	closed   bool
}

func (s *stubStream) Write(pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.received += len(pcm)

	// One partial per utterance, once audio starts flowing.
	if !s.partial && s.transcript != "" {
		s.partial = true
		select {
		case s.results <- Result{Text: s.transcript, Final: false}:
		default:
		}
	}
	return nil
}

func (s *stubStream) Results() <-chan Result {
	return s.results
}

func (s *stubStream) End() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.results <- Result{Text: s.transcript, Final: true}
	close(s.results)
	return nil
}

func (s *stubStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.results)
	return nil
}

// StubSynthesizer produces a short silent WAV for any text.
type StubSynthesizer struct {
	SampleRate int
}

func (s *StubSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	rate := s.SampleRate
	if rate <= 0 {
		rate = 16000
	}
	// 200 ms of silence per request.
	silence := make([]byte, rate/5*2)
	return EncodeWAV(silence, rate), nil
}
