package voice

import "context"

// Frame is one fixed-size window of mono samples from an audio source.
type Frame struct {
	Samples    []float32
	SampleRate int
}

// Capture is an audio capture handle (microphone or equivalent). Start
// acquires the device and begins producing frames; Stop releases the
// device synchronously and closes the frame channel.
type Capture interface {
	Start(ctx context.Context) (<-chan Frame, error)
	Stop() error
}

// Player plays a complete audio payload (a WAV container).
type Player interface {
	Play(audio []byte) error
}

// Notifier surfaces non-blocking user-visible notices.
type Notifier interface {
	Notify(level, message string)
}
