// Package speech defines the recognition and synthesis engines behind the
// realtime voice channel. Engine internals are out of scope here; the
// package pins down the contract the channel handler depends on.
package speech

import "context"

// Result is one recognition update for the current utterance.
type Result struct {
	Text  string
	Final bool
}

// Stream is a single-utterance recognition stream. Audio is fed as
// little-endian signed 16-bit PCM mono.
type Stream interface {
	// Write feeds one frame of PCM audio.
	Write(pcm []byte) error

	// Results delivers partial and final transcripts in order. The
	// channel is closed after the final result following End.
	Results() <-chan Result

	// End signals end of utterance and flushes the final result.
	End() error

	// Close releases the stream without waiting for a final result.
	Close() error
}

// Recognizer opens recognition streams.
type Recognizer interface {
	NewStream(ctx context.Context, sampleRate int) (Stream, error)
}

// Synthesizer converts text to a complete playable audio payload (WAV).
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
