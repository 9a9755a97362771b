package voice

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

// WAVCapture is a Capture backed by a PCM16 WAV file, emitting frames at
// the file's native cadence. Used by the terminal client and in tests in
// place of a real microphone.
type WAVCapture struct {
	Path string
	// FrameSize is the number of samples per frame, default 4096.
	FrameSize int

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Start opens the file and begins emitting frames. The frame channel is
// closed when the file is exhausted or the capture is stopped.
func (c *WAVCapture) Start(ctx context.Context) (<-chan Frame, error) {
	samples, sampleRate, err := readWAV(c.Path)
	if err != nil {
		return nil, err
	}

	frameSize := c.FrameSize
	if frameSize <= 0 {
		frameSize = 4096
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	c.mu.Lock()
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	frames := make(chan Frame)
	go func() {
		defer close(frames)
		defer close(done)

		frameInterval := time.Duration(frameSize) * time.Second / time.Duration(sampleRate)
		for offset := 0; offset < len(samples); offset += frameSize {
			end := offset + frameSize
			if end > len(samples) {
				end = len(samples)
			}

			select {
			case <-ctx.Done():
				return
			case frames <- Frame{Samples: samples[offset:end], SampleRate: sampleRate}:
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(frameInterval):
			}
		}
	}()

	return frames, nil
}

// Stop cancels frame production and waits for the channel to close, so the
// capture is fully released on return.
func (c *WAVCapture) Stop() error {
	c.mu.Lock()
	cancel := c.cancel
	done := c.done
	c.cancel = nil
	c.done = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	return nil
}

// readWAV loads a PCM16 WAV file as mono float32 samples. Stereo input is
// downmixed by averaging.
func readWAV(path string) ([]float32, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, errors.New("not a WAV file")
	}

	var (
		sampleRate int
		channels   int
		bits       int
		pcm        []byte
	)

	// Walk the chunk list; only fmt and data matter here.
	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkLen := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if body+chunkLen > len(data) {
			break
		}

		switch chunkID {
		case "fmt ":
			if chunkLen < 16 {
				return nil, 0, errors.New("truncated fmt chunk")
			}
			format := int(binary.LittleEndian.Uint16(data[body : body+2]))
			if format != 1 {
				return nil, 0, fmt.Errorf("unsupported WAV format %d, want PCM", format)
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bits = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
		case "data":
			pcm = data[body : body+chunkLen]
		}

		// Chunks are word-aligned.
		offset = body + chunkLen + chunkLen%2
	}

	if sampleRate == 0 || pcm == nil {
		return nil, 0, errors.New("missing fmt or data chunk")
	}
	if bits != 16 {
		return nil, 0, fmt.Errorf("unsupported sample width %d bits, want 16", bits)
	}
	if channels != 1 && channels != 2 {
		return nil, 0, fmt.Errorf("unsupported channel count %d", channels)
	}

	samples := DecodePCM16(pcm)
	if channels == 2 {
		mono := make([]float32, len(samples)/2)
		for i := range mono {
			mono[i] = (samples[i*2] + samples[i*2+1]) / 2
		}
		samples = mono
	}
	return samples, sampleRate, nil
}
