// Package voice implements the client side of the realtime voice channel:
// connection lifecycle, microphone capture and framing, partial/final
// transcript handling and synthesized-audio playback.
package voice

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// ErrInvalidState is returned when an operation is not legal in the
	// current session state.
	ErrInvalidState = errors.New("operation not valid in current state")
	// ErrNotConnected is returned when the channel is required but closed.
	ErrNotConnected = errors.New("not connected to voice service")
)

// Options configures a voice session. Capture, Player and Notifier are
// injected capabilities so the state machine runs without a real audio
// environment.
type Options struct {
	Endpoint       string
	SampleRate     int           // target rate for outbound PCM, default 16000
	SubmitDebounce time.Duration // delay before a final transcript is submitted
	Dialer         Dialer
	Capture        Capture
	Player         Player
	Notifier       Notifier

	// OnState observes every state change (status indicator).
	OnState func(State)
	// OnPartial receives interim transcripts; never submitted.
	OnPartial func(text string)
	// Submit receives a recognized final transcript after the debounce.
	Submit func(text string)

	Logger *logrus.Logger
}

// Session is the voice channel state machine. All exported methods are safe
// for concurrent use.
type Session struct {
	opts Options
	log  *logrus.Logger

	mu       sync.Mutex
	state    State
	conn     Conn
	debounce *time.Timer

	// writeMu serializes all writes to the connection: the frame pump and
	// the caller-side control frames run on different goroutines, and the
	// transport allows only one concurrent writer.
	writeMu sync.Mutex
}

func (s *Session) writeControl(conn Conn, frame controlFrame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteJSON(frame)
}

func (s *Session) writeAudio(conn Conn, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteMessage(BinaryMessage, data)
}

// transitionLocked moves to the target state when the transition table
// allows it. Reports whether the state changed. Callers hold s.mu.
func (s *Session) transitionLocked(to State) bool {
	if s.state == to || !canTransition(s.state, to) {
		return false
	}
	s.state = to
	return true
}

// NewSession creates a disconnected session.
func NewSession(opts Options) *Session {
	if opts.SampleRate <= 0 {
		opts.SampleRate = 16000
	}
	if opts.SubmitDebounce <= 0 {
		opts.SubmitDebounce = 300 * time.Millisecond
	}
	if opts.Dialer == nil {
		opts.Dialer = Dial
	}
	log := opts.Logger
	if log == nil {
		log = logrus.New()
	}
	return &Session{
		opts:  opts,
		log:   log,
		state: StateDisconnected,
	}
}

// State returns the current connection state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Recording reports whether audio capture is active.
func (s *Session) Recording() bool {
	return s.State() == StateRecording
}

// Connect opens the channel. A no-op when already connected or connecting.
// From the error state it first falls back to disconnected, then retries.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateConnected, StateConnecting, StateRecording:
		s.mu.Unlock()
		return nil
	case StateError:
		// The only exit from the error state is through disconnected.
		s.transitionLocked(StateDisconnected)
	}
	s.transitionLocked(StateConnecting)
	s.mu.Unlock()
	s.observe(StateConnecting)

	conn, err := s.opts.Dialer(ctx, s.opts.Endpoint)
	if err != nil {
		s.mu.Lock()
		if s.state == StateConnecting {
			s.transitionLocked(StateError)
		}
		s.mu.Unlock()
		s.observe(StateError)
		s.notify("error", "Voice connection failed: "+err.Error())
		return err
	}

	s.mu.Lock()
	if s.state != StateConnecting {
		// Disconnected while dialing.
		s.mu.Unlock()
		conn.Close()
		return nil
	}
	s.conn = conn
	s.transitionLocked(StateConnected)
	s.mu.Unlock()
	s.observe(StateConnected)

	go s.readLoop(conn)
	return nil
}

// Disconnect tears the channel down unconditionally. Recording is stopped
// first; closing the transport is best-effort and never blocks teardown.
func (s *Session) Disconnect() {
	s.mu.Lock()
	wasRecording := s.state == StateRecording
	conn := s.conn
	s.conn = nil
	alreadyDown := !s.transitionLocked(StateDisconnected)
	s.mu.Unlock()

	if wasRecording {
		if conn != nil {
			_ = s.writeControl(conn, controlFrame{Type: ControlEnd})
		}
		if s.opts.Capture != nil {
			_ = s.opts.Capture.Stop()
		}
	}
	if conn != nil {
		_ = conn.Close()
	}
	if !alreadyDown {
		s.observe(StateDisconnected)
	}
}

// StartRecording acquires the capture device and begins streaming audio
// frames. Valid only from the connected state; acquisition failure leaves
// the state unchanged.
func (s *Session) StartRecording(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateConnected {
		s.mu.Unlock()
		return ErrInvalidState
	}
	conn := s.conn
	s.mu.Unlock()

	if s.opts.Capture == nil {
		s.notify("error", "No audio capture device available")
		return ErrInvalidState
	}

	frames, err := s.opts.Capture.Start(ctx)
	if err != nil {
		s.notify("error", "Microphone unavailable: "+err.Error())
		return err
	}

	// Announce the utterance before the first audio frame.
	if err := s.writeControl(conn, controlFrame{Type: ControlStart, SampleRate: s.opts.SampleRate}); err != nil {
		_ = s.opts.Capture.Stop()
		s.transportFailure(conn, err)
		return err
	}

	s.mu.Lock()
	if s.state != StateConnected || s.conn != conn {
		// Torn down while acquiring the device.
		s.mu.Unlock()
		_ = s.opts.Capture.Stop()
		return ErrInvalidState
	}
	s.transitionLocked(StateRecording)
	s.mu.Unlock()
	s.observe(StateRecording)

	go s.pump(conn, frames)
	return nil
}

// StopRecording sends the end-of-utterance frame (best-effort), releases
// the capture device synchronously and returns to the connected state.
func (s *Session) StopRecording() error {
	s.mu.Lock()
	if s.state != StateRecording {
		s.mu.Unlock()
		return ErrInvalidState
	}
	conn := s.conn
	s.mu.Unlock()

	if conn != nil {
		// Skipped silently when the channel is already closed.
		_ = s.writeControl(conn, controlFrame{Type: ControlEnd})
	}
	_ = s.opts.Capture.Stop()

	s.mu.Lock()
	if s.state == StateRecording {
		s.transitionLocked(StateConnected)
	}
	state := s.state
	s.mu.Unlock()
	s.observe(state)
	return nil
}

// RequestSpeech asks the service to synthesize text. Valid whenever the
// channel is open, recording or not.
func (s *Session) RequestSpeech(text string) error {
	s.mu.Lock()
	connected := s.state == StateConnected || s.state == StateRecording
	conn := s.conn
	s.mu.Unlock()

	if !connected || conn == nil {
		s.notify("error", "Not connected to voice service")
		return ErrNotConnected
	}

	if err := s.writeControl(conn, controlFrame{Type: ControlTTS, Text: text}); err != nil {
		s.transportFailure(conn, err)
		return err
	}
	return nil
}

// pump streams capture frames over the channel, one binary message per
// frame, resampled and converted to PCM16. Runs until the frame channel
// closes or a write fails.
func (s *Session) pump(conn Conn, frames <-chan Frame) {
	for frame := range frames {
		samples := Resample(frame.Samples, frame.SampleRate, s.opts.SampleRate)
		if err := s.writeAudio(conn, EncodePCM16(samples)); err != nil {
			s.mu.Lock()
			active := s.conn == conn && s.state == StateRecording
			s.mu.Unlock()
			if active {
				_ = s.opts.Capture.Stop()
				s.transportFailure(conn, err)
			}
			return
		}
	}
}

// readLoop handles inbound messages until the transport closes.
func (s *Session) readLoop(conn Conn) {
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			current := s.conn == conn
			wasRecording := current && s.state == StateRecording
			s.mu.Unlock()
			if !current {
				return // deliberate disconnect
			}
			if wasRecording && s.opts.Capture != nil {
				_ = s.opts.Capture.Stop()
			}
			s.transportFailure(conn, err)
			return
		}

		switch messageType {
		case TextMessage:
			s.handleControl(data)
		case BinaryMessage:
			s.handleAudio(data)
		}
	}
}

func (s *Session) handleControl(data []byte) {
	var frame controlFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		// Malformed payloads are discarded, not surfaced.
		s.log.WithError(err).Debug("discarding malformed control frame")
		return
	}

	switch frame.Type {
	case ControlPartial:
		if s.opts.OnPartial != nil {
			s.opts.OnPartial(frame.Text)
		}
	case ControlFinal:
		text := strings.TrimSpace(frame.Text)
		if text == "" {
			s.notify("error", "Could not recognize speech. Please try again.")
			return
		}
		s.scheduleSubmit(text)
	case ControlError:
		s.notify("error", frame.Message)
	default:
		s.log.WithField("type", frame.Type).Debug("discarding unknown control frame")
	}
}

func (s *Session) handleAudio(data []byte) {
	if s.opts.Player == nil {
		return
	}
	if err := s.opts.Player.Play(data); err != nil {
		// Playback failures are non-fatal.
		s.log.WithError(err).Debug("audio playback failed")
	}
}

// scheduleSubmit submits a final transcript after a short debounce; a newer
// final transcript supersedes a pending one.
func (s *Session) scheduleSubmit(text string) {
	s.mu.Lock()
	if s.debounce != nil {
		s.debounce.Stop()
	}
	submit := s.opts.Submit
	s.debounce = time.AfterFunc(s.opts.SubmitDebounce, func() {
		if submit != nil {
			submit(text)
		}
	})
	s.mu.Unlock()
}

// transportFailure moves the session into the error state and closes the
// failed connection. Ignored when the session already moved on.
func (s *Session) transportFailure(conn Conn, err error) {
	s.mu.Lock()
	if s.conn != conn || s.state == StateDisconnected || s.state == StateError {
		s.mu.Unlock()
		return
	}
	s.transitionLocked(StateError)
	s.conn = nil
	s.mu.Unlock()

	_ = conn.Close()
	s.observe(StateError)
	s.notify("error", "Voice connection lost: "+err.Error())
}

func (s *Session) observe(state State) {
	if s.opts.OnState != nil {
		s.opts.OnState(state)
	}
}

func (s *Session) notify(level, message string) {
	if s.opts.Notifier != nil {
		s.opts.Notifier.Notify(level, message)
	}
}
