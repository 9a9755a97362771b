package voice

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type readMsg struct {
	messageType int
	data        []byte
}

type written struct {
	messageType int
	data        []byte
}

type fakeConn struct {
	mu       sync.Mutex
	writes   []written
	writeErr error
	reads    chan readMsg
	closed   bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{reads: make(chan readMsg, 16)}
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.WriteMessage(TextMessage, data)
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	c.writes = append(c.writes, written{messageType, data})
	return nil
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	msg, ok := <-c.reads
	if !ok {
		return 0, nil, errors.New("connection closed")
	}
	return msg.messageType, msg.data, nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.reads)
	}
	return nil
}

func (c *fakeConn) deliverText(v interface{}) {
	data, _ := json.Marshal(v)
	c.reads <- readMsg{TextMessage, data}
}

func (c *fakeConn) writtenFrames(t *testing.T) []controlFrame {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	var frames []controlFrame
	for _, w := range c.writes {
		if w.messageType != TextMessage {
			continue
		}
		var frame controlFrame
		require.NoError(t, json.Unmarshal(w.data, &frame))
		frames = append(frames, frame)
	}
	return frames
}

type fakeCapture struct {
	mu       sync.Mutex
	frames   chan Frame
	startErr error
	stops    int
}

func newFakeCapture() *fakeCapture {
	return &fakeCapture{}
}

func (c *fakeCapture) Start(ctx context.Context) (<-chan Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.startErr != nil {
		return nil, c.startErr
	}
	c.frames = make(chan Frame, 4)
	return c.frames, nil
}

func (c *fakeCapture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stops++
	if c.frames != nil {
		close(c.frames)
		c.frames = nil
	}
	return nil
}

func (c *fakeCapture) stopCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stops
}

type fakePlayer struct {
	mu      sync.Mutex
	played  [][]byte
	playErr error
}

func (p *fakePlayer) Play(audio []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.played = append(p.played, audio)
	return p.playErr
}

func (p *fakePlayer) playedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.played)
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []string
}

func (n *recordingNotifier) Notify(level, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, level+": "+message)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.notices)
}

type harness struct {
	session  *Session
	conn     *fakeConn
	capture  *fakeCapture
	player   *fakePlayer
	notifier *recordingNotifier
	dials    int

	submitMu  sync.Mutex
	submitted []string
	partials  []string
}

func newHarness(t *testing.T) *harness {
	h := &harness{
		conn:     newFakeConn(),
		capture:  newFakeCapture(),
		player:   &fakePlayer{},
		notifier: &recordingNotifier{},
	}
	h.session = NewSession(Options{
		Endpoint:       "ws://localhost/ws/voice",
		SampleRate:     16000,
		SubmitDebounce: 10 * time.Millisecond,
		Dialer: func(ctx context.Context, endpoint string) (Conn, error) {
			h.dials++
			return h.conn, nil
		},
		Capture:  h.capture,
		Player:   h.player,
		Notifier: h.notifier,
		OnPartial: func(text string) {
			h.submitMu.Lock()
			h.partials = append(h.partials, text)
			h.submitMu.Unlock()
		},
		Submit: func(text string) {
			h.submitMu.Lock()
			h.submitted = append(h.submitted, text)
			h.submitMu.Unlock()
		},
	})
	return h
}

func (h *harness) submittedTexts() []string {
	h.submitMu.Lock()
	defer h.submitMu.Unlock()
	return append([]string(nil), h.submitted...)
}

func (h *harness) partialTexts() []string {
	h.submitMu.Lock()
	defer h.submitMu.Unlock()
	return append([]string(nil), h.partials...)
}

func TestConnect_Idempotent(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.session.Connect(context.Background()))
	assert.Equal(t, StateConnected, h.session.State())

	// Connecting again is a no-op: no second transport.
	require.NoError(t, h.session.Connect(context.Background()))
	assert.Equal(t, StateConnected, h.session.State())
	assert.Equal(t, 1, h.dials)
}

func TestConnect_FailureEntersErrorState(t *testing.T) {
	notifier := &recordingNotifier{}
	s := NewSession(Options{
		Endpoint: "ws://localhost/ws/voice",
		Dialer: func(ctx context.Context, endpoint string) (Conn, error) {
			return nil, errors.New("connection refused")
		},
		Notifier: notifier,
	})

	err := s.Connect(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateError, s.State())
	assert.Equal(t, 1, notifier.count())
}

func TestConnect_RetriesAfterError(t *testing.T) {
	dials := 0
	conn := newFakeConn()
	s := NewSession(Options{
		Endpoint: "ws://localhost/ws/voice",
		Dialer: func(ctx context.Context, endpoint string) (Conn, error) {
			dials++
			if dials == 1 {
				return nil, errors.New("refused")
			}
			return conn, nil
		},
		Notifier: &recordingNotifier{},
	})

	require.Error(t, s.Connect(context.Background()))
	assert.Equal(t, StateError, s.State())

	// Error exits through disconnected, then a fresh attempt succeeds.
	require.NoError(t, s.Connect(context.Background()))
	assert.Equal(t, StateConnected, s.State())
}

func TestStartRecording_RequiresConnected(t *testing.T) {
	h := newHarness(t)

	assert.ErrorIs(t, h.session.StartRecording(context.Background()), ErrInvalidState)
}

func TestStartRecording_CaptureFailureLeavesConnected(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.session.Connect(context.Background()))

	h.capture.startErr = errors.New("permission denied")
	err := h.session.StartRecording(context.Background())
	require.Error(t, err)

	assert.Equal(t, StateConnected, h.session.State())
	assert.Equal(t, 1, h.notifier.count())
}

func TestStartRecording_AnnouncesUtteranceThenStreamsFrames(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.session.Connect(context.Background()))
	require.NoError(t, h.session.StartRecording(context.Background()))
	assert.Equal(t, StateRecording, h.session.State())

	frames := h.conn.writtenFrames(t)
	require.Len(t, frames, 1)
	assert.Equal(t, ControlStart, frames[0].Type)
	assert.Equal(t, 16000, frames[0].SampleRate)

	// Feed one frame of audio; it must arrive as binary PCM16.
	h.capture.frames <- Frame{Samples: []float32{0, 0.5, -0.5, 1}, SampleRate: 16000}

	require.Eventually(t, func() bool {
		h.conn.mu.Lock()
		defer h.conn.mu.Unlock()
		return len(h.conn.writes) == 2
	}, time.Second, 5*time.Millisecond)

	h.conn.mu.Lock()
	audio := h.conn.writes[1]
	h.conn.mu.Unlock()
	assert.Equal(t, BinaryMessage, audio.messageType)
	require.Len(t, audio.data, 8)
	assert.Equal(t, int16(0), int16(binary.LittleEndian.Uint16(audio.data[0:])))
	assert.Equal(t, int16(0x7FFF), int16(binary.LittleEndian.Uint16(audio.data[6:])))
}

func TestStopRecording_ReleasesCaptureEvenWhenSendFails(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.session.Connect(context.Background()))
	require.NoError(t, h.session.StartRecording(context.Background()))

	// The channel dies before stop; the end frame cannot be sent.
	h.conn.mu.Lock()
	h.conn.writeErr = errors.New("broken pipe")
	h.conn.mu.Unlock()

	require.NoError(t, h.session.StopRecording())

	assert.Equal(t, StateConnected, h.session.State())
	assert.Equal(t, 1, h.capture.stopCount())
}

func TestStopRecording_SendsEndFrame(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.session.Connect(context.Background()))
	require.NoError(t, h.session.StartRecording(context.Background()))
	require.NoError(t, h.session.StopRecording())

	frames := h.conn.writtenFrames(t)
	require.Len(t, frames, 2)
	assert.Equal(t, ControlEnd, frames[1].Type)
	assert.Equal(t, StateConnected, h.session.State())
}

func TestStopRecording_RequiresRecording(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.session.Connect(context.Background()))

	assert.ErrorIs(t, h.session.StopRecording(), ErrInvalidState)
}

func TestDisconnect_StopsRecordingFirst(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.session.Connect(context.Background()))
	require.NoError(t, h.session.StartRecording(context.Background()))

	h.session.Disconnect()

	assert.Equal(t, StateDisconnected, h.session.State())
	assert.Equal(t, 1, h.capture.stopCount())

	frames := h.conn.writtenFrames(t)
	require.Len(t, frames, 2)
	assert.Equal(t, ControlEnd, frames[1].Type)
}

func TestDisconnect_FromErrorState(t *testing.T) {
	s := NewSession(Options{
		Dialer: func(ctx context.Context, endpoint string) (Conn, error) {
			return nil, errors.New("refused")
		},
		Notifier: &recordingNotifier{},
	})
	require.Error(t, s.Connect(context.Background()))
	require.Equal(t, StateError, s.State())

	s.Disconnect()
	assert.Equal(t, StateDisconnected, s.State())
}

func TestInbound_PartialUpdatesHint(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.session.Connect(context.Background()))

	h.conn.deliverText(controlFrame{Type: ControlPartial, Text: "hel"})
	h.conn.deliverText(controlFrame{Type: ControlPartial, Text: "hello"})

	require.Eventually(t, func() bool {
		return len(h.partialTexts()) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"hel", "hello"}, h.partialTexts())
	assert.Empty(t, h.submittedTexts())
}

func TestInbound_FinalSubmitsAfterDebounce(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.session.Connect(context.Background()))

	h.conn.deliverText(controlFrame{Type: ControlFinal, Text: "turn on the lights"})

	require.Eventually(t, func() bool {
		return len(h.submittedTexts()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "turn on the lights", h.submittedTexts()[0])
}

func TestInbound_EmptyFinalReportsFailure(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.session.Connect(context.Background()))

	h.conn.deliverText(controlFrame{Type: ControlFinal, Text: "  "})

	require.Eventually(t, func() bool {
		return h.notifier.count() == 1
	}, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, h.submittedTexts())
}

func TestInbound_ErrorSurfacesNotice(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.session.Connect(context.Background()))

	h.conn.deliverText(controlFrame{Type: ControlError, Message: "engine overloaded"})

	require.Eventually(t, func() bool {
		return h.notifier.count() == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, StateConnected, h.session.State())
}

func TestInbound_MalformedPayloadDiscarded(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.session.Connect(context.Background()))

	h.conn.reads <- readMsg{TextMessage, []byte("{not json")}
	h.conn.deliverText(controlFrame{Type: ControlPartial, Text: "still alive"})

	require.Eventually(t, func() bool {
		return len(h.partialTexts()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Zero(t, h.notifier.count())
	assert.Equal(t, StateConnected, h.session.State())
}

func TestInbound_BinaryPlaysAudio(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.session.Connect(context.Background()))

	h.conn.reads <- readMsg{BinaryMessage, []byte{0x52, 0x49, 0x46, 0x46}}

	require.Eventually(t, func() bool {
		return h.player.playedCount() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestInbound_PlaybackErrorSwallowed(t *testing.T) {
	h := newHarness(t)
	h.player.playErr = errors.New("no audio device")
	require.NoError(t, h.session.Connect(context.Background()))

	h.conn.reads <- readMsg{BinaryMessage, []byte{1, 2, 3}}
	h.conn.deliverText(controlFrame{Type: ControlPartial, Text: "ok"})

	require.Eventually(t, func() bool {
		return len(h.partialTexts()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Zero(t, h.notifier.count())
	assert.Equal(t, StateConnected, h.session.State())
}

func TestTransportFailure_EntersErrorState(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.session.Connect(context.Background()))

	// Server-side close: the read loop fails.
	h.conn.Close()

	require.Eventually(t, func() bool {
		return h.session.State() == StateError
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, h.notifier.count())
}

func TestRequestSpeech_RequiresConnection(t *testing.T) {
	h := newHarness(t)

	assert.ErrorIs(t, h.session.RequestSpeech("hello"), ErrNotConnected)
	assert.Equal(t, 1, h.notifier.count())
}

func TestRequestSpeech_SendsTTSFrame(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.session.Connect(context.Background()))

	require.NoError(t, h.session.RequestSpeech("read this aloud"))

	frames := h.conn.writtenFrames(t)
	require.Len(t, frames, 1)
	assert.Equal(t, ControlTTS, frames[0].Type)
	assert.Equal(t, "read this aloud", frames[0].Text)
}

func TestRequestSpeech_AllowedWhileRecording(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.session.Connect(context.Background()))
	require.NoError(t, h.session.StartRecording(context.Background()))

	assert.NoError(t, h.session.RequestSpeech("hello"))
}

// overlapConn counts writes that arrive while another write is in
// progress. Unlike fakeConn it takes no lock, so unserialized callers
// overlap instead of queueing.
type overlapConn struct {
	closed    chan struct{}
	closeOnce sync.Once
	writing   int32
	overlaps  int32
}

func (c *overlapConn) WriteJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.WriteMessage(TextMessage, data)
}

func (c *overlapConn) WriteMessage(messageType int, data []byte) error {
	if atomic.AddInt32(&c.writing, 1) > 1 {
		atomic.AddInt32(&c.overlaps, 1)
	}
	time.Sleep(50 * time.Microsecond)
	atomic.AddInt32(&c.writing, -1)
	return nil
}

func (c *overlapConn) ReadMessage() (int, []byte, error) {
	<-c.closed
	return 0, nil, errors.New("connection closed")
}

func (c *overlapConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func TestWrites_SerializedWhileRecording(t *testing.T) {
	conn := &overlapConn{closed: make(chan struct{})}
	capture := newFakeCapture()
	s := NewSession(Options{
		Endpoint: "ws://localhost/ws/voice",
		Dialer: func(ctx context.Context, endpoint string) (Conn, error) {
			return conn, nil
		},
		Capture:  capture,
		Notifier: &recordingNotifier{},
	})

	require.NoError(t, s.Connect(context.Background()))
	require.NoError(t, s.StartRecording(context.Background()))

	// Speech requests race the frame pump; the transport allows only one
	// writer at a time.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			_ = s.RequestSpeech("status update")
		}
	}()
	for i := 0; i < 200; i++ {
		capture.frames <- Frame{Samples: []float32{0.1, -0.1}, SampleRate: 16000}
	}
	<-done

	require.NoError(t, s.StopRecording())
	assert.Zero(t, atomic.LoadInt32(&conn.overlaps))
}

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		from, to State
		legal    bool
	}{
		{StateDisconnected, StateConnecting, true},
		{StateDisconnected, StateConnected, false},
		{StateConnecting, StateConnected, true},
		{StateConnecting, StateError, true},
		{StateConnected, StateRecording, true},
		{StateRecording, StateConnected, true},
		{StateRecording, StateError, true},
		{StateError, StateDisconnected, true},
		{StateError, StateConnecting, false},
		{StateError, StateConnected, false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"_to_"+tt.to.String(), func(t *testing.T) {
			assert.Equal(t, tt.legal, canTransition(tt.from, tt.to))
		})
	}
}
