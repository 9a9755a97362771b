package handlers

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"

	"github.com/voxchat/voxchat-backend/internal/services"
	"github.com/voxchat/voxchat-backend/internal/speech"
)

// voiceFrame is a control message on the voice channel, both directions.
type voiceFrame struct {
	Type       string `json:"type"`
	SampleRate int    `json:"sampleRate,omitempty"`
	Text       string `json:"text,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Voice returns the /ws/voice handler: binary frames are PCM16 audio for the
// recognizer, text frames are start/end/tts controls. Partial and final
// transcripts flow back as text frames, synthesized speech as binary WAV.
func Voice(svc *services.Services, log *logrus.Logger) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		session := &voiceSession{
			conn: c,
			svc:  svc,
			log:  log,
		}
		defer session.teardown()

		for {
			messageType, data, err := c.ReadMessage()
			if err != nil {
				return
			}

			switch messageType {
			case websocket.TextMessage:
				session.handleControl(data)
			case websocket.BinaryMessage:
				session.handleAudio(data)
			}
		}
	}
}

// voiceSession is the per-connection state of the voice channel. Reads
// happen on the connection goroutine; writes are serialized by writeMu
// because transcripts and synthesis results arrive concurrently.
type voiceSession struct {
	conn *websocket.Conn
	svc  *services.Services
	log  *logrus.Logger

	writeMu sync.Mutex

	mu     sync.Mutex
	stream speech.Stream
}

func (s *voiceSession) handleControl(data []byte) {
	var frame voiceFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		s.log.WithError(err).Debug("discarding malformed voice control frame")
		return
	}

	switch frame.Type {
	case "start":
		s.startUtterance(frame.SampleRate)
	case "end":
		s.endUtterance()
	case "tts":
		s.synthesize(frame.Text)
	default:
		s.log.WithField("type", frame.Type).Debug("discarding unknown voice control frame")
	}
}

func (s *voiceSession) handleAudio(pcm []byte) {
	s.mu.Lock()
	stream := s.stream
	s.mu.Unlock()
	if stream == nil {
		// Audio before start is dropped.
		return
	}
	if err := stream.Write(pcm); err != nil {
		s.log.WithError(err).Warn("recognition stream rejected audio")
	}
}

func (s *voiceSession) startUtterance(sampleRate int) {
	if sampleRate <= 0 {
		sampleRate = 16000
	}

	stream, err := s.svc.Recognizer.NewStream(context.Background(), sampleRate)
	if err != nil {
		s.log.WithError(err).Error("failed to open recognition stream")
		s.writeJSON(voiceFrame{Type: "error", Message: "Speech recognition unavailable"})
		return
	}

	s.mu.Lock()
	previous := s.stream
	s.stream = stream
	s.mu.Unlock()

	// A start without a matching end abandons the previous utterance.
	if previous != nil {
		_ = previous.Close()
	}

	go s.forward(stream)
}

func (s *voiceSession) endUtterance() {
	s.mu.Lock()
	stream := s.stream
	s.stream = nil
	s.mu.Unlock()

	if stream == nil {
		return
	}
	if err := stream.End(); err != nil {
		s.log.WithError(err).Warn("failed to finish recognition stream")
	}
}

// forward relays recognition results to the client until the stream closes.
func (s *voiceSession) forward(stream speech.Stream) {
	for result := range stream.Results() {
		frame := voiceFrame{Type: "partial", Text: result.Text}
		if result.Final {
			frame.Type = "final"
		}
		s.writeJSON(frame)
	}
}

func (s *voiceSession) synthesize(text string) {
	audio, err := s.svc.Synthesizer.Synthesize(context.Background(), text)
	if err != nil {
		s.log.WithError(err).Error("speech synthesis failed")
		s.writeJSON(voiceFrame{Type: "error", Message: "Speech synthesis failed"})
		return
	}
	s.writeBinary(audio)
}

func (s *voiceSession) teardown() {
	s.mu.Lock()
	stream := s.stream
	s.stream = nil
	s.mu.Unlock()

	if stream != nil {
		_ = stream.Close()
	}
}

func (s *voiceSession) writeJSON(frame voiceFrame) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteJSON(frame); err != nil {
		s.log.WithError(err).Debug("voice channel write failed")
	}
}

func (s *voiceSession) writeBinary(data []byte) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		s.log.WithError(err).Debug("voice channel write failed")
	}
}
