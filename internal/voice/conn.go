package voice

import (
	"context"

	"github.com/gorilla/websocket"
)

// WebSocket message types, matching RFC 6455 opcodes.
const (
	TextMessage   = websocket.TextMessage
	BinaryMessage = websocket.BinaryMessage
)

// Conn is the bidirectional byte-and-text stream to the voice service.
// Satisfied by *websocket.Conn.
type Conn interface {
	WriteJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// Dialer opens a Conn to the configured endpoint.
type Dialer func(ctx context.Context, endpoint string) (Conn, error)

// Dial is the default dialer, backed by gorilla/websocket.
func Dial(ctx context.Context, endpoint string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
