package events

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait = 10 * time.Second
	wsReadLimit = 4 * 1024
)

// WebSocketWriter frames events as JSON text messages on a websocket.
type WebSocketWriter struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func NewWebSocketWriter(conn *websocket.Conn) *WebSocketWriter {
	return &WebSocketWriter{conn: conn}
}

func (w *WebSocketWriter) WriteFrame(ev Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	_ = w.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return w.conn.WriteJSON(ev)
}

// ReadPump discards client messages and calls cancel once the peer goes away.
func (w *WebSocketWriter) ReadPump(cancel context.CancelFunc) {
	defer cancel()

	w.conn.SetReadLimit(wsReadLimit)
	for {
		if _, _, err := w.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Close sends a close frame and closes the connection.
func (w *WebSocketWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	_ = w.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(wsWriteWait))
	return w.conn.Close()
}
