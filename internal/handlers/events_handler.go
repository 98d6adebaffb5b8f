package handlers

import (
	"context"
	"net/http"
	"time"

	"mindscape-agent/internal/events"
	"mindscape-agent/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// EventsHandler serves live event streams over SSE and WebSocket
type EventsHandler struct {
	broadcaster *events.Broadcaster
	heartbeat   time.Duration
	bufferSize  int
	upgrader    websocket.Upgrader
}

// NewEventsHandler creates an events handler. allowedOrigin restricts
// WebSocket upgrades; "*" or empty accepts any origin.
func NewEventsHandler(broadcaster *events.Broadcaster, heartbeat time.Duration, bufferSize int, allowedOrigin string) *EventsHandler {
	return &EventsHandler{
		broadcaster: broadcaster,
		heartbeat:   heartbeat,
		bufferSize:  bufferSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" || allowedOrigin == "*" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		},
	}
}

func clientID(c *gin.Context) string {
	if id := c.Query("clientId"); id != "" {
		return id
	}
	return uuid.New().String()
}

// Stream handles GET /api/events as a server-sent event stream
func (h *EventsHandler) Stream(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	writer, err := events.NewSSEWriter(c.Writer)
	if err != nil {
		logger.Error("Streaming not supported", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Streaming unsupported"})
		return
	}

	id := clientID(c)
	stream := events.NewStream(id, user.UserID, h.broadcaster, h.heartbeat, h.bufferSize)
	logger.Info("Event stream opened",
		zap.String("client_id", id),
		zap.String("user_id", user.UserID),
		zap.String("transport", "sse"),
	)

	state := stream.Serve(c.Request.Context(), writer)
	logger.Info("Event stream closed",
		zap.String("client_id", id),
		zap.String("state", state.String()),
	)
}

// WebSocket handles GET /api/events/ws. Events use the same JSON frames as the
// SSE stream; client messages are discarded.
func (h *EventsHandler) WebSocket(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the error response
		logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	writer := events.NewWebSocketWriter(conn)
	defer writer.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go writer.ReadPump(cancel)

	id := clientID(c)
	stream := events.NewStream(id, user.UserID, h.broadcaster, h.heartbeat, h.bufferSize)
	logger.Info("Event stream opened",
		zap.String("client_id", id),
		zap.String("user_id", user.UserID),
		zap.String("transport", "websocket"),
	)

	state := stream.Serve(ctx, writer)
	logger.Info("Event stream closed",
		zap.String("client_id", id),
		zap.String("state", state.String()),
	)
}
