package handlers

import (
	"context"
	"net/http"
	"time"

	"mindscape-agent/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// ConnectionCounter reports the number of live stream connections
type ConnectionCounter interface {
	Count() int
}

// HealthHandler reports service liveness
type HealthHandler struct {
	db          Pinger
	connections ConnectionCounter
	version     string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db Pinger, connections ConnectionCounter, version string) *HealthHandler {
	return &HealthHandler{db: db, connections: connections, version: version}
}

// Check handles GET /health
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	state := "ok"
	database := "ok"
	if err := h.db.Ping(ctx); err != nil {
		logger.Error("Health check database ping failed", zap.Error(err))
		status = http.StatusServiceUnavailable
		state = "degraded"
		database = "unreachable"
	}

	c.JSON(status, gin.H{
		"status":      state,
		"time":        time.Now().UTC(),
		"version":     h.version,
		"service":     "mindscape-agent",
		"database":    database,
		"connections": h.connections.Count(),
	})
}
