package handlers

import (
	"net/http"

	"mindscape-agent/internal/telnyx"
	"mindscape-agent/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SimulateInboundRequest is the body of POST /api/test/inbound
type SimulateInboundRequest struct {
	FromNumber  string `json:"from_number" binding:"required"`
	ToNumber    string `json:"to_number" binding:"required"`
	MessageText string `json:"message_text"`
}

// TestInboundHandler injects inbound messages through the webhook pipeline.
// It is only routed outside production.
type TestInboundHandler struct {
	processor EventProcessor
}

// NewTestInboundHandler creates a new test inbound handler
func NewTestInboundHandler(processor EventProcessor) *TestInboundHandler {
	return &TestInboundHandler{processor: processor}
}

// Simulate handles POST /api/test/inbound
func (h *TestInboundHandler) Simulate(c *gin.Context) {
	var req SimulateInboundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from_number and to_number are required"})
		return
	}

	ev := &telnyx.MessageReceived{
		Envelope: telnyx.Envelope{
			ID:   "sim-" + uuid.New().String(),
			Type: telnyx.EventMessageReceived,
		},
		Message: telnyx.MessagePayload{
			Direction: "inbound",
			From:      telnyx.PhoneEndpoint{PhoneNumber: req.FromNumber},
			To:        telnyx.Recipients{{PhoneNumber: req.ToNumber}},
			Text:      req.MessageText,
		},
		Simulated: true,
	}

	outcome, err := h.processor.Process(c.Request.Context(), ev)
	if err != nil {
		logger.Error("Simulated inbound failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process simulated message"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"outcome": outcome.Kind,
		"reason":  outcome.Reason,
		"message": outcome.Message,
	})
}
