package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"mindscape-agent/internal/metrics"
	"mindscape-agent/internal/telnyx"
	"mindscape-agent/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxWebhookBody caps the carrier payload read into memory
const maxWebhookBody = 1 << 20

// WebhookHandler receives carrier webhook deliveries
type WebhookHandler struct {
	processor EventProcessor
	verifier  SignatureVerifier
	now       func() time.Time
}

// NewWebhookHandler creates a webhook handler. A nil verifier disables
// signature enforcement.
func NewWebhookHandler(processor EventProcessor, verifier SignatureVerifier) *WebhookHandler {
	return &WebhookHandler{
		processor: processor,
		verifier:  verifier,
		now:       time.Now,
	}
}

// Receive handles POST /api/webhooks/telnyx. Only a failed signature check
// produces a non-2xx response; everything after it is acknowledged so the
// carrier does not retry.
func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		logger.Error("Failed to read webhook body", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read request body"})
		return
	}

	if h.verifier != nil {
		signature := c.GetHeader(telnyx.HeaderSignature)
		timestamp := c.GetHeader(telnyx.HeaderTimestamp)
		if err := h.verifier.Verify(body, signature, timestamp, h.now()); err != nil {
			metrics.WebhookSignatureFailures.Inc()
			logger.Warn("Rejected webhook with invalid signature",
				zap.String("client_ip", c.ClientIP()),
				zap.Error(err),
			)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
			return
		}
	}

	ev, err := telnyx.ParseWebhook(body)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("malformed", "error").Inc()
		logger.Error("Failed to parse webhook payload", zap.Error(err), zap.Int("body_size", len(body)))
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	// Processing outlives a carrier disconnect
	ctx := context.WithoutCancel(c.Request.Context())
	outcome, err := h.processor.Process(ctx, ev)
	if err != nil {
		logger.Error("Webhook processing failed",
			zap.String("event_id", ev.EventID()),
			zap.String("event_type", ev.EventType()),
			zap.Error(err),
		)
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	logger.Debug("Webhook processed",
		zap.String("event_id", ev.EventID()),
		zap.String("event_type", ev.EventType()),
		zap.String("outcome", string(outcome.Kind)),
		zap.String("reason", string(outcome.Reason)),
	)
	c.JSON(http.StatusOK, gin.H{"received": true})
}
