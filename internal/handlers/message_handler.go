package handlers

import (
	"errors"
	"net/http"

	"mindscape-agent/internal/db"
	"mindscape-agent/internal/models"
	"mindscape-agent/internal/phone"
	"mindscape-agent/internal/services"
	"mindscape-agent/internal/telnyx"
	"mindscape-agent/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MessageHandler handles message send and history requests
type MessageHandler struct {
	messages MessageServiceInterface
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(messages MessageServiceInterface) *MessageHandler {
	return &MessageHandler{messages: messages}
}

// Send handles POST /api/messages/send
func (h *MessageHandler) Send(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid send request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	msg, err := h.messages.Send(c.Request.Context(), user, req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMissingFields):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields: to and text or media_urls"})
		case errors.Is(err, phone.ErrInvalidPhoneNumber):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid phone number format"})
		case errors.Is(err, services.ErrNoActiveProfile):
			c.JSON(http.StatusBadRequest, gin.H{"error": "No sender number: set from or activate a messaging profile"})
		case errors.Is(err, services.ErrSendFailed):
			detail := err.Error()
			var carrierErr *telnyx.CarrierError
			if errors.As(err, &carrierErr) {
				detail = carrierErr.Detail
			}
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to send message", "details": detail})
		default:
			logger.Error("Failed to send message", zap.String("user_id", user.UserID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		}
		return
	}

	telnyxID := ""
	if msg.CarrierMessageID != nil {
		telnyxID = *msg.CarrierMessageID
	}
	c.JSON(http.StatusCreated, gin.H{
		"success":   true,
		"message":   msg,
		"telnyx_id": telnyxID,
	})
}

// List handles GET /api/messages
func (h *MessageHandler) List(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	limit, offset := pagination(c)
	filter := db.MessageFilter{
		ContactID: c.Query("contact_id"),
		Limit:     limit,
		Offset:    offset,
	}

	messages, err := h.messages.List(c.Request.Context(), user, filter)
	if err != nil {
		logger.Error("Failed to list messages", zap.String("user_id", user.UserID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": messages,
		"limit":    limit,
		"offset":   offset,
	})
}
