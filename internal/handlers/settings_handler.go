package handlers

import (
	"errors"
	"net/http"

	"mindscape-agent/internal/models"
	"mindscape-agent/internal/services"
	"mindscape-agent/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SettingsHandler handles inbound settings requests
type SettingsHandler struct {
	settings SettingsServiceInterface
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(settings SettingsServiceInterface) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// Get handles GET /api/settings/inbound, creating defaults on first access
func (h *SettingsHandler) Get(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	settings, err := h.settings.Get(c.Request.Context(), user)
	if err != nil {
		logger.Error("Failed to load inbound settings", zap.String("user_id", user.UserID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load settings"})
		return
	}

	c.JSON(http.StatusOK, settings)
}

// Update handles PUT /api/settings/inbound. Omitted fields keep their values.
func (h *SettingsHandler) Update(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.UpdateInboundSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	settings, err := h.settings.Update(c.Request.Context(), user, &req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidSettings) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.Error("Failed to update inbound settings", zap.String("user_id", user.UserID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update settings"})
		return
	}

	logger.Info("Inbound settings updated", zap.String("user_id", user.UserID))
	c.JSON(http.StatusOK, settings)
}
