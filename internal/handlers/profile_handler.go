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

// UpdatePhoneRequest is the body of POST /api/messaging-profiles/phone
type UpdatePhoneRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
}

// ProfileHandler handles messaging profile requests
type ProfileHandler struct {
	profiles ProfileServiceInterface
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profiles ProfileServiceInterface) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// List handles GET /api/messaging-profiles
func (h *ProfileHandler) List(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	profiles, err := h.profiles.List(c.Request.Context(), user)
	if err != nil {
		logger.Error("Failed to list messaging profiles", zap.String("user_id", user.UserID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list messaging profiles"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"profiles": profiles})
}

// Create handles POST /api/messaging-profiles
func (h *ProfileHandler) Create(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.CreateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Profile ID and name are required"})
		return
	}

	profile, err := h.profiles.Create(c.Request.Context(), user, req)
	if err != nil {
		switch {
		case errors.Is(err, phone.ErrInvalidPhoneNumber):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid phone number format"})
		case errors.Is(err, services.ErrProfileExists):
			c.JSON(http.StatusConflict, gin.H{"error": "Messaging profile already exists"})
		default:
			logger.Error("Failed to create messaging profile", zap.String("user_id", user.UserID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create messaging profile"})
		}
		return
	}

	c.JSON(http.StatusCreated, profile)
}

// UpdatePhone handles POST /api/messaging-profiles/phone
func (h *ProfileHandler) UpdatePhone(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req UpdatePhoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Phone number is required"})
		return
	}

	profile, err := h.profiles.UpdatePhone(c.Request.Context(), user, req.PhoneNumber)
	if err != nil {
		switch {
		case errors.Is(err, phone.ErrInvalidPhoneNumber):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid phone number format"})
		case errors.Is(err, services.ErrNoActiveProfile):
			c.JSON(http.StatusNotFound, gin.H{"error": "No active messaging profile"})
		case errors.Is(err, db.ErrDuplicate):
			c.JSON(http.StatusConflict, gin.H{"error": "Phone number already used by another profile"})
		default:
			logger.Error("Failed to update profile phone", zap.String("user_id", user.UserID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update messaging profile"})
		}
		return
	}

	c.JSON(http.StatusOK, profile)
}

// Remote handles GET /api/messaging-profiles/remote
func (h *ProfileHandler) Remote(c *gin.Context) {
	profiles, err := h.profiles.Remote(c.Request.Context())
	if err != nil {
		if errors.Is(err, telnyx.ErrMissingAPIKey) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Carrier API key not configured"})
			return
		}
		logger.Error("Failed to list carrier profiles", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to list carrier profiles"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"profiles": profiles})
}
