package handlers

import (
	"errors"
	"net/http"

	"mindscape-agent/internal/config"
	"mindscape-agent/internal/models"
	"mindscape-agent/internal/services"
	"mindscape-agent/pkg/logger"
	"mindscape-agent/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	config *config.Config
	auth   Authenticator
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(cfg *config.Config, auth Authenticator) *AuthHandler {
	return &AuthHandler{config: cfg, auth: auth}
}

// Login handles user authentication and returns a JWT token
func (h *AuthHandler) Login(c *gin.Context) {
	logger.Info("Auth login endpoint called")
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to parse login request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	if req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
		return
	}

	user, err := h.auth.Authenticate(req.Username, req.Password, req.TOTPCode)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAccountLocked):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Account temporarily locked"})
		case errors.Is(err, services.ErrInvalidTOTP):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid TOTP code"})
		case errors.Is(err, services.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		default:
			logger.Error("Authentication error", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Authentication failed"})
		}
		return
	}

	token, expiresAt, err := middleware.GenerateToken(user, h.config)
	if err != nil {
		logger.Error("Failed to generate token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expiresAt.Unix(),
		"user":       user,
	})
}
