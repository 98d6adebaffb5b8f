package handlers

import (
	"errors"
	"net/http"

	"mindscape-agent/internal/models"
	"mindscape-agent/internal/phone"
	"mindscape-agent/internal/services"
	"mindscape-agent/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ContactHandler handles contact requests
type ContactHandler struct {
	contacts ContactServiceInterface
}

// NewContactHandler creates a new contact handler
func NewContactHandler(contacts ContactServiceInterface) *ContactHandler {
	return &ContactHandler{contacts: contacts}
}

// List handles GET /api/contacts
func (h *ContactHandler) List(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	limit, offset := pagination(c)
	contacts, err := h.contacts.List(c.Request.Context(), user, limit, offset)
	if err != nil {
		logger.Error("Failed to list contacts", zap.String("user_id", user.UserID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list contacts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"contacts": contacts,
		"limit":    limit,
		"offset":   offset,
	})
}

// Create handles POST /api/contacts
func (h *ContactHandler) Create(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.CreateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Phone number is required"})
		return
	}

	contact, err := h.contacts.Create(c.Request.Context(), user, req)
	if err != nil {
		switch {
		case errors.Is(err, phone.ErrInvalidPhoneNumber):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid phone number format"})
		case errors.Is(err, services.ErrContactExists):
			c.JSON(http.StatusConflict, gin.H{"error": "Contact already exists"})
		default:
			logger.Error("Failed to create contact", zap.String("user_id", user.UserID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create contact"})
		}
		return
	}

	c.JSON(http.StatusCreated, contact)
}

// Get handles GET /api/contacts/:id
func (h *ContactHandler) Get(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	contact, err := h.contacts.Get(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrContactNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Contact not found"})
			return
		}
		logger.Error("Failed to get contact", zap.String("contact_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get contact"})
		return
	}

	c.JSON(http.StatusOK, contact)
}
