package handlers

import (
	"net/http"
	"strconv"

	"mindscape-agent/internal/models"
	"mindscape-agent/pkg/logger"
	"mindscape-agent/pkg/middleware"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 500
)

// currentUser returns the authenticated user or writes 401 and returns false
func currentUser(c *gin.Context) (models.UserContext, bool) {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		logger.Error("User context not found in request")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return models.UserContext{}, false
	}
	return user, true
}

// pagination reads limit and offset query parameters, clamping limit to maxPageLimit
func pagination(c *gin.Context) (int, int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageLimit)))
	if err != nil || limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}
