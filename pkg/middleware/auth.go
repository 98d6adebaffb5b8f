package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"mindscape-agent/internal/config"
	"mindscape-agent/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// UserContextKey is the gin context key holding the authenticated models.UserContext
const UserContextKey = "userContext"

// Claims represents the JWT claims
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// AuthMiddleware creates a middleware for JWT authentication. The token is
// read from the Authorization header, or from the token query parameter for
// EventSource and WebSocket clients that cannot set headers.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := bearerToken(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort()
			return
		}

		token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return []byte(cfg.JWT.Secret), nil
		})
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Token has expired"})
				c.Abort()
				return
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(*Claims)
		if !ok || claims.UserID == "" || claims.ExpiresAt == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		c.Set("userID", claims.UserID)
		c.Set(UserContextKey, models.NewUserContext(claims.UserID))
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if token := c.Query("token"); token != "" {
			return token, nil
		}
		return "", errors.New("Authorization header is required")
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", errors.New("Invalid token")
	}
	return strings.TrimPrefix(authHeader, "Bearer "), nil
}

// UserFromContext returns the user set by AuthMiddleware
func UserFromContext(c *gin.Context) (models.UserContext, bool) {
	v, ok := c.Get(UserContextKey)
	if !ok {
		return models.UserContext{}, false
	}
	user, ok := v.(models.UserContext)
	if !ok || user.IsZero() {
		return models.UserContext{}, false
	}
	return user, true
}

// GenerateToken generates a new JWT token and returns it with its expiry
func GenerateToken(user *models.User, cfg *config.Config) (string, time.Time, error) {
	if user == nil || user.ID == "" {
		return "", time.Time{}, errors.New("user ID is required")
	}
	if cfg == nil {
		return "", time.Time{}, errors.New("config is required")
	}
	if cfg.JWT.Secret == "" {
		return "", time.Time{}, errors.New("JWT secret is required")
	}

	now := time.Now()
	expiresAt := now.Add(cfg.JWT.TokenExpiry)
	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(cfg.JWT.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate token: %w", err)
	}

	return tokenString, expiresAt, nil
}
