package middleware

import (
	"errors"
	"net/http"
	"strings"

	"tasklist-backend/internal/models"
	"tasklist-backend/internal/repository"
	"tasklist-backend/internal/token"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const userContextKey = "currentUser"

// Failure messages are deliberately generic. Beyond distinguishing an
// expired session from everything else, a client learns nothing about why
// its token was rejected.
const (
	msgMissingCredentials = "not logged in or credentials invalid"
	msgSessionExpired     = "session expired, please log in again"
	msgSessionInvalid     = "invalid session, please log in again"
	msgInsufficientRole   = "insufficient privilege"
)

// RequireAuth creates a Gin middleware that authenticates the bearer token
// and resolves the full user record into the request context.
func RequireAuth(codec *token.Codec, users repository.UserRepository, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": msgMissingCredentials})
			c.Abort()
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": msgMissingCredentials})
			c.Abort()
			return
		}

		claims, err := codec.Verify(tokenString)
		if err != nil {
			if errors.Is(err, token.ErrTokenExpired) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": msgSessionExpired})
				c.Abort()
				return
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": msgSessionInvalid})
			c.Abort()
			return
		}

		user, err := users.GetByID(claims.UserID)
		if err != nil {
			logger.Error("Failed to resolve token user", zap.Int64("user_id", claims.UserID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			c.Abort()
			return
		}
		if user == nil {
			// Account vanished since the token was issued.
			c.JSON(http.StatusUnauthorized, gin.H{"error": msgSessionInvalid})
			c.Abort()
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

// RequireRole gates a route to a single role. It must run after RequireAuth.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": msgMissingCredentials})
			c.Abort()
			return
		}
		if user.Role != role {
			c.JSON(http.StatusForbidden, gin.H{"error": msgInsufficientRole})
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user attached by RequireAuth.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, exists := c.Get(userContextKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}
