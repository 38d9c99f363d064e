package middleware

import (
	"context"  // Context for session loading
	"errors"   // Error matching
	"net/http" // HTTP status codes

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library

	"mobcash_portal/internal/session" // Portal sessions
)

// SessionLoader hydrates a session by id
type SessionLoader interface {
	Load(ctx context.Context, id string) (*session.Session, error)
}

// ActiveUserMiddleware loads the session behind the token on each request and
// rejects users the backend flagged as blocked
func ActiveUserMiddleware(loader SessionLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetString(KeySessionID) // Get session id from context
		// Check if the session id exists in context
		if sessionID == "" {
			// If not, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		s, err := loader.Load(c.Request.Context(), sessionID) // Fetch session from store
		if err != nil {
			if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrExpired) {
				// Logged out or expired, the client must log in again
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session expired"})
				return
			}
			logrus.WithFields(logrus.Fields{"session": sessionID, "error": err}).Error("session load failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Session unavailable"})
			return
		}
		// Check the account flags cached at login or last profile refresh
		if s.User.IsBlock {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Compte bloqué"})
			return
		}
		c.Set(KeySession, s) // Store the hydrated session in context
		c.Next()             // Proceed to the next handler
	}
}

// CurrentSession returns the session set by ActiveUserMiddleware
func CurrentSession(c *gin.Context) *session.Session {
	s, _ := c.MustGet(KeySession).(*session.Session)
	return s
}
