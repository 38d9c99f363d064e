package middleware

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"github.com/gin-gonic/gin" // Gin web framework

	"mobcash_portal/internal/utils" // JWT utility functions
)

// Context keys set by the middlewares
const (
	KeySessionID = "sessionID" // Portal session id from the token
	KeyUserID    = "userID"    // Backend user id from the token
	KeySession   = "session"   // Hydrated *session.Session
	KeyRequestID = "requestID" // Request correlation id
)

// JWTAuthMiddleware validates portal tokens and extracts the session id
func JWTAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization") // Get Authorization header
		// Check if the Authorization header is present and properly formatted
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			// If not, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}
		tokenStr := strings.TrimPrefix(authHeader, "Bearer ") // Extract the token string and parse it
		claims, err := utils.ParseJWT(tokenStr, secret)       // Parse the JWT token
		if err != nil {
			// If parsing fails, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		c.Set(KeySessionID, claims.SessionID) // Store session id in context
		c.Set(KeyUserID, claims.UserID)       // Store user id in context
		c.Next()                              // Proceed to the next handler
	}
}
