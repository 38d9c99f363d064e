package middleware

import (
	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/google/uuid"     // Request ids
	"github.com/sirupsen/logrus" // Logging library
)

// RequestIDHeader carries the correlation id in and out
const RequestIDHeader = "X-Request-ID"

// RequestID tags each request with a correlation id, reusing the caller's when valid
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader) // Take the upstream id if any
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString() // Otherwise mint one
		}
		c.Set(KeyRequestID, id)
		c.Header(RequestIDHeader, id)
		c.Next()
		if len(c.Errors) > 0 {
			logrus.WithFields(logrus.Fields{
				"request_id": id,
				"path":       c.FullPath(),
				"errors":     c.Errors.String(),
			}).Warn("request completed with errors")
		}
	}
}
