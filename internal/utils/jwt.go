package utils

import (
	"time" // Time for token expiration

	"github.com/golang-jwt/jwt/v5" // JWT library
)

// JWT Claims
type Claims struct {
	SessionID            string `json:"sid"`     // Portal session id
	UserID               int    `json:"user_id"` // Backend user id
	jwt.RegisteredClaims        // Standard JWT claims
}

// GenerateJWT creates a portal token bound to a session
func GenerateJWT(sessionID string, userID int, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	// Set token claims
	claims := Claims{
		SessionID: sessionID, // Session the token unlocks
		UserID:    userID,    // Backend user id
		// Standard claims
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,                        // Token id is the session id
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)), // Token expires with the session
			IssuedAt:  jwt.NewNumericDate(now),          // Issued at current time
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims) // Create token with claims
	return token.SignedString([]byte(secret))                  // Sign the token with the secret
}

// ParseJWT parses and validates a JWT token string
func ParseJWT(tokenStr, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		return []byte(secret), nil // Return the secret key for validation
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})) // Only accept HS256
	// Check for parsing errors
	if err != nil {
		return nil, err // Return error if parsing fails
	}
	// Validate token and extract claims
	if claims, ok := token.Claims.(*Claims); ok && token.Valid && claims.SessionID != "" {
		return claims, nil // Return claims if valid
	}
	// Return error if token is invalid
	return nil, jwt.ErrTokenInvalidClaims
}
