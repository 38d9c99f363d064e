package api

import (
	"errors"   // Error matching
	"net/http" // HTTP status codes
	"regexp"   // Regular expressions
	"strings"  // String manipulation
	"time"     // Timestamps

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library

	"mobcash_portal/internal/backend"    // MobCash client
	"mobcash_portal/internal/domain"     // Domain models
	"mobcash_portal/internal/middleware" // Session context
	"mobcash_portal/internal/session"    // Portal sessions
)

// Request struct for login
type LoginRequest struct {
	EmailOrPhone   string `json:"email_or_phone" binding:"required"` // Email or phone must be provided
	Password       string `json:"password" binding:"required"`       // Password must be provided
	DeviceToken    string `json:"device_token"`                      // Optional push token
	DevicePlatform string `json:"device_platform"`                   // web, android, ios
}

// Response struct for authentication
type AuthResponse struct {
	Token     string      `json:"token"`      // Portal JWT
	ExpiresAt time.Time   `json:"expires_at"` // Session expiry
	User      domain.User `json:"user"`       // Profile
}

// Request struct for registration
type RegisterRequest struct {
	FirstName    string `json:"first_name" binding:"required"`  // First name
	LastName     string `json:"last_name" binding:"required"`   // Last name
	Email        string `json:"email" binding:"required"`       // Email
	Phone        string `json:"phone" binding:"required"`       // Phone
	Password     string `json:"password" binding:"required"`    // Password
	RePassword   string `json:"re_password" binding:"required"` // Confirmation
	ReferralCode string `json:"referral_code"`                  // Optional referrer code
}

// Request struct for password reset
type ResetRequest struct {
	OTP             string `json:"otp" binding:"required"`                  // 4 digit code
	NewPassword     string `json:"new_password" binding:"required"`         // New password
	ConfirmPassword string `json:"confirm_new_password" binding:"required"` // Confirmation
}

// Request struct for password change
type ChangePasswordRequest struct {
	OldPassword     string `json:"old_password" binding:"required"`         // Current password
	NewPassword     string `json:"new_password" binding:"required"`         // New password
	ConfirmPassword string `json:"confirm_new_password" binding:"required"` // Confirmation
}

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`) // Loose email shape
	otpPattern   = regexp.MustCompile(`^[0-9]{4}$`)                  // Exactly 4 digits
)

// isValidPassword checks the minimum password length
func isValidPassword(password string) bool {
	return len([]rune(password)) >= 6 // At least 6 characters
}

// isValidName checks the minimum name length
func isValidName(name string) bool {
	return len([]rune(strings.TrimSpace(name))) >= 2 // At least 2 characters
}

// isValidPhone checks the minimum phone length
func isValidPhone(phone string) bool {
	return len(strings.TrimSpace(phone)) >= 8 // At least 8 characters
}

// validateProfile returns the first profile field error, or ""
func validateProfile(first, last, email, phone string) string {
	switch {
	case !isValidName(first):
		return "Le prénom doit contenir au moins 2 caractères"
	case !isValidName(last):
		return "Le nom doit contenir au moins 2 caractères"
	case !emailPattern.MatchString(email):
		return "Email invalide"
	case !isValidPhone(phone):
		return "Numéro de téléphone invalide"
	}
	return ""
}

// validateNewPassword returns the password pair error, or ""
func validateNewPassword(password, confirm string) string {
	if !isValidPassword(password) {
		return "Le mot de passe doit contenir au moins 6 caractères"
	}
	if password != confirm {
		return "Les mots de passe ne correspondent pas"
	}
	return ""
}

// LoginHandler authenticates against the backend and returns a portal token
func LoginHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email ou téléphone requis"})
			return
		}
		// Validate password length
		if !isValidPassword(req.Password) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Le mot de passe doit contenir au moins 6 caractères"})
			return
		}
		s, token, err := d.Sessions.Login(c.Request.Context(), strings.TrimSpace(req.EmailOrPhone), req.Password)
		switch {
		case errors.Is(err, session.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Identifiants invalides"})
			return
		case errors.Is(err, session.ErrBlocked):
			c.JSON(http.StatusForbidden, gin.H{"error": "Compte bloqué"})
			return
		case err != nil:
			writeError(c, err)
			return
		}
		// Register the push token if the client sent one; failure does not fail the login
		if req.DeviceToken != "" {
			platform := req.DevicePlatform
			if platform == "" {
				platform = "web"
			}
			if err := d.Sessions.RegisterDevice(c.Request.Context(), s, req.DeviceToken, platform); err != nil {
				logrus.WithFields(logrus.Fields{"session": s.ID, "error": err}).Warn("device registration failed")
			}
		}
		// Return the token in the response
		c.JSON(http.StatusOK, AuthResponse{Token: token, ExpiresAt: s.ExpiresAt, User: s.User})
	}
}

// RegisterHandler validates the signup form and forwards it to the backend
func RegisterHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Requête invalide"})
			return
		}
		// Validate profile fields
		if msg := validateProfile(req.FirstName, req.LastName, req.Email, req.Phone); msg != "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": msg})
			return
		}
		// Validate password and confirmation
		if msg := validateNewPassword(req.Password, req.RePassword); msg != "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": msg})
			return
		}
		err := d.Backend.Register(c.Request.Context(), backend.Registration{
			FirstName:  strings.TrimSpace(req.FirstName),
			LastName:   strings.TrimSpace(req.LastName),
			Email:      strings.TrimSpace(req.Email),
			Phone:      strings.TrimSpace(req.Phone),
			Password:   req.Password,
			RePassword: req.RePassword,
			Referrer:   strings.TrimSpace(req.ReferralCode),
		})
		if err != nil {
			writeError(c, err)
			return
		}
		// Return success response
		c.JSON(http.StatusCreated, gin.H{"message": "Compte créé avec succès! Veuillez vous connecter."})
	}
}

// RequestOTPHandler is step one of the forgotten password flow
func RequestOTPHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Email string `json:"email" binding:"required"` // Account email
		}
		if err := c.ShouldBindJSON(&req); err != nil || !emailPattern.MatchString(req.Email) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email invalide"})
			return
		}
		if err := d.Backend.RequestOTP(c.Request.Context(), strings.TrimSpace(req.Email)); err != nil {
			logrus.WithError(err).Warn("otp request failed")
			c.JSON(http.StatusBadGateway, gin.H{"error": "Erreur lors de l'envoi du code OTP"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Code OTP envoyé à votre email!"})
	}
}

// ResetPasswordHandler completes the forgotten password flow with the OTP and the new password
func ResetPasswordHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ResetRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Requête invalide"})
			return
		}
		// The code is exactly 4 digits
		if !otpPattern.MatchString(req.OTP) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Le code OTP doit contenir 4 chiffres"})
			return
		}
		if msg := validateNewPassword(req.NewPassword, req.ConfirmPassword); msg != "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": msg})
			return
		}
		if err := d.Backend.ResetPassword(c.Request.Context(), req.OTP, req.NewPassword, req.ConfirmPassword); err != nil {
			var apiErr *backend.APIError
			if errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Code OTP invalide ou expiré"})
				return
			}
			logrus.WithError(err).Warn("password reset failed")
			c.JSON(http.StatusBadGateway, gin.H{"error": "Erreur lors de la réinitialisation du mot de passe"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Mot de passe réinitialisé avec succès!"})
	}
}

// LogoutHandler clears the session wholesale
func LogoutHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := middleware.CurrentSession(c) // Session loaded by the middleware
		if err := d.Sessions.Logout(c.Request.Context(), s); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Déconnexion réussie"})
	}
}

// MeHandler returns the cached profile, reloaded from the backend on refresh
func MeHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := middleware.CurrentSession(c) // Session loaded by the middleware
		user := s.User
		if wantsRefresh(c) {
			fresh, err := d.Sessions.RefreshUser(c.Request.Context(), s)
			if err != nil {
				writeError(c, err)
				return
			}
			user = *fresh
		}
		c.JSON(http.StatusOK, gin.H{"user": user, "initials": user.Initials()})
	}
}

// EditProfileHandler updates the profile and refreshes the cached copy
func EditProfileHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req backend.ProfileUpdate // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Requête invalide"})
			return
		}
		if msg := validateProfile(req.FirstName, req.LastName, req.Email, req.Phone); msg != "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": msg})
			return
		}
		err := call(c, d, func(access string) error {
			return d.Backend.EditProfile(c.Request.Context(), access, req)
		})
		if err != nil {
			writeError(c, err)
			return
		}
		s := middleware.CurrentSession(c)
		user, err := d.Sessions.RefreshUser(c.Request.Context(), s)
		if err != nil {
			// The edit went through; the cached copy will catch up on the next refresh
			logrus.WithFields(logrus.Fields{"session": s.ID, "error": err}).Warn("profile reload failed")
			c.JSON(http.StatusOK, gin.H{"message": "Profil mis à jour avec succès!"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Profil mis à jour avec succès!", "user": user})
	}
}

// ChangePasswordHandler changes the password of the logged in user
func ChangePasswordHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ChangePasswordRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Veuillez fournir votre ancien mot de passe pour le modifier"})
			return
		}
		if msg := validateNewPassword(req.NewPassword, req.ConfirmPassword); msg != "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": msg})
			return
		}
		err := call(c, d, func(access string) error {
			return d.Backend.ChangePassword(c.Request.Context(), access, req.OldPassword, req.NewPassword, req.ConfirmPassword)
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Mot de passe modifié avec succès!"})
	}
}

// RegisterDeviceHandler registers a push token for the session
func RegisterDeviceHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Token    string `json:"token" binding:"required"` // Push token
			Platform string `json:"platform"`                 // web, android, ios
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Jeton requis"})
			return
		}
		if req.Platform == "" {
			req.Platform = "web"
		}
		if err := d.Sessions.RegisterDevice(c.Request.Context(), middleware.CurrentSession(c), req.Token, req.Platform); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Notifications activées!"})
	}
}
