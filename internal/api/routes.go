package api

import (
	"github.com/gin-gonic/gin" // Gin web framework

	"mobcash_portal/internal/middleware" // Auth and session middlewares
)

// Routes registers the portal endpoints
func Routes(r gin.IRouter, d *Deps, secret string, loader middleware.SessionLoader) {
	// Auth routes
	auth := r.Group("/api/auth")
	auth.POST("/login", LoginHandler(d))                  // Login endpoint
	auth.POST("/register", RegisterHandler(d))            // Registration endpoint
	auth.POST("/otp", RequestOTPHandler(d))               // Forgotten password, step 1
	auth.POST("/reset-password", ResetPasswordHandler(d)) // Forgotten password, step 2

	// Everything else needs a live session
	priv := r.Group("/api")
	priv.Use(middleware.JWTAuthMiddleware(secret), middleware.ActiveUserMiddleware(loader))

	priv.POST("/auth/logout", LogoutHandler(d))         // Logout endpoint
	priv.GET("/me", MeHandler(d))                       // Profile endpoint
	priv.PATCH("/me", EditProfileHandler(d))            // Profile edit endpoint
	priv.POST("/me/password", ChangePasswordHandler(d)) // Password change endpoint
	priv.POST("/me/devices", RegisterDeviceHandler(d))  // Push token endpoint

	priv.GET("/phones", ListPhonesHandler(d))         // List phones
	priv.POST("/phones", CreatePhoneHandler(d))       // Add phone
	priv.PATCH("/phones/:id", UpdatePhoneHandler(d))  // Edit phone
	priv.DELETE("/phones/:id", DeletePhoneHandler(d)) // Delete phone

	priv.GET("/bet-ids", ListBetIDsHandler(d))              // List bet-IDs
	priv.DELETE("/bet-ids/:id", DeleteBetIDHandler(d))      // Delete bet-ID
	priv.POST("/bet-ids/search", SearchBetIDHandler(d))     // Look an account up
	priv.GET("/bet-ids/pending", CurrentBetIDHandler(d))    // Pending candidate
	priv.POST("/bet-ids/confirm", ConfirmBetIDHandler(d))   // Save the candidate
	priv.DELETE("/bet-ids/pending", AbandonBetIDHandler(d)) // Drop the candidate

	// Wizard routes, :kind is deposit or withdrawal
	wz := priv.Group("/wizard/:kind")
	wz.POST("", StartWizardHandler(d))        // Start a fresh wizard
	wz.GET("", GetWizardHandler(d))           // Current wizard
	wz.PUT("/select/:step", SelectHandler(d)) // Platform, bet-id, network, phone
	wz.PUT("/amount", AmountHandler(d))       // Amount and withdrawal code
	wz.POST("/next", NextHandler(d))          // Next step or review
	wz.POST("/previous", PreviousHandler(d))  // Previous step
	wz.POST("/confirm", ConfirmHandler(d))    // Submit
	wz.POST("/finalize", FinalizeHandler(d))  // Accept the summary
	wz.POST("/cancel", CancelHandler(d))      // Reject the summary

	priv.POST("/bonus", BonusHandler(d)) // Bonus deposit

	priv.GET("/transactions", TransactionsHandler(d))   // Transaction history
	priv.GET("/bonuses", BonusesHandler(d))             // Bonus history
	priv.GET("/coupons", CouponsHandler(d))             // Coupons
	priv.GET("/notifications", NotificationsHandler(d)) // Notifications
	priv.GET("/ads", AdsHandler(d))                     // Announcements
	priv.GET("/settings", SettingsHandler(d))           // Application settings
	priv.GET("/platforms", PlatformsHandler(d))         // Betting platforms
	priv.GET("/networks", NetworksHandler(d))           // Mobile-money networks
	priv.GET("/submissions", SubmissionsHandler(d))     // Local submission journal
}
