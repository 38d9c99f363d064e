package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// User is the authenticated customer profile
type User struct {
	ID             int             `json:"id"`              // User identifier
	FirstName      string          `json:"first_name"`      // First name
	LastName       string          `json:"last_name"`       // Last name
	Email          string          `json:"email"`           // Email
	Phone          string          `json:"phone"`           // Phone
	Username       string          `json:"username"`        // Username
	BonusAvailable decimal.Decimal `json:"bonus_available"` // Referral bonus balance
	ReferralCode   string          `json:"referral_code"`   // Own referral code
	ReferrerCode   string          `json:"referrer_code"`   // Code of the referrer
	IsActive       bool            `json:"is_active"`       // Account active
	IsBlock        bool            `json:"is_block"`        // Account blocked
	DateJoined     *time.Time      `json:"date_joined"`     // Registration time
}

// Initials returns the upper-cased initials shown in the dashboard header
func (u User) Initials() string {
	var out []rune
	for _, s := range []string{u.FirstName, u.LastName} {
		for _, r := range s {
			out = append(out, r)
			break
		}
	}
	return strings.ToUpper(string(out))
}

// Setting is the application-wide configuration published by the backend
type Setting struct {
	OrangeMarchandPhone   string          `json:"orange_marchand_phone"`        // Default Orange merchant phone
	BFOrangeMarchandPhone string          `json:"bf_orange_marchand_phone"`     // Burkina Faso Orange merchant phone
	RewardMiniWithdrawal  decimal.Decimal `json:"reward_mini_withdrawal"`       // Minimum bonus withdrawal
	ReferralBonus         bool            `json:"referral_bonus"`               // Bonus program enabled
	USSDFeeDeduction      *bool           `json:"ussd_fee_deduction,omitempty"` // Net the 1% fee from dialed amounts
}

// MerchantPhone returns the Orange merchant phone for the network's country
func (s Setting) MerchantPhone(countryCode string) string {
	if strings.EqualFold(countryCode, "BF") {
		return s.BFOrangeMarchandPhone
	}
	return s.OrangeMarchandPhone
}

// Bonus is a referral bonus entry
type Bonus struct {
	ID        int             `json:"id"`           // Record identifier
	Amount    decimal.Decimal `json:"amount"`       // Bonus amount
	Reason    string          `json:"reason_bonus"` // Reason
	CreatedAt time.Time       `json:"created_at"`   // Creation time
}

// Coupon is a betting coupon published to users
type Coupon struct {
	ID        int       `json:"id"`         // Record identifier
	Code      string    `json:"code"`       // Coupon code
	BetApp    string    `json:"bet_app"`    // Platform name
	CreatedAt time.Time `json:"created_at"` // Creation time
}

// Notification is a message the backend addressed to the user
type Notification struct {
	ID        int       `json:"id"`         // Record identifier
	Title     string    `json:"title"`      // Headline
	Content   string    `json:"content"`    // Message body
	IsRead    bool      `json:"is_read"`    // Already seen
	CreatedAt time.Time `json:"created_at"` // Creation time
}

// Ad is a dashboard announcement
type Ad struct {
	ID      int    `json:"id"`      // Record identifier
	Content string `json:"content"` // Announcement text
	Image   string `json:"image"`   // Banner URL
	Enable  bool   `json:"enable"`  // Whether it is shown
}
