package domain

import "time"

// CurrencyXOF is the only currency platforms accept for a bet account
const CurrencyXOF = "XOF"

// UserAppId is a user's account identifier on a betting platform
type UserAppId struct {
	ID        int       `json:"id"`          // Record identifier
	UserAppID string    `json:"user_app_id"` // Account identifier on the platform
	App       string    `json:"app"`         // Platform identifier
	AppName   string    `json:"app_name"`    // Platform display name
	CreatedAt time.Time `json:"created_at"`  // Creation time
}

// BetAccount is the remote account record returned by a bet-ID search
type BetAccount struct {
	UserID     int64  `json:"UserId"`     // Remote user id
	Name       string `json:"Name"`       // Account holder display name
	CurrencyID string `json:"CurrencyId"` // Account currency code
}

// UserPhone is a phone number bound to a network
type UserPhone struct {
	ID        int       `json:"id"`         // Record identifier
	Phone     string    `json:"phone"`      // Phone number
	Network   int       `json:"network"`    // Network identifier
	CreatedAt time.Time `json:"created_at"` // Creation time
}

// FindBetID returns the bet-ID record with the given id from a list
func FindBetID(list []UserAppId, id int) (UserAppId, bool) {
	for _, b := range list {
		if b.ID == id {
			return b, true
		}
	}
	return UserAppId{}, false
}

// FindPhone returns the phone with the given id from a list
func FindPhone(list []UserPhone, id int) (UserPhone, bool) {
	for _, p := range list {
		if p.ID == id {
			return p, true
		}
	}
	return UserPhone{}, false
}
