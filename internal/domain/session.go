package domain

import (
	"time"

	"gorm.io/datatypes"
)

// PortalSession Model, the server-side replacement of the browser's local storage
type PortalSession struct {
	ID           string         `gorm:"primaryKey;size:36"` // Session uuid
	UserID       int            `gorm:"index"`              // Backend user id
	AccessToken  []byte         `gorm:"not null"`           // Sealed backend access token
	RefreshToken []byte         `gorm:"not null"`           // Sealed backend refresh token
	UserData     datatypes.JSON // Last known profile (user_data)
	DeviceToken  string         `gorm:"size:255"` // Registered push token, if any
	CreatedAt    time.Time      // Creation time
	UpdatedAt    time.Time      // Last update time
	ExpiresAt    time.Time      `gorm:"index"` // Expiry time
}

// Submission Model, a local journal of wizard and bonus submissions
type Submission struct {
	ID        uint   `gorm:"primaryKey" json:"id"`                   // Primary key
	SessionID string `gorm:"index;size:36" json:"-"`                 // Portal session
	UserID    int    `gorm:"index" json:"user_id"`                   // Backend user id
	Kind      string `gorm:"size:16" json:"kind"`                    // deposit, withdrawal, bonus
	Reference string `gorm:"size:64" json:"reference,omitempty"`     // Backend reference, when known
	Amount    string `gorm:"size:32" json:"amount"`                  // Submitted amount
	Outcome   string `gorm:"size:32" json:"outcome"`                 // link, ussd, plain, awaiting, finalized, cancelled, error
	CreatedAt int64  `gorm:"autoCreateTime:milli" json:"created_at"` // Timestamp of creation in milliseconds
}
