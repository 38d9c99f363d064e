package domain

import "github.com/shopspring/decimal"

// Platform is a betting provider a user can deposit into or withdraw from
type Platform struct {
	ID             string          `json:"id"`              // Platform identifier
	Name           string          `json:"name"`            // Display name
	Image          string          `json:"image"`           // Logo URL
	Enable         bool            `json:"enable"`          // Whether the platform accepts transactions
	MinimunDeposit decimal.Decimal `json:"minimun_deposit"` // Minimum deposit
	MaxDeposit     decimal.Decimal `json:"max_deposit"`     // Maximum deposit
	MinimunWith    decimal.Decimal `json:"minimun_with"`    // Minimum withdrawal
	MaxWin         decimal.Decimal `json:"max_win"`         // Maximum withdrawal
}

// Bounds returns the inclusive amount bounds for the given transaction type
func (p Platform) Bounds(t TransactionType) (min, max decimal.Decimal) {
	if t == TypeWithdrawal {
		return p.MinimunWith, p.MaxWin
	}
	return p.MinimunDeposit, p.MaxDeposit
}

// FindPlatform returns the platform with the given id from a list
func FindPlatform(list []Platform, id string) (Platform, bool) {
	for _, p := range list {
		if p.ID == id {
			return p, true
		}
	}
	return Platform{}, false
}
