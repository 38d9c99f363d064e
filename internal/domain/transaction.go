package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType distinguishes deposits from withdrawals
type TransactionType string

const (
	TypeDeposit    TransactionType = "deposit"
	TypeWithdrawal TransactionType = "withdrawal"
)

// ParseTransactionType validates a raw transaction type
func ParseTransactionType(s string) (TransactionType, bool) {
	switch TransactionType(s) {
	case TypeDeposit, TypeWithdrawal:
		return TransactionType(s), true
	}
	return "", false
}

// TransactionStatus is the backend status of a transaction
type TransactionStatus string

const (
	StatusPending     TransactionStatus = "pending"
	StatusAccept      TransactionStatus = "accept"
	StatusInitPayment TransactionStatus = "init_payment"
	StatusError       TransactionStatus = "error"
	StatusReject      TransactionStatus = "reject"
	StatusTimeout     TransactionStatus = "timeout"
)

// Transaction Model, owned by the backend
type Transaction struct {
	ID              int               `json:"id"`                         // Record identifier
	Reference       string            `json:"reference"`                  // Public reference
	TypeTrans       TransactionType   `json:"type_trans"`                 // deposit or withdrawal
	Amount          decimal.Decimal   `json:"amount"`                     // Amount in FCFA
	PhoneNumber     string            `json:"phone_number"`               // Paying or receiving phone
	App             string            `json:"app"`                        // Platform identifier
	UserAppID       string            `json:"user_app_id"`                // Bet-ID
	Network         int               `json:"network"`                    // Network identifier
	Status          TransactionStatus `json:"status"`                     // Backend status
	WithdriwalCode  string            `json:"withdriwal_code,omitempty"`  // Withdrawal code, withdrawals only
	TransactionLink string            `json:"transaction_link,omitempty"` // Provider payment link
	ErrorMessage    string            `json:"error_message,omitempty"`    // Backend error message
	CreatedAt       time.Time         `json:"created_at"`                 // Creation time
}

// Label returns the French label displayed for a status
func (s TransactionStatus) Label() string {
	switch s {
	case StatusPending, StatusInitPayment:
		return "En attente"
	case StatusAccept:
		return "Accepté"
	case StatusError:
		return "Erreur"
	case StatusReject:
		return "Rejeté"
	case StatusTimeout:
		return "Expiré"
	}
	return string(s)
}

// Page is the paginated envelope the backend uses for list endpoints
type Page[T any] struct {
	Count    int     `json:"count"`    // Total number of items
	Next     *string `json:"next"`     // Next page URL
	Previous *string `json:"previous"` // Previous page URL
	Results  []T     `json:"results"`  // Items of this page
}
