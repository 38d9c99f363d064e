package domain

import "strings"

// API modes a network can be configured with on the backend
const (
	APIModeConnect = "connect" // Payment is triggered by the user from the handset
	APIModeManual  = "manual"  // Payment is handled by an operator
)

// Network is a mobile-money carrier
type Network struct {
	ID                int    `json:"id"`                 // Network identifier
	Name              string `json:"name"`               // Internal name (orange, moov, ...)
	PublicName        string `json:"public_name"`        // Display name
	Image             string `json:"image"`              // Logo URL
	CountryCode       string `json:"country_code"`       // ISO country code
	ActiveForDeposit  bool   `json:"active_for_deposit"` // Usable for deposits
	ActiveForWith     bool   `json:"active_for_with"`    // Usable for withdrawals
	DepositAPI        string `json:"deposit_api"`        // Deposit API mode
	WithdrawalAPI     string `json:"withdrawal_api"`     // Withdrawal API mode
	DepositMessage    string `json:"deposit_message"`    // Instructions shown on deposit
	WithdrawalMessage string `json:"withdrawal_message"` // Instructions shown on withdrawal
}

// ActiveFor reports whether the network accepts the given transaction type
func (n Network) ActiveFor(t TransactionType) bool {
	if t == TypeWithdrawal {
		return n.ActiveForWith
	}
	return n.ActiveForDeposit
}

// Message returns the free-text instructions for the given transaction type
func (n Network) Message(t TransactionType) string {
	if t == TypeWithdrawal {
		return strings.TrimSpace(n.WithdrawalMessage)
	}
	return strings.TrimSpace(n.DepositMessage)
}

// IsOrangeConnect reports whether deposits on this network are paid by dialing a USSD code
func (n Network) IsOrangeConnect() bool {
	return strings.EqualFold(n.Name, "orange") && n.DepositAPI == APIModeConnect
}

// FilterNetworks keeps the networks active for the given transaction type
func FilterNetworks(list []Network, t TransactionType) []Network {
	out := make([]Network, 0, len(list))
	for _, n := range list {
		if n.ActiveFor(t) {
			out = append(out, n)
		}
	}
	return out
}

// FindNetwork returns the network with the given id from a list
func FindNetwork(list []Network, id int) (Network, bool) {
	for _, n := range list {
		if n.ID == id {
			return n, true
		}
	}
	return Network{}, false
}
