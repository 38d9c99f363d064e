package wizard

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrAmountInvalid matches every *AmountError
var ErrAmountInvalid = errors.New("wizard: invalid amount")

// AmountReason tells why an amount was rejected
type AmountReason string

const (
	ReasonNoPlatform  AmountReason = "no_platform"
	ReasonNotPositive AmountReason = "not_positive"
	ReasonBelowMin    AmountReason = "below_min"
	ReasonAboveMax    AmountReason = "above_max"
)

// AmountError is a local validation failure; it blocks the step without a network call
type AmountError struct {
	Reason AmountReason
	Limit  decimal.Decimal
}

func (e *AmountError) Error() string {
	switch e.Reason {
	case ReasonNoPlatform:
		return "Plateforme non sélectionnée"
	case ReasonNotPositive:
		return "Le montant doit être supérieur à 0"
	case ReasonBelowMin:
		return "Le montant minimum est de " + e.Limit.String() + " FCFA"
	case ReasonAboveMax:
		return "Le montant maximum est de " + e.Limit.String() + " FCFA"
	}
	return "Montant invalide"
}

func (e *AmountError) Is(target error) bool { return target == ErrAmountInvalid }

// CodeError rejects a withdrawal code that is too short
type CodeError struct{}

func (e *CodeError) Error() string {
	return "Le code de retrait doit contenir au moins 4 caractères"
}

// ValidateAmount checks amount > 0 and lo <= amount <= hi, both bounds inclusive
func ValidateAmount(amount, lo, hi decimal.Decimal) error {
	if !amount.IsPositive() {
		return &AmountError{Reason: ReasonNotPositive}
	}
	if amount.LessThan(lo) {
		return &AmountError{Reason: ReasonBelowMin, Limit: lo}
	}
	if amount.GreaterThan(hi) {
		return &AmountError{Reason: ReasonAboveMax, Limit: hi}
	}
	return nil
}
