package wizard

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"mobcash_portal/internal/domain"
)

// DialDelay is how long the front end shows the USSD code before opening the dialer
const DialDelay = 500 * time.Millisecond

var ussdFeeRate = decimal.NewFromFloat(0.01)

// USSDCode builds the Orange Money merchant payment string #144#8*{merchant}*{amount}#
func USSDCode(merchantPhone string, amount decimal.Decimal) string {
	return "#144#8*" + merchantPhone + "*" + amount.String() + "#"
}

// DialURI returns the tel: deep link that dials code
func DialURI(code string) string {
	return "tel:" + strings.ReplaceAll(code, "#", "%23")
}

// NetAmount returns the dialed amount: the gross amount, or gross minus ceil(1%) when deduct is set
func NetAmount(amount decimal.Decimal, deduct bool) decimal.Decimal {
	if !deduct {
		return amount
	}
	fee := amount.Mul(ussdFeeRate).Ceil()
	return amount.Sub(fee)
}

// feeDeduction resolves the fee question: the backend setting wins over the portal flag
func feeDeduction(s *domain.Setting, fallback bool) bool {
	if s != nil && s.USSDFeeDeduction != nil {
		return *s.USSDFeeDeduction
	}
	return fallback
}

// resolve picks the payment action after a successful submission:
// a transaction link first, then the Orange USSD code for connect-mode deposits, then plain success.
func resolve(kind domain.TransactionType, tx *domain.Transaction, sel Selection, s *domain.Setting, deduct bool) Resolution {
	res := Resolution{Redirect: DashboardPath, Message: successMessage(kind)}
	if tx != nil {
		res.Reference = tx.Reference
		if tx.TransactionLink != "" {
			res.Kind = ResolvedLink
			res.Link = tx.TransactionLink
			return res
		}
	}
	if kind == domain.TypeDeposit && sel.Network != nil && sel.Network.IsOrangeConnect() && s != nil {
		if merchant := s.MerchantPhone(sel.Network.CountryCode); merchant != "" {
			code := USSDCode(merchant, NetAmount(sel.Amount, feeDeduction(s, deduct)))
			res.Kind = ResolvedUSSD
			res.USSDCode = code
			res.DialURI = DialURI(code)
			res.DialAfter = DialDelay.Milliseconds()
			return res
		}
	}
	res.Kind = ResolvedPlain
	return res
}

func successMessage(kind domain.TransactionType) string {
	if kind == domain.TypeWithdrawal {
		return "Retrait initié avec succès!"
	}
	return "Dépôt initié avec succès!"
}
