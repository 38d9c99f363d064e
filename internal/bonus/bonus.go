// Package bonus is the single-dialog deposit funded by the referral bonus balance.
package bonus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"mobcash_portal/internal/backend"
	"mobcash_portal/internal/domain"
	"mobcash_portal/internal/wizard"
)

// Kind is the event and guard kind of bonus deposits
const Kind = "bonus"

var (
	ErrDisabled   = errors.New("bonus: referral bonus is disabled")
	ErrIncomplete = errors.New("bonus: platform and bet-ID are required")
)

// Backend creates bonus-funded deposits
type Backend interface {
	CreateBonusDeposit(ctx context.Context, access string, r backend.BonusRequest) (*domain.Transaction, error)
}

// Request is what the bonus dialog collects
type Request struct {
	Platform *domain.Platform
	BetID    *domain.UserAppId
	Amount   decimal.Decimal
}

// Floor is the effective minimum: the largest of the platform minimum deposit,
// the minimum bonus withdrawal and the user's available bonus
func Floor(p domain.Platform, s domain.Setting, u domain.User) decimal.Decimal {
	return decimal.Max(p.MinimunDeposit, s.RewardMiniWithdrawal, u.BonusAvailable)
}

// Validate checks the amount against Floor and the platform maximum deposit, both inclusive
func Validate(p domain.Platform, s domain.Setting, u domain.User, amount decimal.Decimal) error {
	return wizard.ValidateAmount(amount, Floor(p, s, u), p.MaxDeposit)
}

// Service submits bonus deposits
type Service struct {
	backend   Backend
	guard     wizard.Guard
	observers []wizard.Observer
}

func NewService(b Backend, g wizard.Guard, observers ...wizard.Observer) *Service {
	return &Service{backend: b, guard: g, observers: observers}
}

// Submit validates and sends the bonus deposit. There is no USSD branch:
// the result is either the payment link or a plain success.
func (s *Service) Submit(ctx context.Context, a wizard.Actor, req Request, st *domain.Setting, u *domain.User) (wizard.Resolution, error) {
	if st == nil || !st.ReferralBonus {
		return wizard.Resolution{}, ErrDisabled
	}
	if req.Platform == nil || req.BetID == nil {
		return wizard.Resolution{}, ErrIncomplete
	}
	if req.BetID.App != req.Platform.ID {
		return wizard.Resolution{}, fmt.Errorf("%w: bet-ID does not belong to %s", wizard.ErrInvalidSelection, req.Platform.ID)
	}
	var user domain.User
	if u != nil {
		user = *u
	}
	if err := Validate(*req.Platform, *st, user, req.Amount); err != nil {
		return wizard.Resolution{}, err
	}

	release, err := s.guard.Acquire(ctx, wizard.GuardKey(a.SessionID, Kind))
	if err != nil {
		return wizard.Resolution{}, err
	}
	defer release()

	tx, err := s.backend.CreateBonusDeposit(ctx, a.Access, backend.BonusRequest{
		App:       req.Platform.ID,
		Amount:    req.Amount,
		UserAppID: req.BetID.UserAppID,
	})
	if err != nil {
		if !errors.Is(err, backend.ErrUnauthorized) {
			s.emit(ctx, a, req.Amount, wizard.OutcomeError, "")
		}
		return wizard.Resolution{}, &wizard.SubmitError{Message: "Erreur lors de la création du dépôt bonus", Err: err}
	}

	res := wizard.Resolution{Kind: wizard.ResolvedPlain, Redirect: wizard.DashboardPath, Message: "Dépôt bonus initié avec succès!"}
	if tx != nil {
		res.Reference = tx.Reference
		if tx.TransactionLink != "" {
			res.Kind = wizard.ResolvedLink
			res.Link = tx.TransactionLink
		}
	}
	s.emit(ctx, a, req.Amount, string(res.Kind), res.Reference)
	return res, nil
}

func (s *Service) emit(ctx context.Context, a wizard.Actor, amount decimal.Decimal, outcome, ref string) {
	ev := wizard.Event{
		SessionID: a.SessionID,
		UserID:    a.UserID,
		Kind:      Kind,
		Outcome:   outcome,
		Reference: ref,
		Amount:    amount,
		At:        time.Now(),
	}
	for _, o := range s.observers {
		o.Observe(ctx, ev)
	}
}
