// Package wizard implements the multi-step deposit and withdrawal flow:
// a five step sequencer (platform, bet-ID, network, phone, amount) and the
// submission state machine that follows it.
package wizard

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"mobcash_portal/internal/domain"
)

// Step is a 1-based wizard step index
type Step int

const (
	StepPlatform Step = iota + 1
	StepBetID
	StepNetwork
	StepPhone
	StepAmount
)

// TotalSteps is the number of input steps of a deposit or withdrawal
const TotalSteps = int(StepAmount)

// AutoAdvanceDelay is how long the front end waits after a selection in steps 1-4 before moving on
const AutoAdvanceDelay = time.Second

// MinWithdrawalCodeLen is the minimum length of a platform withdrawal code
const MinWithdrawalCodeLen = 4

var (
	ErrStepIncomplete     = errors.New("wizard: current step is incomplete")
	ErrStepNotReached     = errors.New("wizard: step not reached yet")
	ErrInvalidSelection   = errors.New("wizard: invalid selection")
	ErrInvalidTransition  = errors.New("wizard: invalid state transition")
	ErrIncomplete         = errors.New("wizard: transaction data incomplete")
	ErrSubmissionInFlight = errors.New("wizard: submission already in flight")
)

var stepLabels = [...]string{"Plateforme", "ID de pari", "Réseau", "Téléphone", "Montant"}

// Label returns the French label of the step
func (s Step) Label() string {
	if s < StepPlatform || s > StepAmount {
		return ""
	}
	return stepLabels[s-1]
}

// Selection is the per-step input collected by the wizard
type Selection struct {
	Platform       *domain.Platform  `json:"platform,omitempty"`
	BetID          *domain.UserAppId `json:"bet_id,omitempty"`
	Network        *domain.Network   `json:"network,omitempty"`
	Phone          *domain.UserPhone `json:"phone,omitempty"`
	Amount         decimal.Decimal   `json:"amount"`
	WithdrawalCode string            `json:"withdrawal_code,omitempty"`
}

// Wizard is one deposit or withdrawal flow of a session
type Wizard struct {
	Kind      domain.TransactionType
	Step      Step
	Selection Selection
	Reviewing bool // confirmation requested after a valid last step
	state     State
}

// New returns a wizard at step 1 collecting input
func New(kind domain.TransactionType) *Wizard {
	return &Wizard{Kind: kind, Step: StepPlatform, state: CollectingInput{}}
}

// State returns the current flow state
func (w *Wizard) State() State {
	if w.state == nil {
		return CollectingInput{}
	}
	return w.state
}

func (w *Wizard) collecting() error {
	if _, ok := w.State().(CollectingInput); !ok {
		return fmt.Errorf("%w: %s does not accept input", ErrInvalidTransition, w.State().Phase())
	}
	return nil
}

func (w *Wizard) reachable(s Step) error {
	if err := w.collecting(); err != nil {
		return err
	}
	if s > w.Step {
		return fmt.Errorf("%w: %s", ErrStepNotReached, s.Label())
	}
	w.Reviewing = false
	return nil
}

// SelectPlatform sets step 1. Switching to another platform drops the bet-ID, which belongs to the old one.
func (w *Wizard) SelectPlatform(p domain.Platform) error {
	if err := w.reachable(StepPlatform); err != nil {
		return err
	}
	if !p.Enable {
		return fmt.Errorf("%w: platform %s is disabled", ErrInvalidSelection, p.ID)
	}
	if w.Selection.Platform != nil && w.Selection.Platform.ID != p.ID {
		w.Selection.BetID = nil
	}
	w.Selection.Platform = &p
	return nil
}

// SelectBetID sets step 2
func (w *Wizard) SelectBetID(b domain.UserAppId) error {
	if err := w.reachable(StepBetID); err != nil {
		return err
	}
	if w.Selection.Platform == nil || b.App != w.Selection.Platform.ID {
		return fmt.Errorf("%w: bet-ID %d does not belong to the selected platform", ErrInvalidSelection, b.ID)
	}
	w.Selection.BetID = &b
	return nil
}

// ClearBetID unsets step 2, used when the selected record is deleted
func (w *Wizard) ClearBetID(id int) {
	if w.Selection.BetID != nil && w.Selection.BetID.ID == id {
		w.Selection.BetID = nil
		w.Reviewing = false
	}
}

// SelectNetwork sets step 3. Switching to another network drops the phone, which is bound to the old one.
func (w *Wizard) SelectNetwork(n domain.Network) error {
	if err := w.reachable(StepNetwork); err != nil {
		return err
	}
	if !n.ActiveFor(w.Kind) {
		return fmt.Errorf("%w: network %d is not active for %s", ErrInvalidSelection, n.ID, w.Kind)
	}
	if w.Selection.Network != nil && w.Selection.Network.ID != n.ID {
		w.Selection.Phone = nil
	}
	w.Selection.Network = &n
	return nil
}

// SelectPhone sets step 4
func (w *Wizard) SelectPhone(p domain.UserPhone) error {
	if err := w.reachable(StepPhone); err != nil {
		return err
	}
	if w.Selection.Network == nil || p.Network != w.Selection.Network.ID {
		return fmt.Errorf("%w: phone %d is not bound to the selected network", ErrInvalidSelection, p.ID)
	}
	w.Selection.Phone = &p
	return nil
}

// SetAmount records the amount and reports whether it is within the platform bounds.
// The value is kept even when invalid so the form can show it with its error.
func (w *Wizard) SetAmount(a decimal.Decimal) error {
	if err := w.reachable(StepAmount); err != nil {
		return err
	}
	w.Selection.Amount = a
	return w.validateAmount()
}

// SetWithdrawalCode records the platform withdrawal code, withdrawals only
func (w *Wizard) SetWithdrawalCode(code string) error {
	if err := w.reachable(StepAmount); err != nil {
		return err
	}
	if w.Kind != domain.TypeWithdrawal {
		return fmt.Errorf("%w: withdrawal code on a %s", ErrInvalidSelection, w.Kind)
	}
	w.Selection.WithdrawalCode = code
	return validateWithdrawalCode(code)
}

func (w *Wizard) validateAmount() error {
	if w.Selection.Platform == nil {
		return &AmountError{Reason: ReasonNoPlatform}
	}
	lo, hi := w.Selection.Platform.Bounds(w.Kind)
	return ValidateAmount(w.Selection.Amount, lo, hi)
}

func validateWithdrawalCode(code string) error {
	if len([]rune(code)) < MinWithdrawalCodeLen {
		return &CodeError{}
	}
	return nil
}

// StepValid reports whether the given step's predicate holds
func (w *Wizard) StepValid(s Step) bool {
	sel := w.Selection
	switch s {
	case StepPlatform:
		return sel.Platform != nil
	case StepBetID:
		return sel.BetID != nil
	case StepNetwork:
		return sel.Network != nil
	case StepPhone:
		return sel.Phone != nil
	case StepAmount:
		if w.validateAmount() != nil {
			return false
		}
		return w.Kind != domain.TypeWithdrawal || validateWithdrawalCode(sel.WithdrawalCode) == nil
	}
	return false
}

// Next advances one step when the active step is valid; on the last step it opens the review.
func (w *Wizard) Next() error {
	if err := w.collecting(); err != nil {
		return err
	}
	if !w.StepValid(w.Step) {
		return fmt.Errorf("%w: %s", ErrStepIncomplete, w.Step.Label())
	}
	if int(w.Step) < TotalSteps {
		w.Step++
		return nil
	}
	w.Reviewing = true
	return nil
}

// Previous goes back one step, never below step 1, keeping every selection
func (w *Wizard) Previous() error {
	if err := w.collecting(); err != nil {
		return err
	}
	w.Reviewing = false
	if w.Step > StepPlatform {
		w.Step--
	}
	return nil
}

// Ready checks the full quintuple and the amount bounds before submission
func (w *Wizard) Ready() error {
	sel := w.Selection
	if sel.Platform == nil || sel.BetID == nil || sel.Network == nil || sel.Phone == nil {
		return ErrIncomplete
	}
	if err := w.validateAmount(); err != nil {
		return err
	}
	if w.Kind == domain.TypeWithdrawal {
		if err := validateWithdrawalCode(sel.WithdrawalCode); err != nil {
			return err
		}
	}
	return nil
}

// Message returns the network instructions shown on the amount step
func (w *Wizard) Message() string {
	if w.Selection.Network == nil {
		return ""
	}
	return w.Selection.Network.Message(w.Kind)
}
