package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"mobcash_portal/internal/backend"
	"mobcash_portal/internal/domain"
)

// ErrSubmissionFailed matches every *SubmitError
var ErrSubmissionFailed = errors.New("wizard: submission failed")

// SubmitError is a failed backend call during the flow; Message is the toast shown to the user
type SubmitError struct {
	Message string
	Err     error
}

func (e *SubmitError) Error() string { return e.Message + ": " + e.Err.Error() }
func (e *SubmitError) Unwrap() error { return e.Err }
func (e *SubmitError) Is(target error) bool {
	return target == ErrSubmissionFailed
}

// Backend is the part of the MobCash client the flow needs
type Backend interface {
	CreateDeposit(ctx context.Context, access string, r backend.TransactionRequest) (*domain.Transaction, error)
	CreateWithdrawal(ctx context.Context, access string, r backend.TransactionRequest) (*domain.Transaction, error)
	LastTransaction(ctx context.Context, access string, t domain.TransactionType) (*domain.Transaction, error)
	FinalizeTransaction(ctx context.Context, access, reference string) (*domain.Transaction, error)
	CancelTransaction(ctx context.Context, access, reference string) error
}

// Guard prevents a second submission for the same key while one is in flight
type Guard interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Actor identifies who drives the flow
type Actor struct {
	SessionID string
	UserID    int
	Access    string
}

// Event is emitted on every flow outcome
type Event struct {
	SessionID string          `json:"session_id"`
	UserID    int             `json:"user_id"`
	Kind      string          `json:"kind"`
	Outcome   string          `json:"outcome"`
	Reference string          `json:"reference,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	At        time.Time       `json:"at"`
}

// Outcomes that are not a ResolutionKind
const (
	OutcomeAwaiting  = "awaiting"
	OutcomeCancelled = "cancelled"
	OutcomeError     = "error"
)

// Observer receives flow events; implementations must not block for long
type Observer interface {
	Observe(ctx context.Context, e Event)
}

// Options tune the flow
type Options struct {
	ConfirmSummary   bool   // go through AwaitingConfirmation before resolving
	USSDFeeDeduction bool   // portal default for netting the USSD fee
	SourceTag        string // source sent on creation
}

// Engine runs the submission state machine of a wizard
type Engine struct {
	backend   Backend
	guard     Guard
	store     Store
	opts      Options
	observers []Observer
}

func NewEngine(b Backend, g Guard, s Store, opts Options, observers ...Observer) *Engine {
	if opts.SourceTag == "" {
		opts.SourceTag = "web"
	}
	return &Engine{backend: b, guard: g, store: s, opts: opts, observers: observers}
}

// Exclusive loads the session's flow, runs op on it and saves the result, all while holding the flow's guard.
// A missing flow starts fresh. While another holder runs, it returns ErrSubmissionInFlight without loading.
func (e *Engine) Exclusive(ctx context.Context, sessionID string, kind domain.TransactionType, op func(w *Wizard) error) (*Wizard, error) {
	release, err := e.guard.Acquire(ctx, GuardKey(sessionID, string(kind)))
	if err != nil {
		return nil, err
	}
	defer release()

	w, err := e.store.Load(ctx, sessionID, kind)
	if errors.Is(err, ErrNoWizard) {
		w, err = New(kind), nil
	}
	if err != nil {
		return nil, err
	}
	opErr := op(w)
	if errors.Is(opErr, ErrSubmissionInFlight) {
		return w, opErr
	}
	if err := e.store.Save(ctx, sessionID, w); err != nil {
		return w, err
	}
	return w, opErr
}

// GuardKey is the in-flight lock key of a session's flow
func GuardKey(sessionID string, kind string) string {
	return "submit:" + sessionID + ":" + kind
}

// Confirm submits the wizard. The caller holds the flow's guard, see Exclusive.
// Submitted is saved before the backend call so a copy loaded elsewhere refuses a second submission.
// A failed submission returns the wizard to CollectingInput.
func (e *Engine) Confirm(ctx context.Context, a Actor, w *Wizard, s *domain.Setting) (State, error) {
	if _, ok := w.State().(Submitted); ok {
		return w.State(), ErrSubmissionInFlight
	}
	if err := w.collecting(); err != nil {
		return w.State(), err
	}
	if err := w.Ready(); err != nil {
		return w.State(), err
	}

	if err := w.transition(Submitted{}); err != nil {
		return w.State(), err
	}
	if err := e.store.Save(ctx, a.SessionID, w); err != nil {
		_ = w.transition(CollectingInput{})
		return w.State(), err
	}

	tx, err := e.submit(ctx, a.Access, w)
	if err != nil {
		_ = w.transition(CollectingInput{})
		// an expired token is retried by the caller after a refresh
		if !errors.Is(err, backend.ErrUnauthorized) {
			e.emit(ctx, a, w, OutcomeError, "")
		}
		return w.State(), &SubmitError{Message: creationFailure(w.Kind), Err: err}
	}

	if e.opts.ConfirmSummary {
		summary, serr := e.backend.LastTransaction(ctx, a.Access, w.Kind)
		if serr != nil || summary == nil {
			summary = tx
		}
		if summary != nil && summary.Reference != "" {
			if summary.TransactionLink == "" && tx != nil {
				summary.TransactionLink = tx.TransactionLink
			}
			if err := w.transition(AwaitingConfirmation{Transaction: *summary}); err != nil {
				return w.State(), err
			}
			e.emit(ctx, a, w, OutcomeAwaiting, summary.Reference)
			return w.State(), nil
		}
	}

	return e.finish(ctx, a, w, tx, s)
}

// Finalize accepts the summary shown in AwaitingConfirmation and resolves the payment action.
// The caller holds the flow's guard.
func (e *Engine) Finalize(ctx context.Context, a Actor, w *Wizard, s *domain.Setting) (State, error) {
	aw, ok := w.State().(AwaitingConfirmation)
	if !ok {
		return w.State(), fmt.Errorf("%w: finalize from %s", ErrInvalidTransition, w.State().Phase())
	}

	tx, err := e.backend.FinalizeTransaction(ctx, a.Access, aw.Transaction.Reference)
	if err != nil {
		return w.State(), &SubmitError{Message: "Erreur lors de la finalisation de la transaction", Err: err}
	}
	final := aw.Transaction
	if tx != nil && tx.Reference != "" {
		link := final.TransactionLink
		final = *tx
		if final.TransactionLink == "" {
			final.TransactionLink = link
		}
	}
	if err := w.transition(Finalized{Transaction: final}); err != nil {
		return w.State(), err
	}
	return e.finish(ctx, a, w, &final, s)
}

// Cancel rejects the summary shown in AwaitingConfirmation; Cancelled is terminal
func (e *Engine) Cancel(ctx context.Context, a Actor, w *Wizard) (State, error) {
	aw, ok := w.State().(AwaitingConfirmation)
	if !ok {
		return w.State(), fmt.Errorf("%w: cancel from %s", ErrInvalidTransition, w.State().Phase())
	}

	ref := aw.Transaction.Reference
	if err := e.backend.CancelTransaction(ctx, a.Access, ref); err != nil {
		return w.State(), &SubmitError{Message: "Erreur lors de l'annulation de la transaction", Err: err}
	}
	if err := w.transition(Cancelled{Reference: ref}); err != nil {
		return w.State(), err
	}
	e.emit(ctx, a, w, OutcomeCancelled, ref)
	return w.State(), nil
}

func (e *Engine) finish(ctx context.Context, a Actor, w *Wizard, tx *domain.Transaction, s *domain.Setting) (State, error) {
	res := resolve(w.Kind, tx, w.Selection, s, e.opts.USSDFeeDeduction)
	if err := w.transition(Resolved{Resolution: res}); err != nil {
		return w.State(), err
	}
	e.emit(ctx, a, w, string(res.Kind), res.Reference)
	return w.State(), nil
}

func (e *Engine) submit(ctx context.Context, access string, w *Wizard) (*domain.Transaction, error) {
	sel := w.Selection
	req := backend.TransactionRequest{
		Amount:      sel.Amount,
		PhoneNumber: sel.Phone.Phone,
		App:         sel.Platform.ID,
		UserAppID:   sel.BetID.UserAppID,
		Network:     sel.Network.ID,
		Source:      e.opts.SourceTag,
	}
	if w.Kind == domain.TypeWithdrawal {
		req.WithdriwalCode = sel.WithdrawalCode
		return e.backend.CreateWithdrawal(ctx, access, req)
	}
	return e.backend.CreateDeposit(ctx, access, req)
}

func (e *Engine) emit(ctx context.Context, a Actor, w *Wizard, outcome, ref string) {
	ev := Event{
		SessionID: a.SessionID,
		UserID:    a.UserID,
		Kind:      string(w.Kind),
		Outcome:   outcome,
		Reference: ref,
		Amount:    w.Selection.Amount,
		At:        time.Now(),
	}
	for _, o := range e.observers {
		o.Observe(ctx, ev)
	}
}

func creationFailure(kind domain.TransactionType) string {
	if kind == domain.TypeWithdrawal {
		return "Erreur lors de la création du retrait"
	}
	return "Erreur lors de la création du dépôt"
}

// LocalGuard is an in-process Guard
type LocalGuard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocalGuard() *LocalGuard {
	return &LocalGuard{held: make(map[string]struct{})}
}

func (g *LocalGuard) Acquire(_ context.Context, key string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.held[key]; busy {
		return nil, ErrSubmissionInFlight
	}
	g.held[key] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.held, key)
			g.mu.Unlock()
		})
	}, nil
}
