// Package betid implements the search-and-confirm flow that adds or edits a
// user's betting-platform account ID. Searching is the only way in: a record
// is created or updated only after the remote account was found in XOF and
// the user confirmed it.
package betid

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mobcash_portal/internal/backend"
	"mobcash_portal/internal/domain"
)

var (
	ErrAccountNotFound = errors.New("betid: account not found")
	ErrNoPending       = errors.New("betid: no pending search to confirm")
	ErrInvalidQuery    = errors.New("betid: platform and identifier are required")

	// ErrCurrencyMismatch matches every *CurrencyError
	ErrCurrencyMismatch = errors.New("betid: currency not supported")
)

// CurrencyError rejects an account whose currency is not XOF
type CurrencyError struct {
	Currency string
}

func (e *CurrencyError) Error() string {
	return "La devise " + e.Currency + " n'est pas prise en charge. Seule la devise " + domain.CurrencyXOF + " est acceptée."
}

func (e *CurrencyError) Is(target error) bool { return target == ErrCurrencyMismatch }

// Backend is the part of the MobCash client the flow needs
type Backend interface {
	SearchBetAccount(ctx context.Context, access, identifier, platformID string) (*domain.BetAccount, error)
	CreateBetID(ctx context.Context, access, userAppID, platformID string) (*domain.UserAppId, error)
	UpdateBetID(ctx context.Context, access string, id int, userAppID, platformID string) (*domain.UserAppId, error)
}

// Query starts a search. EditID is the record being edited, zero adds a new one.
type Query struct {
	Platform   string `json:"app" binding:"required"`
	Identifier string `json:"user_app_id" binding:"required"`
	EditID     int    `json:"edit_id"`
}

// Candidate is a found account waiting for the user's confirmation
type Candidate struct {
	Query   Query             `json:"query"`
	Account domain.BetAccount `json:"account"`
}

// Pending keeps at most one candidate per session
type Pending interface {
	Get(ctx context.Context, sessionID string) (*Candidate, error) // nil, nil when absent
	Put(ctx context.Context, sessionID string, c Candidate) error
	Clear(ctx context.Context, sessionID string) error
}

// Flow runs search, confirm and abandon
type Flow struct {
	backend Backend
	pending Pending
}

func NewFlow(b Backend, p Pending) *Flow {
	return &Flow{backend: b, pending: p}
}

// Search looks the identifier up on the platform. An XOF account becomes the
// pending candidate; any failure drops the previous candidate so the user has
// to search again.
func (f *Flow) Search(ctx context.Context, sessionID, access string, q Query) (*Candidate, error) {
	q.Platform = strings.TrimSpace(q.Platform)
	q.Identifier = strings.TrimSpace(q.Identifier)
	if q.Platform == "" || q.Identifier == "" {
		return nil, ErrInvalidQuery
	}

	acc, err := f.backend.SearchBetAccount(ctx, access, q.Identifier, q.Platform)
	if err == nil && (acc == nil || (acc.UserID == 0 && acc.Name == "")) {
		err = ErrAccountNotFound
	}
	if errors.Is(err, backend.ErrNotFound) {
		err = ErrAccountNotFound
	}
	if err == nil && !strings.EqualFold(acc.CurrencyID, domain.CurrencyXOF) {
		err = &CurrencyError{Currency: acc.CurrencyID}
	}
	if err != nil {
		if cerr := f.pending.Clear(ctx, sessionID); cerr != nil {
			return nil, errors.Join(err, cerr)
		}
		return nil, err
	}

	c := Candidate{Query: q, Account: *acc}
	if err := f.pending.Put(ctx, sessionID, c); err != nil {
		return nil, fmt.Errorf("store candidate: %w", err)
	}
	return &c, nil
}

// Current returns the pending candidate, or ErrNoPending
func (f *Flow) Current(ctx context.Context, sessionID string) (*Candidate, error) {
	c, err := f.pending.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNoPending
	}
	return c, nil
}

// Confirm persists the pending candidate: an update in edit mode, a creation otherwise.
// A backend failure keeps the candidate so the user can retry.
func (f *Flow) Confirm(ctx context.Context, sessionID, access string) (*domain.UserAppId, error) {
	c, err := f.Current(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var rec *domain.UserAppId
	if c.Query.EditID > 0 {
		rec, err = f.backend.UpdateBetID(ctx, access, c.Query.EditID, c.Query.Identifier, c.Query.Platform)
	} else {
		rec, err = f.backend.CreateBetID(ctx, access, c.Query.Identifier, c.Query.Platform)
	}
	if err != nil {
		return nil, fmt.Errorf("save bet-ID: %w", err)
	}
	if err := f.pending.Clear(ctx, sessionID); err != nil {
		return rec, err
	}
	return rec, nil
}

// Abandon drops the pending candidate
func (f *Flow) Abandon(ctx context.Context, sessionID string) error {
	return f.pending.Clear(ctx, sessionID)
}

// SuccessMessage is the toast shown after Confirm
func SuccessMessage(edit bool) string {
	if edit {
		return "ID de pari modifié avec succès!"
	}
	return "ID de pari ajouté avec succès!"
}
