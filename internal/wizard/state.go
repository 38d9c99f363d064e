package wizard

import (
	"encoding/json"
	"fmt"

	"mobcash_portal/internal/domain"
)

// Phase names a State for persistence and for the HTTP layer
type Phase string

const (
	PhaseCollectingInput      Phase = "collecting_input"
	PhaseSubmitted            Phase = "submitted"
	PhaseAwaitingConfirmation Phase = "awaiting_confirmation"
	PhaseFinalized            Phase = "finalized"
	PhaseCancelled            Phase = "cancelled"
	PhaseResolved             Phase = "resolved"
)

// State is the submission state of a wizard. Only the types in this file implement it.
type State interface {
	Phase() Phase
	isState()
}

// CollectingInput is the initial state; selections are only accepted here
type CollectingInput struct{}

// Submitted means the creation request is in flight
type Submitted struct{}

// AwaitingConfirmation holds the backend summary the user must finalize or cancel
type AwaitingConfirmation struct {
	Transaction domain.Transaction
}

// Finalized means the user accepted the summary; resolution follows
type Finalized struct {
	Transaction domain.Transaction
}

// Cancelled is terminal
type Cancelled struct {
	Reference string
}

// Resolved is terminal and tells the front end which payment action to take
type Resolved struct {
	Resolution Resolution
}

func (CollectingInput) Phase() Phase      { return PhaseCollectingInput }
func (Submitted) Phase() Phase            { return PhaseSubmitted }
func (AwaitingConfirmation) Phase() Phase { return PhaseAwaitingConfirmation }
func (Finalized) Phase() Phase            { return PhaseFinalized }
func (Cancelled) Phase() Phase            { return PhaseCancelled }
func (Resolved) Phase() Phase             { return PhaseResolved }

func (CollectingInput) isState()      {}
func (Submitted) isState()            {}
func (AwaitingConfirmation) isState() {}
func (Finalized) isState()            {}
func (Cancelled) isState()            {}
func (Resolved) isState()             {}

// ResolutionKind is the payment action decided after submission
type ResolutionKind string

const (
	ResolvedLink  ResolutionKind = "link"
	ResolvedUSSD  ResolutionKind = "ussd"
	ResolvedPlain ResolutionKind = "plain"
)

// DashboardPath is where every successful flow lands
const DashboardPath = "/dashboard"

// Resolution is what the front end does once the transaction is initiated
type Resolution struct {
	Kind      ResolutionKind `json:"kind"`
	Reference string         `json:"reference,omitempty"`
	Link      string         `json:"transaction_link,omitempty"`
	USSDCode  string         `json:"ussd_code,omitempty"`
	DialURI   string         `json:"dial_uri,omitempty"`
	DialAfter int64          `json:"dial_after_ms,omitempty"`
	Redirect  string         `json:"redirect"`
	Message   string         `json:"message"`
}

// Terminal reports whether the state accepts no further transition
func Terminal(s State) bool {
	switch s.(type) {
	case Resolved, Cancelled:
		return true
	}
	return false
}

func (w *Wizard) transition(to State) error {
	from := w.State()
	ok := false
	switch to.(type) {
	case Submitted:
		_, ok = from.(CollectingInput)
	case CollectingInput:
		_, ok = from.(Submitted)
	case AwaitingConfirmation:
		_, ok = from.(Submitted)
	case Finalized, Cancelled:
		_, ok = from.(AwaitingConfirmation)
	case Resolved:
		switch from.(type) {
		case Submitted, Finalized:
			ok = true
		}
	}
	if !ok {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from.Phase(), to.Phase())
	}
	w.state = to
	return nil
}

type stateRecord struct {
	Phase       Phase               `json:"phase"`
	Transaction *domain.Transaction `json:"transaction,omitempty"`
	Reference   string              `json:"reference,omitempty"`
	Resolution  *Resolution         `json:"resolution,omitempty"`
}

type wizardRecord struct {
	Kind      domain.TransactionType `json:"kind"`
	Step      Step                   `json:"step"`
	Selection Selection              `json:"selection"`
	Reviewing bool                   `json:"reviewing"`
	State     stateRecord            `json:"state"`
}

func encodeState(s State) stateRecord {
	rec := stateRecord{Phase: s.Phase()}
	switch st := s.(type) {
	case AwaitingConfirmation:
		rec.Transaction = &st.Transaction
	case Finalized:
		rec.Transaction = &st.Transaction
	case Cancelled:
		rec.Reference = st.Reference
	case Resolved:
		rec.Resolution = &st.Resolution
	}
	return rec
}

func decodeState(rec stateRecord) (State, error) {
	switch rec.Phase {
	case PhaseCollectingInput, "":
		return CollectingInput{}, nil
	case PhaseSubmitted:
		return Submitted{}, nil
	case PhaseAwaitingConfirmation, PhaseFinalized:
		if rec.Transaction == nil {
			return nil, fmt.Errorf("phase %s without transaction", rec.Phase)
		}
		if rec.Phase == PhaseFinalized {
			return Finalized{Transaction: *rec.Transaction}, nil
		}
		return AwaitingConfirmation{Transaction: *rec.Transaction}, nil
	case PhaseCancelled:
		return Cancelled{Reference: rec.Reference}, nil
	case PhaseResolved:
		if rec.Resolution == nil {
			return nil, fmt.Errorf("phase %s without resolution", rec.Phase)
		}
		return Resolved{Resolution: *rec.Resolution}, nil
	}
	return nil, fmt.Errorf("unknown phase %q", rec.Phase)
}

func (w *Wizard) MarshalJSON() ([]byte, error) {
	return json.Marshal(wizardRecord{
		Kind:      w.Kind,
		Step:      w.Step,
		Selection: w.Selection,
		Reviewing: w.Reviewing,
		State:     encodeState(w.State()),
	})
}

func (w *Wizard) UnmarshalJSON(b []byte) error {
	var rec wizardRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return err
	}
	st, err := decodeState(rec.State)
	if err != nil {
		return fmt.Errorf("decode wizard state: %w", err)
	}
	if rec.Step < StepPlatform || rec.Step > StepAmount {
		rec.Step = StepPlatform
	}
	*w = Wizard{Kind: rec.Kind, Step: rec.Step, Selection: rec.Selection, Reviewing: rec.Reviewing, state: st}
	return nil
}
