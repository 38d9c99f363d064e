package wizard

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mobcash_portal/internal/backend"
	"mobcash_portal/internal/domain"
)

func TestConfirmSendsSelection(t *testing.T) {
	be := &fakeBackend{}
	e := NewEngine(be, NewLocalGuard(), NewMemoryStore(), Options{})
	w := filledWizard(domain.TypeWithdrawal, testOrange("CI"), 3000)

	_, err := e.Confirm(context.Background(), actor, w, testSettings())
	require.NoError(t, err)
	require.Len(t, be.creates, 1)
	req := be.creates[0]
	assert.Equal(t, "1xbet", req.App)
	assert.Equal(t, "123456", req.UserAppID)
	assert.Equal(t, 1, req.Network)
	assert.Equal(t, "70112233", req.PhoneNumber)
	assert.Equal(t, "AB12", req.WithdriwalCode)
	assert.Equal(t, "web", req.Source)
	assert.True(t, req.Amount.Equal(dec(3000)))
}

func TestConfirmIncompleteDoesNotCallBackend(t *testing.T) {
	be := &fakeBackend{}
	e := NewEngine(be, NewLocalGuard(), NewMemoryStore(), Options{})
	w := filledWizard(domain.TypeDeposit, testOrange("CI"), 50)

	_, err := e.Confirm(context.Background(), actor, w, testSettings())
	assert.ErrorIs(t, err, ErrAmountInvalid)
	assert.Zero(t, be.createCount())
	assert.Equal(t, PhaseCollectingInput, w.State().Phase())
}

// seed stores a filled flow for the test actor's session
func seed(t *testing.T, store Store, kind domain.TransactionType) {
	t.Helper()
	require.NoError(t, store.Save(context.Background(), actor.SessionID, filledWizard(kind, testOrange("CI"), 5000)))
}

func confirmOp(e *Engine) func(w *Wizard) error {
	return func(w *Wizard) error {
		_, err := e.Confirm(context.Background(), actor, w, testSettings())
		return err
	}
}

func TestDoubleConfirmIssuesOneCreation(t *testing.T) {
	be := &fakeBackend{entered: make(chan struct{}, 1), release: make(chan struct{})}
	store := NewMemoryStore()
	e := NewEngine(be, NewLocalGuard(), store, Options{})
	seed(t, store, domain.TypeDeposit)

	done := make(chan error, 1)
	go func() {
		_, err := e.Exclusive(context.Background(), actor.SessionID, domain.TypeDeposit, confirmOp(e))
		done <- err
	}()
	<-be.entered

	_, err := e.Exclusive(context.Background(), actor.SessionID, domain.TypeDeposit, confirmOp(e))
	assert.ErrorIs(t, err, ErrSubmissionInFlight)

	// the in-flight state is visible to anyone reading the store
	got, err := store.Load(context.Background(), actor.SessionID, domain.TypeDeposit)
	require.NoError(t, err)
	assert.Equal(t, PhaseSubmitted, got.State().Phase())

	close(be.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, be.createCount())

	got, err = store.Load(context.Background(), actor.SessionID, domain.TypeDeposit)
	require.NoError(t, err)
	assert.Equal(t, PhaseResolved, got.State().Phase())
}

func TestStaleCopyCannotResubmit(t *testing.T) {
	be := &fakeBackend{entered: make(chan struct{}, 1), release: make(chan struct{})}
	store := NewMemoryStore()
	e := NewEngine(be, NewLocalGuard(), store, Options{})
	seed(t, store, domain.TypeDeposit)

	done := make(chan error, 1)
	go func() {
		_, err := e.Exclusive(context.Background(), actor.SessionID, domain.TypeDeposit, confirmOp(e))
		done <- err
	}()
	<-be.entered

	// a second replica whose guard has lapsed still sees Submitted
	other := NewEngine(be, NewLocalGuard(), store, Options{})
	_, err := other.Exclusive(context.Background(), actor.SessionID, domain.TypeDeposit, confirmOp(other))
	assert.ErrorIs(t, err, ErrSubmissionInFlight)

	close(be.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, be.createCount())
}

func TestExclusiveStartsMissingFlow(t *testing.T) {
	store := NewMemoryStore()
	e := NewEngine(&fakeBackend{}, NewLocalGuard(), store, Options{})

	w, err := e.Exclusive(context.Background(), "s-9", domain.TypeWithdrawal, func(w *Wizard) error {
		return w.Next()
	})
	assert.ErrorIs(t, err, ErrStepIncomplete)
	require.NotNil(t, w)
	assert.Equal(t, StepPlatform, w.Step)

	got, err := store.Load(context.Background(), "s-9", domain.TypeWithdrawal)
	require.NoError(t, err)
	assert.Equal(t, domain.TypeWithdrawal, got.Kind)
}

func TestConfirmWhileSubmittedIsRejected(t *testing.T) {
	be := &fakeBackend{}
	e := NewEngine(be, NewLocalGuard(), NewMemoryStore(), Options{})
	w := filledWizard(domain.TypeDeposit, testOrange("CI"), 5000)
	require.NoError(t, w.transition(Submitted{}))

	_, err := e.Confirm(context.Background(), actor, w, testSettings())
	assert.ErrorIs(t, err, ErrSubmissionInFlight)
	assert.Zero(t, be.createCount())
}

func TestConfirmWithLinkRedirectsToDashboard(t *testing.T) {
	be := &fakeBackend{createTx: &domain.Transaction{Reference: "R-9", TransactionLink: "https://pay.example/R-9"}}
	rec := &recorder{}
	e := NewEngine(be, NewLocalGuard(), NewMemoryStore(), Options{}, rec)
	w := filledWizard(domain.TypeDeposit, testOrange("CI"), 5000)

	st, err := e.Confirm(context.Background(), actor, w, testSettings())
	require.NoError(t, err)
	res, ok := st.(Resolved)
	require.True(t, ok)
	assert.Equal(t, ResolvedLink, res.Resolution.Kind)
	assert.Equal(t, "https://pay.example/R-9", res.Resolution.Link)
	assert.Equal(t, "/dashboard", res.Resolution.Redirect)
	assert.True(t, Terminal(st))
	assert.Equal(t, []string{"link"}, rec.outcomes())
}

func TestConfirmBurkinaOrangeConnectDials(t *testing.T) {
	be := &fakeBackend{}
	e := NewEngine(be, NewLocalGuard(), NewMemoryStore(), Options{})
	w := filledWizard(domain.TypeDeposit, testOrange("BF"), 3000)

	st, err := e.Confirm(context.Background(), actor, w, testSettings())
	require.NoError(t, err)
	res := st.(Resolved).Resolution
	assert.Equal(t, ResolvedUSSD, res.Kind)
	assert.Equal(t, "#144#8*0100000000*3000#", res.USSDCode)
	assert.Equal(t, "tel:%23144%238*0100000000*3000%23", res.DialURI)
	assert.Equal(t, DashboardPath, res.Redirect)
}

func TestConfirmFeeDeduction(t *testing.T) {
	be := &fakeBackend{}
	e := NewEngine(be, NewLocalGuard(), NewMemoryStore(), Options{USSDFeeDeduction: true})
	w := filledWizard(domain.TypeDeposit, testOrange("CI"), 5000)

	st, err := e.Confirm(context.Background(), actor, w, testSettings())
	require.NoError(t, err)
	assert.Equal(t, "#144#8*0700000000*4950#", st.(Resolved).Resolution.USSDCode)
}

func TestConfirmFailureReturnsToInput(t *testing.T) {
	be := &fakeBackend{createErr: errBoom}
	rec := &recorder{}
	e := NewEngine(be, NewLocalGuard(), NewMemoryStore(), Options{}, rec)
	w := filledWizard(domain.TypeDeposit, testOrange("CI"), 5000)

	st, err := e.Confirm(context.Background(), actor, w, testSettings())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSubmissionFailed)
	assert.ErrorIs(t, err, errBoom)
	var se *SubmitError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "Erreur lors de la création du dépôt", se.Message)
	assert.Equal(t, PhaseCollectingInput, st.Phase())
	assert.Equal(t, []string{OutcomeError}, rec.outcomes())

	// the wizard is back to input, a retry goes through
	be.createErr = nil
	_, err = e.Confirm(context.Background(), actor, w, testSettings())
	require.NoError(t, err)
	assert.Equal(t, 2, be.createCount())
}

func TestExpiredTokenRecordsNoFailure(t *testing.T) {
	be := &fakeBackend{createErr: &backend.APIError{Status: http.StatusUnauthorized}}
	rec := &recorder{}
	e := NewEngine(be, NewLocalGuard(), NewMemoryStore(), Options{}, rec)
	w := filledWizard(domain.TypeDeposit, testOrange("CI"), 5000)

	_, err := e.Confirm(context.Background(), actor, w, testSettings())
	assert.ErrorIs(t, err, backend.ErrUnauthorized)
	assert.Empty(t, rec.outcomes())
	assert.Equal(t, PhaseCollectingInput, w.State().Phase())
}

func TestSummaryFlowFinalize(t *testing.T) {
	be := &fakeBackend{
		last:    &domain.Transaction{Reference: "R-2", Amount: dec(3000), Status: domain.StatusPending},
		finalTx: &domain.Transaction{Reference: "R-2", Status: domain.StatusInitPayment},
	}
	rec := &recorder{}
	e := NewEngine(be, NewLocalGuard(), NewMemoryStore(), Options{ConfirmSummary: true}, rec)
	w := filledWizard(domain.TypeDeposit, testOrange("BF"), 3000)

	st, err := e.Confirm(context.Background(), actor, w, testSettings())
	require.NoError(t, err)
	aw, ok := st.(AwaitingConfirmation)
	require.True(t, ok)
	assert.Equal(t, "R-2", aw.Transaction.Reference)

	// no more input while the summary is shown
	assert.ErrorIs(t, w.SetAmount(dec(4000)), ErrInvalidTransition)

	st, err = e.Finalize(context.Background(), actor, w, testSettings())
	require.NoError(t, err)
	assert.Equal(t, []string{"R-2"}, be.finalized)
	res := st.(Resolved).Resolution
	assert.Equal(t, ResolvedUSSD, res.Kind)
	assert.Equal(t, "#144#8*0100000000*3000#", res.USSDCode)
	assert.Equal(t, []string{OutcomeAwaiting, "ussd"}, rec.outcomes())
}

func TestSummaryFlowCancel(t *testing.T) {
	be := &fakeBackend{last: &domain.Transaction{Reference: "R-3"}}
	e := NewEngine(be, NewLocalGuard(), NewMemoryStore(), Options{ConfirmSummary: true})
	w := filledWizard(domain.TypeDeposit, testOrange("CI"), 3000)

	_, err := e.Confirm(context.Background(), actor, w, testSettings())
	require.NoError(t, err)

	st, err := e.Cancel(context.Background(), actor, w)
	require.NoError(t, err)
	assert.Equal(t, Cancelled{Reference: "R-3"}, st)
	assert.True(t, Terminal(st))
	assert.Equal(t, []string{"R-3"}, be.cancelled)

	_, err = e.Finalize(context.Background(), actor, w, testSettings())
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSummaryFallsBackToCreatedRecord(t *testing.T) {
	be := &fakeBackend{createTx: &domain.Transaction{Reference: "R-4"}, lastErr: errBoom}
	e := NewEngine(be, NewLocalGuard(), NewMemoryStore(), Options{ConfirmSummary: true})
	w := filledWizard(domain.TypeDeposit, testOrange("CI"), 3000)

	st, err := e.Confirm(context.Background(), actor, w, testSettings())
	require.NoError(t, err)
	assert.Equal(t, "R-4", st.(AwaitingConfirmation).Transaction.Reference)
}

func TestFinalizeFailureKeepsSummary(t *testing.T) {
	be := &fakeBackend{last: &domain.Transaction{Reference: "R-5"}, finalErr: errBoom}
	e := NewEngine(be, NewLocalGuard(), NewMemoryStore(), Options{ConfirmSummary: true})
	w := filledWizard(domain.TypeDeposit, testOrange("CI"), 3000)

	_, err := e.Confirm(context.Background(), actor, w, testSettings())
	require.NoError(t, err)
	st, err := e.Finalize(context.Background(), actor, w, testSettings())
	assert.ErrorIs(t, err, ErrSubmissionFailed)
	assert.Equal(t, PhaseAwaitingConfirmation, st.Phase())
}

func TestFinalizeOutsideSummaryIsRejected(t *testing.T) {
	e := NewEngine(&fakeBackend{}, NewLocalGuard(), NewMemoryStore(), Options{})
	w := filledWizard(domain.TypeDeposit, testOrange("CI"), 3000)
	_, err := e.Finalize(context.Background(), actor, w, testSettings())
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = e.Cancel(context.Background(), actor, w)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestWizardSurvivesPersistence(t *testing.T) {
	be := &fakeBackend{last: &domain.Transaction{Reference: "R-6", Amount: dec(3000)}}
	e := NewEngine(be, NewLocalGuard(), NewMemoryStore(), Options{ConfirmSummary: true})
	w := filledWizard(domain.TypeDeposit, testOrange("CI"), 3000)
	_, err := e.Confirm(context.Background(), actor, w, testSettings())
	require.NoError(t, err)

	store := NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), "s-1", w))
	got, err := store.Load(context.Background(), "s-1", domain.TypeDeposit)
	require.NoError(t, err)
	assert.Equal(t, StepAmount, got.Step)
	assert.Equal(t, "R-6", got.State().(AwaitingConfirmation).Transaction.Reference)
	assert.True(t, got.Selection.Amount.Equal(dec(3000)))

	_, err = store.Load(context.Background(), "s-1", domain.TypeWithdrawal)
	assert.ErrorIs(t, err, ErrNoWizard)

	raw, err := json.Marshal(w)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"phase":"awaiting_confirmation"`)
}
