package wizard

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"mobcash_portal/internal/backend"
	"mobcash_portal/internal/domain"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func testPlatform() domain.Platform {
	return domain.Platform{
		ID:             "1xbet",
		Name:           "1xBet",
		Enable:         true,
		MinimunDeposit: dec(1000),
		MaxDeposit:     dec(100000),
		MinimunWith:    dec(2000),
		MaxWin:         dec(500000),
	}
}

func testOrange(country string) domain.Network {
	return domain.Network{
		ID:                1,
		Name:              "orange",
		PublicName:        "Orange Money",
		CountryCode:       country,
		ActiveForDeposit:  true,
		ActiveForWith:     true,
		DepositAPI:        domain.APIModeConnect,
		WithdrawalAPI:     domain.APIModeManual,
		DepositMessage:    " Composez le code affiché ",
		WithdrawalMessage: "Le retrait est traité sous 5 minutes",
	}
}

func testSettings() *domain.Setting {
	return &domain.Setting{
		OrangeMarchandPhone:   "0700000000",
		BFOrangeMarchandPhone: "0100000000",
		RewardMiniWithdrawal:  dec(500),
		ReferralBonus:         true,
	}
}

// filledWizard returns a wizard at the amount step with every selection made
func filledWizard(kind domain.TransactionType, n domain.Network, amount int64) *Wizard {
	w := New(kind)
	p := testPlatform()
	w.Selection.Platform = &p
	w.Selection.BetID = &domain.UserAppId{ID: 7, UserAppID: "123456", App: p.ID}
	w.Selection.Network = &n
	w.Selection.Phone = &domain.UserPhone{ID: 3, Phone: "70112233", Network: n.ID}
	w.Selection.Amount = dec(amount)
	if kind == domain.TypeWithdrawal {
		w.Selection.WithdrawalCode = "AB12"
	}
	w.Step = StepAmount
	return w
}

type fakeBackend struct {
	mu        sync.Mutex
	creates   []backend.TransactionRequest
	createTx  *domain.Transaction
	createErr error
	entered   chan struct{} // signalled when a creation starts
	release   chan struct{} // creation blocks until closed, when set
	last      *domain.Transaction
	lastErr   error
	finalTx   *domain.Transaction
	finalErr  error
	finalized []string
	cancelled []string
}

func (f *fakeBackend) create(r backend.TransactionRequest) (*domain.Transaction, error) {
	f.mu.Lock()
	f.creates = append(f.creates, r)
	entered, release := f.entered, f.release
	f.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if release != nil {
		<-release
	}
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.createTx == nil {
		return &domain.Transaction{Reference: "REF-1"}, nil
	}
	tx := *f.createTx
	return &tx, nil
}

func (f *fakeBackend) CreateDeposit(_ context.Context, _ string, r backend.TransactionRequest) (*domain.Transaction, error) {
	return f.create(r)
}

func (f *fakeBackend) CreateWithdrawal(_ context.Context, _ string, r backend.TransactionRequest) (*domain.Transaction, error) {
	return f.create(r)
}

func (f *fakeBackend) LastTransaction(context.Context, string, domain.TransactionType) (*domain.Transaction, error) {
	if f.lastErr != nil {
		return nil, f.lastErr
	}
	if f.last == nil {
		return nil, backend.ErrNotFound
	}
	tx := *f.last
	return &tx, nil
}

func (f *fakeBackend) FinalizeTransaction(_ context.Context, _ string, ref string) (*domain.Transaction, error) {
	f.finalized = append(f.finalized, ref)
	if f.finalErr != nil {
		return nil, f.finalErr
	}
	return f.finalTx, nil
}

func (f *fakeBackend) CancelTransaction(_ context.Context, _ string, ref string) error {
	f.cancelled = append(f.cancelled, ref)
	return nil
}

func (f *fakeBackend) createCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.creates)
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Observe(_ context.Context, e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) outcomes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Outcome)
	}
	return out
}

var errBoom = errors.New("boom")

var actor = Actor{SessionID: "s-1", UserID: 42, Access: "access"}
