package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"mobcash_portal/internal/backend"
	"mobcash_portal/internal/betid"
	"mobcash_portal/internal/bonus"
	"mobcash_portal/internal/domain"
	"mobcash_portal/internal/session"
	"mobcash_portal/internal/wizard"
)

const (
	testSecret = "api-secret"
	testKey    = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
)

func unauthorized() error { return &backend.APIError{Status: http.StatusUnauthorized} }

// fakeBackend plays every backend role the handlers reach
type fakeBackend struct {
	mu        sync.Mutex
	access    string // currently valid access token
	refreshes int
	loginErr  error
	user      domain.User

	phones  []domain.UserPhone
	betIDs  []domain.UserAppId
	account *domain.BetAccount

	registered []backend.Registration
	resets     int
	created    []backend.TransactionRequest
	createTx   *domain.Transaction
	createErr  error
	bonuses    []backend.BonusRequest
	savedIDs   []string
	deletedIDs []int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		access: "access-1",
		user:   domain.User{ID: 42, FirstName: "Awa", LastName: "Kone", Email: "awa@example.com", Phone: "70112233", BonusAvailable: decimal.NewFromInt(1500)},
		phones: []domain.UserPhone{{ID: 5, Phone: "70112233", Network: 3}, {ID: 6, Phone: "76000000", Network: 1}},
		betIDs: []domain.UserAppId{{ID: 7, UserAppID: "123456", App: "p1"}, {ID: 8, UserAppID: "999", App: "p2"}},
	}
}

func (f *fakeBackend) check(access string) error {
	if access != f.access {
		return unauthorized()
	}
	return nil
}

func (f *fakeBackend) Login(_ context.Context, _, _ string) (*backend.LoginResponse, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &backend.LoginResponse{Access: f.access, Refresh: "refresh-1", Data: f.user}, nil
}

func (f *fakeBackend) RefreshToken(_ context.Context, _ string) (*backend.RefreshResponse, error) {
	f.refreshes++
	f.access = "access-2"
	return &backend.RefreshResponse{Access: f.access}, nil
}

func (f *fakeBackend) Me(_ context.Context, access string) (*domain.User, error) {
	if err := f.check(access); err != nil {
		return nil, err
	}
	u := f.user
	return &u, nil
}

func (f *fakeBackend) RegisterDevice(context.Context, string, string, string, int) error { return nil }
func (f *fakeBackend) DeleteDevice(context.Context, string, string) error               { return nil }

func (f *fakeBackend) Register(_ context.Context, r backend.Registration) error {
	f.registered = append(f.registered, r)
	return nil
}

func (f *fakeBackend) RequestOTP(context.Context, string) error { return nil }

func (f *fakeBackend) ResetPassword(context.Context, string, string, string) error {
	f.resets++
	return nil
}

func (f *fakeBackend) EditProfile(_ context.Context, access string, p backend.ProfileUpdate) error {
	if err := f.check(access); err != nil {
		return err
	}
	f.user.FirstName, f.user.LastName = p.FirstName, p.LastName
	return nil
}

func (f *fakeBackend) ChangePassword(_ context.Context, access, _, _, _ string) error {
	return f.check(access)
}

func (f *fakeBackend) ListPhones(_ context.Context, access string) ([]domain.UserPhone, error) {
	if err := f.check(access); err != nil {
		return nil, err
	}
	return f.phones, nil
}

func (f *fakeBackend) CreatePhone(_ context.Context, access, phone string, network int) (*domain.UserPhone, error) {
	if err := f.check(access); err != nil {
		return nil, err
	}
	p := domain.UserPhone{ID: len(f.phones) + 10, Phone: phone, Network: network}
	f.phones = append(f.phones, p)
	return &p, nil
}

func (f *fakeBackend) UpdatePhone(_ context.Context, access string, id int, phone string, network int) (*domain.UserPhone, error) {
	if err := f.check(access); err != nil {
		return nil, err
	}
	return &domain.UserPhone{ID: id, Phone: phone, Network: network}, nil
}

func (f *fakeBackend) DeletePhone(_ context.Context, access string, _ int) error {
	return f.check(access)
}

func (f *fakeBackend) ListBetIDs(_ context.Context, access, platformID string) ([]domain.UserAppId, error) {
	if err := f.check(access); err != nil {
		return nil, err
	}
	var out []domain.UserAppId
	for _, b := range f.betIDs {
		if platformID == "" || b.App == platformID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBackend) DeleteBetID(_ context.Context, access string, id int) error {
	if err := f.check(access); err != nil {
		return err
	}
	f.deletedIDs = append(f.deletedIDs, id)
	return nil
}

func (f *fakeBackend) SearchBetAccount(_ context.Context, access, _, _ string) (*domain.BetAccount, error) {
	if err := f.check(access); err != nil {
		return nil, err
	}
	if f.account == nil {
		return nil, &backend.APIError{Status: http.StatusNotFound}
	}
	return f.account, nil
}

func (f *fakeBackend) CreateBetID(_ context.Context, access, userAppID, platformID string) (*domain.UserAppId, error) {
	if err := f.check(access); err != nil {
		return nil, err
	}
	f.savedIDs = append(f.savedIDs, platformID+"/"+userAppID)
	return &domain.UserAppId{ID: 99, UserAppID: userAppID, App: platformID}, nil
}

func (f *fakeBackend) UpdateBetID(_ context.Context, access string, id int, userAppID, platformID string) (*domain.UserAppId, error) {
	if err := f.check(access); err != nil {
		return nil, err
	}
	f.savedIDs = append(f.savedIDs, platformID+"/"+userAppID)
	return &domain.UserAppId{ID: id, UserAppID: userAppID, App: platformID}, nil
}

func (f *fakeBackend) create(access string, r backend.TransactionRequest) (*domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(access); err != nil {
		return nil, err
	}
	f.created = append(f.created, r)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.createTx, nil
}

func (f *fakeBackend) CreateDeposit(_ context.Context, access string, r backend.TransactionRequest) (*domain.Transaction, error) {
	return f.create(access, r)
}

func (f *fakeBackend) CreateWithdrawal(_ context.Context, access string, r backend.TransactionRequest) (*domain.Transaction, error) {
	return f.create(access, r)
}

func (f *fakeBackend) LastTransaction(context.Context, string, domain.TransactionType) (*domain.Transaction, error) {
	return f.createTx, nil
}

func (f *fakeBackend) FinalizeTransaction(context.Context, string, string) (*domain.Transaction, error) {
	return f.createTx, nil
}

func (f *fakeBackend) CancelTransaction(context.Context, string, string) error { return nil }

func (f *fakeBackend) CreateBonusDeposit(_ context.Context, access string, r backend.BonusRequest) (*domain.Transaction, error) {
	if err := f.check(access); err != nil {
		return nil, err
	}
	f.bonuses = append(f.bonuses, r)
	return &domain.Transaction{Reference: "BONUS-1"}, nil
}

// fakeLists serves fixed platforms and networks
type fakeLists struct {
	platforms     []domain.Platform
	networks      []domain.Network
	history       domain.Page[domain.Transaction]
	lastFilter    backend.HistoryFilter
	lastRefresh   bool
	lastPage      int
	notifications domain.Page[domain.Notification]
	invalidations int
}

func (l *fakeLists) History(_ context.Context, _, _ string, f backend.HistoryFilter, refresh bool) (*domain.Page[domain.Transaction], error) {
	l.lastFilter, l.lastRefresh = f, refresh
	return &l.history, nil
}

func (l *fakeLists) Bonuses(context.Context, string, string, int, bool) (*domain.Page[domain.Bonus], error) {
	return &domain.Page[domain.Bonus]{}, nil
}

func (l *fakeLists) Coupons(context.Context, string, string, int, bool) (*domain.Page[domain.Coupon], error) {
	return &domain.Page[domain.Coupon]{}, nil
}

func (l *fakeLists) Notifications(_ context.Context, _, _ string, page int, refresh bool) (*domain.Page[domain.Notification], error) {
	l.lastPage, l.lastRefresh = page, refresh
	return &l.notifications, nil
}

func (l *fakeLists) Ads(context.Context, string, string, bool) ([]domain.Ad, error) { return nil, nil }

func (l *fakeLists) Platforms(context.Context, string, bool) ([]domain.Platform, error) {
	return l.platforms, nil
}

func (l *fakeLists) Networks(context.Context, string, bool) ([]domain.Network, error) {
	return l.networks, nil
}

func (l *fakeLists) Invalidate(context.Context, string) error {
	l.invalidations++
	return nil
}

type fakeSettings struct{ setting domain.Setting }

func (s *fakeSettings) Get(context.Context, string) (*domain.Setting, error) {
	st := s.setting
	return &st, nil
}

func (s *fakeSettings) Refresh(ctx context.Context, access string) (*domain.Setting, error) {
	return s.Get(ctx, access)
}

type fakeJournal struct{ subs []domain.Submission }

func (j *fakeJournal) Recent(_ context.Context, userID int, limit int) ([]domain.Submission, error) {
	var out []domain.Submission
	for _, s := range j.subs {
		if s.UserID == userID && len(out) < limit {
			out = append(out, s)
		}
	}
	return out, nil
}

type testEnv struct {
	r        *gin.Engine
	be       *fakeBackend
	lists    *fakeLists
	settings *fakeSettings
	wizards  *wizard.MemoryStore
	pending  *betid.MemoryPending
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	return newEnvWith(t, nil)
}

// newEnvWith lets a test wrap the wizard store the handlers and engine use
func newEnvWith(t *testing.T, wrap func(wizard.Store) wizard.Store) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	be := newFakeBackend()
	lists := &fakeLists{
		platforms: []domain.Platform{
			{ID: "p1", Name: "1xbet", Enable: true, MinimunDeposit: decimal.NewFromInt(1000), MaxDeposit: decimal.NewFromInt(50000), MinimunWith: decimal.NewFromInt(2000), MaxWin: decimal.NewFromInt(500000)},
			{ID: "p2", Name: "melbet", Enable: false},
		},
		networks: []domain.Network{
			{ID: 1, Name: "orange", CountryCode: "CI", ActiveForDeposit: true, ActiveForWith: true, DepositAPI: domain.APIModeConnect},
			{ID: 3, Name: "moov", CountryCode: "CI", ActiveForDeposit: true, ActiveForWith: false, DepositAPI: domain.APIModeManual, DepositMessage: "Validez sur votre téléphone"},
		},
	}
	settings := &fakeSettings{setting: domain.Setting{OrangeMarchandPhone: "0700000000", RewardMiniWithdrawal: decimal.NewFromInt(500), ReferralBonus: true}}
	wizards := wizard.NewMemoryStore()
	var store wizard.Store = wizards
	if wrap != nil {
		store = wrap(wizards)
	}
	pending := betid.NewMemoryPending()
	guard := wizard.NewLocalGuard()

	sealer, err := session.NewSealer(testKey)
	require.NoError(t, err)
	sessions := session.NewManager(be, session.NewMemoryStore(), sealer, testSecret, time.Hour,
		func(ctx context.Context, sid string) error {
			_ = wizards.Delete(ctx, sid, domain.TypeDeposit)
			return wizards.Delete(ctx, sid, domain.TypeWithdrawal)
		},
	)

	d := &Deps{
		Backend:  be,
		Sessions: sessions,
		Settings: settings,
		Lists:    lists,
		Wizards:  store,
		Engine:   wizard.NewEngine(be, guard, store, wizard.Options{}),
		BetIDs:   betid.NewFlow(be, pending),
		Bonus:    bonus.NewService(be, guard),
		Journal:  &fakeJournal{subs: []domain.Submission{{UserID: 42, Kind: "deposit", Outcome: "link"}, {UserID: 7, Kind: "bonus"}}},
	}
	r := gin.New()
	Routes(r, d, testSecret, sessions)
	return &testEnv{r: r, be: be, lists: lists, settings: settings, wizards: wizards, pending: pending}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

func (e *testEnv) login(t *testing.T) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email_or_phone": "awa@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.NotEmpty(t, res.Token)
	return res.Token
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]any](t, w)["error"].(string)
}
