// Package session holds what the browser client kept in local storage: the
// backend tokens, the cached profile and the application settings, keyed by a
// portal session id carried in the portal JWT.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"mobcash_portal/internal/backend"
	"mobcash_portal/internal/domain"
	"mobcash_portal/internal/utils"
)

var (
	ErrExpired            = errors.New("session: expired")
	ErrInvalidCredentials = errors.New("session: invalid credentials")
	ErrBlocked            = errors.New("session: account blocked")
)

// Backend is the part of the MobCash client sessions need
type Backend interface {
	Login(ctx context.Context, emailOrPhone, password string) (*backend.LoginResponse, error)
	RefreshToken(ctx context.Context, refresh string) (*backend.RefreshResponse, error)
	Me(ctx context.Context, access string) (*domain.User, error)
	RegisterDevice(ctx context.Context, access, token, platform string, userID int) error
	DeleteDevice(ctx context.Context, access, token string) error
}

// Session is the decrypted, in-memory view of a PortalSession row
type Session struct {
	ID          string
	UserID      int
	Access      string
	Refresh     string
	User        domain.User
	DeviceToken string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// Cleaner drops per-session state owned by another package on logout
type Cleaner func(ctx context.Context, sessionID string) error

// Manager creates, loads and tears down sessions
type Manager struct {
	backend  Backend
	store    Store
	sealer   *Sealer
	secret   string
	ttl      time.Duration
	cleaners []Cleaner
	now      func() time.Time
}

func NewManager(b Backend, store Store, sealer *Sealer, secret string, ttl time.Duration, cleaners ...Cleaner) *Manager {
	return &Manager{
		backend:  b,
		store:    store,
		sealer:   sealer,
		secret:   secret,
		ttl:      ttl,
		cleaners: cleaners,
		now:      time.Now,
	}
}

// Login authenticates against the backend and opens a portal session.
// It returns the session and the portal JWT to hand to the client.
func (m *Manager) Login(ctx context.Context, emailOrPhone, password string) (*Session, string, error) {
	res, err := m.backend.Login(ctx, emailOrPhone, password)
	if err != nil {
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusBadRequest || apiErr.Status == http.StatusUnauthorized) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("login: %w", err)
	}
	if res.Data.IsBlock {
		return nil, "", ErrBlocked
	}

	now := m.now()
	s := &Session{
		ID:        uuid.NewString(),
		UserID:    res.Data.ID,
		Access:    res.Access,
		Refresh:   res.Refresh,
		User:      res.Data,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.save(ctx, s); err != nil {
		return nil, "", err
	}
	token, err := utils.GenerateJWT(s.ID, s.UserID, m.secret, m.ttl)
	if err != nil {
		return nil, "", fmt.Errorf("sign portal token: %w", err)
	}
	logrus.WithFields(logrus.Fields{"session": s.ID, "user": s.UserID}).Info("session opened")
	return s, token, nil
}

// Load hydrates a session from the store
func (m *Manager) Load(ctx context.Context, id string) (*Session, error) {
	rec, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.now().After(rec.ExpiresAt) {
		_ = m.store.Delete(ctx, id)
		return nil, ErrExpired
	}
	access, err := m.sealer.Open(rec.AccessToken)
	if err != nil {
		return nil, err
	}
	refresh, err := m.sealer.Open(rec.RefreshToken)
	if err != nil {
		return nil, err
	}
	s := &Session{
		ID:          rec.ID,
		UserID:      rec.UserID,
		Access:      access,
		Refresh:     refresh,
		DeviceToken: rec.DeviceToken,
		CreatedAt:   rec.CreatedAt,
		ExpiresAt:   rec.ExpiresAt,
	}
	if len(rec.UserData) > 0 {
		if err := json.Unmarshal(rec.UserData, &s.User); err != nil {
			return nil, fmt.Errorf("decode user_data: %w", err)
		}
	}
	return s, nil
}

func (m *Manager) save(ctx context.Context, s *Session) error {
	access, err := m.sealer.Seal(s.Access)
	if err != nil {
		return err
	}
	refresh, err := m.sealer.Seal(s.Refresh)
	if err != nil {
		return err
	}
	user, err := json.Marshal(s.User)
	if err != nil {
		return fmt.Errorf("encode user_data: %w", err)
	}
	rec := &domain.PortalSession{
		ID:           s.ID,
		UserID:       s.UserID,
		AccessToken:  access,
		RefreshToken: refresh,
		UserData:     user,
		DeviceToken:  s.DeviceToken,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    m.now(),
		ExpiresAt:    s.ExpiresAt,
	}
	if err := m.store.Put(ctx, rec); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// RefreshTokens trades the refresh token for a new access token
func (m *Manager) RefreshTokens(ctx context.Context, s *Session) error {
	res, err := m.backend.RefreshToken(ctx, s.Refresh)
	if err != nil {
		if errors.Is(err, backend.ErrUnauthorized) {
			return ErrExpired
		}
		return fmt.Errorf("refresh tokens: %w", err)
	}
	s.Access = res.Access
	if res.Refresh != "" {
		s.Refresh = res.Refresh
	}
	return m.save(ctx, s)
}

// Do runs a backend call with the session's access token. On 401 the tokens
// are refreshed once and the call is retried.
func (m *Manager) Do(ctx context.Context, s *Session, call func(access string) error) error {
	err := call(s.Access)
	if !errors.Is(err, backend.ErrUnauthorized) {
		return err
	}
	if rerr := m.RefreshTokens(ctx, s); rerr != nil {
		logrus.WithFields(logrus.Fields{"session": s.ID, "error": rerr}).Warn("token refresh failed")
		return rerr
	}
	return call(s.Access)
}

// RefreshUser reloads the profile from the backend and stores it as user_data
func (m *Manager) RefreshUser(ctx context.Context, s *Session) (*domain.User, error) {
	var user *domain.User
	err := m.Do(ctx, s, func(access string) error {
		var err error
		user, err = m.backend.Me(ctx, access)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.User = *user
	s.UserID = user.ID
	if err := m.save(ctx, s); err != nil {
		return nil, err
	}
	return user, nil
}

// RegisterDevice registers a push token and remembers it for logout
func (m *Manager) RegisterDevice(ctx context.Context, s *Session, token, platform string) error {
	err := m.Do(ctx, s, func(access string) error {
		return m.backend.RegisterDevice(ctx, access, token, platform, s.UserID)
	})
	if err != nil {
		return err
	}
	s.DeviceToken = token
	return m.save(ctx, s)
}

// Logout clears everything the session owns. Failures of individual cleanups
// are logged and do not keep the session alive.
func (m *Manager) Logout(ctx context.Context, s *Session) error {
	log := logrus.WithFields(logrus.Fields{"session": s.ID, "user": s.UserID})
	if s.DeviceToken != "" {
		if err := m.backend.DeleteDevice(ctx, s.Access, s.DeviceToken); err != nil {
			log.WithError(err).Warn("device unregister failed")
		}
	}
	for _, clean := range m.cleaners {
		if err := clean(ctx, s.ID); err != nil {
			log.WithError(err).Warn("session cleanup failed")
		}
	}
	if err := m.store.Delete(ctx, s.ID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	log.Info("session closed")
	return nil
}
