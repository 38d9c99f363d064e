package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"mobcash_portal/internal/domain"
	"mobcash_portal/internal/utils"
)

// ErrNoWizard is returned when a session has no flow of the requested kind
var ErrNoWizard = errors.New("wizard: no flow in progress")

// Store keeps one wizard per session and kind
type Store interface {
	Load(ctx context.Context, sessionID string, kind domain.TransactionType) (*Wizard, error)
	Save(ctx context.Context, sessionID string, w *Wizard) error
	Delete(ctx context.Context, sessionID string, kind domain.TransactionType) error
}

// RedisStore persists wizards as JSON with a sliding TTL
type RedisStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisStore(rdb redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func wizardKey(sessionID string, kind domain.TransactionType) string {
	return utils.PrefixWizard + sessionID + ":" + string(kind)
}

func (s *RedisStore) Load(ctx context.Context, sessionID string, kind domain.TransactionType) (*Wizard, error) {
	var w Wizard
	found, err := utils.GetCache(ctx, s.rdb, wizardKey(sessionID, kind), &w)
	if err != nil {
		return nil, fmt.Errorf("load wizard: %w", err)
	}
	if !found {
		return nil, ErrNoWizard
	}
	return &w, nil
}

func (s *RedisStore) Save(ctx context.Context, sessionID string, w *Wizard) error {
	if err := utils.SetCache(ctx, s.rdb, wizardKey(sessionID, w.Kind), w, s.ttl); err != nil {
		return fmt.Errorf("save wizard: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string, kind domain.TransactionType) error {
	return utils.DeleteCache(ctx, s.rdb, wizardKey(sessionID, kind))
}

// RedisGuard is a Guard shared by every portal replica
type RedisGuard struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisGuard(rdb redis.Cmdable, ttl time.Duration) *RedisGuard {
	return &RedisGuard{rdb: rdb, ttl: ttl}
}

func (g *RedisGuard) Acquire(ctx context.Context, key string) (func(), error) {
	release, err := utils.AcquireLock(ctx, g.rdb, key, g.ttl)
	if errors.Is(err, utils.ErrLockHeld) {
		return nil, ErrSubmissionInFlight
	}
	return release, err
}

// MemoryStore is an in-process Store
type MemoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Load(_ context.Context, sessionID string, kind domain.TransactionType) (*Wizard, error) {
	s.mu.Lock()
	b, ok := s.data[wizardKey(sessionID, kind)]
	s.mu.Unlock()
	if !ok {
		return nil, ErrNoWizard
	}
	var w Wizard
	if err := w.UnmarshalJSON(b); err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *MemoryStore) Save(_ context.Context, sessionID string, w *Wizard) error {
	b, err := w.MarshalJSON()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data[wizardKey(sessionID, w.Kind)] = b
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string, kind domain.TransactionType) error {
	s.mu.Lock()
	delete(s.data, wizardKey(sessionID, kind))
	s.mu.Unlock()
	return nil
}
