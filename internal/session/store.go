package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"mobcash_portal/internal/domain"
	"mobcash_portal/internal/utils"
)

var ErrNotFound = errors.New("session: not found")

// Store persists session rows
type Store interface {
	Put(ctx context.Context, rec *domain.PortalSession) error
	Get(ctx context.Context, id string) (*domain.PortalSession, error)
	Delete(ctx context.Context, id string) error
}

// GormStore keeps sessions in the portal database
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Put(ctx context.Context, rec *domain.PortalSession) error {
	return s.db.WithContext(ctx).Save(rec).Error
}

func (s *GormStore) Get(ctx context.Context, id string) (*domain.PortalSession, error) {
	var rec domain.PortalSession
	err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return &rec, nil
}

func (s *GormStore) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&domain.PortalSession{}, "id = ?", id).Error
}

// PurgeExpired removes sessions past their expiry
func (s *GormStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&domain.PortalSession{})
	return res.RowsAffected, res.Error
}

// CachedStore reads through Redis before the database
type CachedStore struct {
	next Store
	rdb  redis.Cmdable
	ttl  time.Duration
}

func NewCachedStore(next Store, rdb redis.Cmdable, ttl time.Duration) *CachedStore {
	return &CachedStore{next: next, rdb: rdb, ttl: ttl}
}

func (s *CachedStore) Put(ctx context.Context, rec *domain.PortalSession) error {
	if err := s.next.Put(ctx, rec); err != nil {
		return err
	}
	return utils.SetCache(ctx, s.rdb, utils.PrefixSession+rec.ID, rec, s.ttl)
}

func (s *CachedStore) Get(ctx context.Context, id string) (*domain.PortalSession, error) {
	var rec domain.PortalSession
	if found, err := utils.GetCache(ctx, s.rdb, utils.PrefixSession+id, &rec); err == nil && found {
		return &rec, nil
	}
	got, err := s.next.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	_ = utils.SetCache(ctx, s.rdb, utils.PrefixSession+id, got, s.ttl)
	return got, nil
}

func (s *CachedStore) Delete(ctx context.Context, id string) error {
	if err := utils.DeleteCache(ctx, s.rdb, utils.PrefixSession+id); err != nil {
		return err
	}
	return s.next.Delete(ctx, id)
}

// MemoryStore is an in-process Store
type MemoryStore struct {
	mu sync.Mutex
	m  map[string]domain.PortalSession
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string]domain.PortalSession)}
}

func (s *MemoryStore) Put(_ context.Context, rec *domain.PortalSession) error {
	s.mu.Lock()
	s.m[rec.ID] = *rec
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*domain.PortalSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.m[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.m, id)
	s.mu.Unlock()
	return nil
}
