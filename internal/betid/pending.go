package betid

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"mobcash_portal/internal/utils"
)

// RedisPending stores candidates in Redis; an abandoned search expires on its own
type RedisPending struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisPending(rdb redis.Cmdable, ttl time.Duration) *RedisPending {
	return &RedisPending{rdb: rdb, ttl: ttl}
}

func (p *RedisPending) Get(ctx context.Context, sessionID string) (*Candidate, error) {
	var c Candidate
	found, err := utils.GetCache(ctx, p.rdb, utils.PrefixBetID+sessionID, &c)
	if err != nil || !found {
		return nil, err
	}
	return &c, nil
}

func (p *RedisPending) Put(ctx context.Context, sessionID string, c Candidate) error {
	return utils.SetCache(ctx, p.rdb, utils.PrefixBetID+sessionID, c, p.ttl)
}

func (p *RedisPending) Clear(ctx context.Context, sessionID string) error {
	return utils.DeleteCache(ctx, p.rdb, utils.PrefixBetID+sessionID)
}

// MemoryPending is an in-process Pending
type MemoryPending struct {
	mu sync.Mutex
	m  map[string]Candidate
}

func NewMemoryPending() *MemoryPending {
	return &MemoryPending{m: make(map[string]Candidate)}
}

func (p *MemoryPending) Get(_ context.Context, sessionID string) (*Candidate, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.m[sessionID]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (p *MemoryPending) Put(_ context.Context, sessionID string, c Candidate) error {
	p.mu.Lock()
	p.m[sessionID] = c
	p.mu.Unlock()
	return nil
}

func (p *MemoryPending) Clear(_ context.Context, sessionID string) error {
	p.mu.Lock()
	delete(p.m, sessionID)
	p.mu.Unlock()
	return nil
}
