package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"mobcash_portal/internal/domain"
	"mobcash_portal/internal/utils"
)

// SettingsSource fetches the backend settings
type SettingsSource interface {
	GetSettings(ctx context.Context, access string) (*domain.Setting, error)
}

// SettingsCache serves the application settings. A fresh copy is kept for ttl;
// the last good copy never expires and is served when the backend fails.
type SettingsCache struct {
	src   SettingsSource
	rdb   redis.Cmdable
	ttl   time.Duration
	group singleflight.Group
}

func NewSettingsCache(src SettingsSource, rdb redis.Cmdable, ttl time.Duration) *SettingsCache {
	return &SettingsCache{src: src, rdb: rdb, ttl: ttl}
}

const lastGoodSettings = utils.PrefixLastGood + "settings"

// Get returns the cached settings, fetching them when the fresh copy expired
func (c *SettingsCache) Get(ctx context.Context, access string) (*domain.Setting, error) {
	var s domain.Setting
	if found, err := utils.GetCache(ctx, c.rdb, utils.PrefixSettings, &s); err == nil && found {
		return &s, nil
	}
	return c.Refresh(ctx, access)
}

// Refresh fetches the settings from the backend, falling back to the last good copy
func (c *SettingsCache) Refresh(ctx context.Context, access string) (*domain.Setting, error) {
	v, err, _ := c.group.Do("settings", func() (any, error) {
		return c.src.GetSettings(ctx, access)
	})
	if err == nil {
		s := *v.(*domain.Setting)
		if cerr := utils.SetCache(ctx, c.rdb, utils.PrefixSettings, s, c.ttl); cerr != nil {
			logrus.WithError(cerr).Warn("settings cache write failed")
		}
		_ = utils.SetCache(ctx, c.rdb, lastGoodSettings, s, 0)
		return &s, nil
	}

	var last domain.Setting
	found, cerr := utils.GetCache(ctx, c.rdb, lastGoodSettings, &last)
	if cerr != nil || !found {
		return nil, fmt.Errorf("fetch settings: %w", err)
	}
	logrus.WithError(err).Warn("serving last good settings")
	return &last, nil
}
