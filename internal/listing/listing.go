// Package listing serves the list views (history, bonuses, coupons, ads).
// Responses are cached per session for a short time; a refresh, sent when the
// client regains focus, bypasses the cache. Concurrent fetches of the same
// list are coalesced into one backend call.
package listing

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"mobcash_portal/internal/backend"
	"mobcash_portal/internal/domain"
	"mobcash_portal/internal/utils"
)

// Source is the part of the MobCash client the lists come from
type Source interface {
	TransactionHistory(ctx context.Context, access string, f backend.HistoryFilter) (*domain.Page[domain.Transaction], error)
	ListBonuses(ctx context.Context, access string, page int) (*domain.Page[domain.Bonus], error)
	ListCoupons(ctx context.Context, access string, page int) (*domain.Page[domain.Coupon], error)
	ListAds(ctx context.Context, access string) (*domain.Page[domain.Ad], error)
	ListNotifications(ctx context.Context, access string, page int) (*domain.Page[domain.Notification], error)
	ListPlatforms(ctx context.Context, access string) ([]domain.Platform, error)
	ListNetworks(ctx context.Context, access string) ([]domain.Network, error)
}

type Lister struct {
	src   Source
	rdb   redis.Cmdable
	ttl   time.Duration
	group singleflight.Group
}

func New(src Source, rdb redis.Cmdable, ttl time.Duration) *Lister {
	return &Lister{src: src, rdb: rdb, ttl: ttl}
}

func key(sessionID, list, variant string) string {
	return utils.PrefixList + sessionID + ":" + list + ":" + variant
}

// fetch returns the cached value unless refresh is set, then loads it once for all concurrent callers.
// The shared load runs detached from the first caller, whose client may go away before the others'.
func fetch[T any](ctx context.Context, l *Lister, k string, refresh bool, load func(ctx context.Context) (T, error)) (T, error) {
	var out T
	if !refresh {
		found, err := utils.GetCache(ctx, l.rdb, k, &out)
		if err == nil && found {
			return out, nil
		}
		if err != nil {
			logrus.WithFields(logrus.Fields{"key": k, "error": err}).Warn("list cache read failed")
		}
	}
	shared := context.WithoutCancel(ctx)
	ch := l.group.DoChan(k, func() (any, error) {
		got, err := load(shared)
		if err != nil {
			return nil, err
		}
		if cerr := utils.SetCache(shared, l.rdb, k, got, l.ttl); cerr != nil {
			logrus.WithFields(logrus.Fields{"key": k, "error": cerr}).Warn("list cache write failed")
		}
		return got, nil
	})
	select {
	case <-ctx.Done():
		return out, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return out, res.Err
		}
		if res.Shared {
			logrus.WithField("key", k).Debug("list fetch coalesced")
		}
		return res.Val.(T), nil
	}
}

func (l *Lister) History(ctx context.Context, sessionID, access string, f backend.HistoryFilter, refresh bool) (*domain.Page[domain.Transaction], error) {
	return fetch(ctx, l, key(sessionID, "history", f.Encode()), refresh, func(ctx context.Context) (*domain.Page[domain.Transaction], error) {
		return l.src.TransactionHistory(ctx, access, f)
	})
}

func (l *Lister) Bonuses(ctx context.Context, sessionID, access string, page int, refresh bool) (*domain.Page[domain.Bonus], error) {
	return fetch(ctx, l, key(sessionID, "bonus", strconv.Itoa(page)), refresh, func(ctx context.Context) (*domain.Page[domain.Bonus], error) {
		return l.src.ListBonuses(ctx, access, page)
	})
}

func (l *Lister) Coupons(ctx context.Context, sessionID, access string, page int, refresh bool) (*domain.Page[domain.Coupon], error) {
	return fetch(ctx, l, key(sessionID, "coupon", strconv.Itoa(page)), refresh, func(ctx context.Context) (*domain.Page[domain.Coupon], error) {
		return l.src.ListCoupons(ctx, access, page)
	})
}

func (l *Lister) Notifications(ctx context.Context, sessionID, access string, page int, refresh bool) (*domain.Page[domain.Notification], error) {
	return fetch(ctx, l, key(sessionID, "notification", strconv.Itoa(page)), refresh, func(ctx context.Context) (*domain.Page[domain.Notification], error) {
		return l.src.ListNotifications(ctx, access, page)
	})
}

// Ads returns only the enabled announcements
func (l *Lister) Ads(ctx context.Context, sessionID, access string, refresh bool) ([]domain.Ad, error) {
	page, err := fetch(ctx, l, key(sessionID, "ads", "all"), refresh, func(ctx context.Context) (*domain.Page[domain.Ad], error) {
		return l.src.ListAds(ctx, access)
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Ad, 0, len(page.Results))
	for _, a := range page.Results {
		if a.Enable {
			out = append(out, a)
		}
	}
	return out, nil
}

// Platforms and networks are the same for every user and are cached globally
func (l *Lister) Platforms(ctx context.Context, access string, refresh bool) ([]domain.Platform, error) {
	return fetch(ctx, l, utils.PrefixList+"platforms", refresh, func(ctx context.Context) ([]domain.Platform, error) {
		return l.src.ListPlatforms(ctx, access)
	})
}

func (l *Lister) Networks(ctx context.Context, access string, refresh bool) ([]domain.Network, error) {
	return fetch(ctx, l, utils.PrefixList+"networks", refresh, func(ctx context.Context) ([]domain.Network, error) {
		return l.src.ListNetworks(ctx, access)
	})
}

// Invalidate drops every cached list of a session, after a submission or on logout
func (l *Lister) Invalidate(ctx context.Context, sessionID string) error {
	iter := l.rdb.Scan(ctx, 0, utils.PrefixList+sessionID+":*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan list cache: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return utils.DeleteCache(ctx, l.rdb, keys...)
}
