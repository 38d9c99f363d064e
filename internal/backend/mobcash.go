package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"mobcash_portal/internal/domain"
)

func (c *Client) ListNetworks(ctx context.Context, access string) ([]domain.Network, error) {
	var out []domain.Network
	if err := c.do(ctx, http.MethodGet, "/mobcash/network", access, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListPlatforms(ctx context.Context, access string) ([]domain.Platform, error) {
	var out []domain.Platform
	if err := c.do(ctx, http.MethodGet, "/mobcash/plateform", access, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetSettings(ctx context.Context, access string) (*domain.Setting, error) {
	var out domain.Setting
	if err := c.do(ctx, http.MethodGet, "/mobcash/setting", access, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Phones ---

func (c *Client) ListPhones(ctx context.Context, access string) ([]domain.UserPhone, error) {
	var out []domain.UserPhone
	if err := c.do(ctx, http.MethodGet, "/mobcash/user-phone/", access, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreatePhone(ctx context.Context, access, phone string, network int) (*domain.UserPhone, error) {
	var out domain.UserPhone
	body := map[string]any{"phone": phone, "network": network}
	if err := c.do(ctx, http.MethodPost, "/mobcash/user-phone/", access, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdatePhone(ctx context.Context, access string, id int, phone string, network int) (*domain.UserPhone, error) {
	var out domain.UserPhone
	body := map[string]any{"phone": phone, "network": network}
	if err := c.do(ctx, http.MethodPatch, "/mobcash/user-phone/"+strconv.Itoa(id)+"/", access, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeletePhone(ctx context.Context, access string, id int) error {
	return c.do(ctx, http.MethodDelete, "/mobcash/user-phone/"+strconv.Itoa(id)+"/", access, nil, nil)
}

// --- Bet-IDs ---

func (c *Client) ListBetIDs(ctx context.Context, access, platformID string) ([]domain.UserAppId, error) {
	var out []domain.UserAppId
	path := withQuery("/mobcash/user-app-id", url.Values{"bet_app": {platformID}})
	if err := c.do(ctx, http.MethodGet, path, access, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateBetID(ctx context.Context, access, userAppID, platformID string) (*domain.UserAppId, error) {
	var out domain.UserAppId
	body := map[string]string{"user_app_id": userAppID, "app": platformID}
	if err := c.do(ctx, http.MethodPost, "/mobcash/user-app-id/", access, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateBetID(ctx context.Context, access string, id int, userAppID, platformID string) (*domain.UserAppId, error) {
	var out domain.UserAppId
	body := map[string]string{"user_app_id": userAppID, "app": platformID}
	if err := c.do(ctx, http.MethodPatch, "/mobcash/user-app-id/"+strconv.Itoa(id)+"/", access, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteBetID(ctx context.Context, access string, id int) error {
	return c.do(ctx, http.MethodDelete, "/mobcash/user-app-id/"+strconv.Itoa(id)+"/", access, nil, nil)
}

// SearchBetAccount looks up the remote account behind an identifier on a platform
func (c *Client) SearchBetAccount(ctx context.Context, access, identifier, platformID string) (*domain.BetAccount, error) {
	var out domain.BetAccount
	body := map[string]string{"userid": identifier, "app_id": platformID}
	if err := c.do(ctx, http.MethodPost, "/mobcash/search-user", access, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Listings ---

func (c *Client) ListBonuses(ctx context.Context, access string, page int) (*domain.Page[domain.Bonus], error) {
	var out domain.Page[domain.Bonus]
	if err := c.do(ctx, http.MethodGet, withQuery("/mobcash/bonus", pageQuery(page)), access, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListCoupons(ctx context.Context, access string, page int) (*domain.Page[domain.Coupon], error) {
	var out domain.Page[domain.Coupon]
	if err := c.do(ctx, http.MethodGet, withQuery("/mobcash/coupon", pageQuery(page)), access, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListNotifications returns one page of the user's notifications
func (c *Client) ListNotifications(ctx context.Context, access string, page int) (*domain.Page[domain.Notification], error) {
	var out domain.Page[domain.Notification]
	if err := c.do(ctx, http.MethodGet, withQuery("/mobcash/notification", pageQuery(page)), access, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListAds(ctx context.Context, access string) (*domain.Page[domain.Ad], error) {
	var out domain.Page[domain.Ad]
	if err := c.do(ctx, http.MethodGet, "/mobcash/ann", access, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func pageQuery(page int) url.Values {
	if page < 1 {
		page = 1
	}
	return url.Values{"page": {strconv.Itoa(page)}}
}
