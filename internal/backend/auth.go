package backend

import (
	"context"
	"net/http"

	"mobcash_portal/internal/domain"
)

// LoginResponse is the body of POST /auth/login
type LoginResponse struct {
	Access  string      `json:"access"`
	Refresh string      `json:"refresh"`
	Data    domain.User `json:"data"`
}

// Registration is the body of POST /auth/registration
type Registration struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Password   string `json:"password"`
	RePassword string `json:"re_password"`
	Referrer   string `json:"referral_code,omitempty"`
}

// RefreshResponse is the body of POST /auth/token/refresh/
type RefreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// ProfileUpdate is the body of PATCH /auth/edit
type ProfileUpdate struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

func (c *Client) Login(ctx context.Context, emailOrPhone, password string) (*LoginResponse, error) {
	var out LoginResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", "", map[string]string{
		"email_or_phone": emailOrPhone,
		"password":       password,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, r Registration) error {
	return c.do(ctx, http.MethodPost, "/auth/registration", "", r, nil)
}

func (c *Client) RefreshToken(ctx context.Context, refresh string) (*RefreshResponse, error) {
	var out RefreshResponse
	if err := c.do(ctx, http.MethodPost, "/auth/token/refresh/", "", map[string]string{"refresh": refresh}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RequestOTP asks the backend to email a password reset code
func (c *Client) RequestOTP(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/auth/send_otp", "", map[string]string{"email": email}, nil)
}

// ResetPassword sets a new password using an emailed code
func (c *Client) ResetPassword(ctx context.Context, otp, password, confirm string) error {
	return c.do(ctx, http.MethodPost, "/auth/reset_password_from_otp", "", map[string]string{
		"otp":                  otp,
		"new_password":         password,
		"confirm_new_password": confirm,
	}, nil)
}

func (c *Client) Me(ctx context.Context, access string) (*domain.User, error) {
	var out domain.User
	if err := c.do(ctx, http.MethodGet, "/auth/me", access, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) EditProfile(ctx context.Context, access string, p ProfileUpdate) error {
	return c.do(ctx, http.MethodPatch, "/auth/edit", access, p, nil)
}

func (c *Client) ChangePassword(ctx context.Context, access, oldPassword, newPassword, confirm string) error {
	return c.do(ctx, http.MethodPost, "/auth/change_password", access, map[string]string{
		"old_password":         oldPassword,
		"new_password":         newPassword,
		"confirm_new_password": confirm,
	}, nil)
}

// RegisterDevice registers a push token for the user
func (c *Client) RegisterDevice(ctx context.Context, access, token, platform string, userID int) error {
	return c.do(ctx, http.MethodPost, "/mobcash/devices/", access, map[string]any{
		"registration_id": token,
		"type":            platform,
		"user_id":         userID,
	}, nil)
}

func (c *Client) DeleteDevice(ctx context.Context, access, token string) error {
	return c.do(ctx, http.MethodDelete, "/mobcash/devices/"+token+"/", access, nil, nil)
}
