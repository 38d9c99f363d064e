package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"

	"mobcash_portal/internal/domain"
)

// TransactionRequest is the body of the deposit and withdrawal creation endpoints
type TransactionRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	PhoneNumber    string          `json:"phone_number"`
	App            string          `json:"app"`
	UserAppID      string          `json:"user_app_id"`
	Network        int             `json:"network"`
	WithdriwalCode string          `json:"withdriwal_code,omitempty"`
	Source         string          `json:"source"`
}

// BonusRequest is the body of POST /mobcash/transaction-bonus
type BonusRequest struct {
	App       string          `json:"app"`
	Amount    decimal.Decimal `json:"amount"`
	UserAppID string          `json:"user_app_id"`
}

// The backend expects amounts as JSON numbers; portal responses keep decimals quoted.

func (r TransactionRequest) MarshalJSON() ([]byte, error) {
	type plain TransactionRequest
	return json.Marshal(struct {
		plain
		Amount json.Number `json:"amount"`
	}{plain(r), json.Number(r.Amount.String())})
}

func (r BonusRequest) MarshalJSON() ([]byte, error) {
	type plain BonusRequest
	return json.Marshal(struct {
		plain
		Amount json.Number `json:"amount"`
	}{plain(r), json.Number(r.Amount.String())})
}

// HistoryFilter narrows GET /mobcash/transaction-history; zero values are omitted
type HistoryFilter struct {
	Page      int
	PageSize  int
	TypeTrans domain.TransactionType
	Status    domain.TransactionStatus
	Source    string
	Network   int
	Search    string
}

func (f HistoryFilter) query() url.Values {
	q := url.Values{}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(f.PageSize))
	}
	if f.TypeTrans != "" {
		q.Set("type_trans", string(f.TypeTrans))
	}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.Source != "" {
		q.Set("source", f.Source)
	}
	if f.Network > 0 {
		q.Set("network", strconv.Itoa(f.Network))
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	return q
}

// Encode returns the canonical query string of the filter
func (f HistoryFilter) Encode() string {
	return f.query().Encode()
}

func (c *Client) TransactionHistory(ctx context.Context, access string, f HistoryFilter) (*domain.Page[domain.Transaction], error) {
	var out domain.Page[domain.Transaction]
	if err := c.do(ctx, http.MethodGet, withQuery("/mobcash/transaction-history", f.query()), access, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateDeposit(ctx context.Context, access string, r TransactionRequest) (*domain.Transaction, error) {
	r.WithdriwalCode = ""
	return c.createTransaction(ctx, access, "/mobcash/transaction-deposit", r)
}

func (c *Client) CreateWithdrawal(ctx context.Context, access string, r TransactionRequest) (*domain.Transaction, error) {
	return c.createTransaction(ctx, access, "/mobcash/transaction-withdrawal", r)
}

func (c *Client) CreateBonusDeposit(ctx context.Context, access string, r BonusRequest) (*domain.Transaction, error) {
	var out domain.Transaction
	if err := c.do(ctx, http.MethodPost, "/mobcash/transaction-bonus", access, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) createTransaction(ctx context.Context, access, path string, r TransactionRequest) (*domain.Transaction, error) {
	var out domain.Transaction
	if err := c.do(ctx, http.MethodPost, path, access, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LastTransaction returns the most recent transaction of the user, or ErrNotFound
func (c *Client) LastTransaction(ctx context.Context, access string, t domain.TransactionType) (*domain.Transaction, error) {
	page, err := c.TransactionHistory(ctx, access, HistoryFilter{Page: 1, PageSize: 1, TypeTrans: t})
	if err != nil {
		return nil, err
	}
	if len(page.Results) == 0 {
		return nil, ErrNotFound
	}
	return &page.Results[0], nil
}

// FinalizeTransaction confirms a pending transaction by reference
func (c *Client) FinalizeTransaction(ctx context.Context, access, reference string) (*domain.Transaction, error) {
	var out domain.Transaction
	path := "/mobcash/transaction/" + url.PathEscape(reference) + "/finalize"
	if err := c.do(ctx, http.MethodPost, path, access, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CancelTransaction rejects a pending transaction by reference
func (c *Client) CancelTransaction(ctx context.Context, access, reference string) error {
	path := "/mobcash/transaction/" + url.PathEscape(reference) + "/cancel"
	return c.do(ctx, http.MethodPost, path, access, nil, nil)
}
