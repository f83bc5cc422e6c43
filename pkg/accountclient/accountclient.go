package accountclient

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Retries int
}

// Client talks to the account service for balances and admin permissions.
type Client struct {
	http *resty.Client
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		http.SetHeader("X-API-Key", cfg.APIKey)
	}
	return &Client{http: http}
}

func (c *Client) GetAccountBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	var out balanceResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("userID", userID).
		SetResult(&out).
		Get("/accounts/{userID}/balance")
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "balance lookup for %s", userID)
	}
	if resp.IsError() {
		return decimal.Zero, errors.Errorf("balance lookup for %s: status %d", userID, resp.StatusCode())
	}
	if ct := resp.Header().Get("Content-Type"); !strings.Contains(ct, "json") {
		return decimal.Zero, errors.Errorf("balance lookup for %s: unexpected content type %q", userID, ct)
	}
	// A missing balance must not read as zero.
	if out.Balance == nil {
		return decimal.Zero, errors.Errorf("balance lookup for %s: response has no balance", userID)
	}
	return *out.Balance, nil
}

type balanceResponse struct {
	UserID  string           `json:"user_id"`
	Balance *decimal.Decimal `json:"balance"`
}

type permissionResponse struct {
	Allowed bool `json:"allowed"`
}

func (c *Client) HasPermission(ctx context.Context, adminID, capability string) (bool, error) {
	var out permissionResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParams(map[string]string{"adminID": adminID, "capability": capability}).
		SetResult(&out).
		Get("/admins/{adminID}/permissions/{capability}")
	if err != nil {
		return false, errors.Wrapf(err, "permission check for %s", adminID)
	}
	if resp.IsError() {
		return false, errors.Errorf("permission check for %s: status %d", adminID, resp.StatusCode())
	}
	return out.Allowed, nil
}
