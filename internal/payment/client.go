package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client talks to the provider's REST checkout API.  Requests carry a
// bounded timeout and mutating calls are issued exactly once; retry
// policy is left to human operators because a blind retry of a charge
// or refund can move money twice.
type Client struct {
	baseURL    string
	apiKey     string
	successURL string
	cancelURL  string
	http       *http.Client
}

// NewClient builds a Client.  successURL and cancelURL are where the
// provider redirects the customer after checkout.
func NewClient(baseURL, apiKey, successURL, cancelURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		successURL: successURL,
		cancelURL:  cancelURL,
		http:       &http.Client{Timeout: timeout},
	}
}

// CreateSession opens a checkout session.  Implements Provider.
func (c *Client) CreateSession(ctx context.Context, amount int64, currency string, metadata map[string]string) (Session, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amount, 10))
	form.Set("currency", currency)
	form.Set("success_url", c.successURL)
	form.Set("cancel_url", c.cancelURL)
	for k, v := range metadata {
		form.Set("metadata["+k+"]", v)
	}
	var s Session
	if err := c.post(ctx, "/v1/checkout/sessions", form, &s); err != nil {
		return Session{}, err
	}
	return s, nil
}

// ExpireSession voids an unpaid session.  Implements Provider.
func (c *Client) ExpireSession(ctx context.Context, sessionID string) error {
	return c.post(ctx, "/v1/checkout/sessions/"+url.PathEscape(sessionID)+"/expire", url.Values{}, nil)
}

// CreateRefund refunds amount against a transaction.  Implements Provider.
func (c *Client) CreateRefund(ctx context.Context, transactionID string, amount int64, metadata map[string]string) (Refund, error) {
	form := url.Values{}
	form.Set("transaction_id", transactionID)
	form.Set("amount", strconv.FormatInt(amount, 10))
	for k, v := range metadata {
		form.Set("metadata["+k+"]", v)
	}
	var r Refund
	if err := c.post(ctx, "/v1/refunds", form, &r); err != nil {
		return Refund{}, err
	}
	return r, nil
}

// apiError mirrors the provider's error body.
type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) post(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("payment: provider call %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("payment: reading provider response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var e apiError
		if json.Unmarshal(body, &e) == nil && e.Error.Message != "" {
			return fmt.Errorf("payment: provider %s returned %d: %s (%s)", path, resp.StatusCode, e.Error.Message, e.Error.Code)
		}
		return fmt.Errorf("payment: provider %s returned %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("payment: decoding provider response: %w", err)
	}
	return nil
}

var _ Provider = (*Client)(nil)
