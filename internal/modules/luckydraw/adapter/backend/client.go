// Package backend is the HTTP client for the forum backend's lottery
// endpoints.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/frankieli/forum_product/internal/modules/luckydraw/domain"
)

// Client implements the catalog, draw, settlement and order accessors
// against the forum backend
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a backend client
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// statusError carries a non-200 backend status. Only LatestOrder gives
// a status a domain meaning (404 means "no paid order yet"); everywhere
// else it stays a transport failure.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("backend returned status %d", e.code)
}

// envelope is the backend's standard response wrapper
type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// FetchCatalog fetches and normalizes the prize pool
func (c *Client) FetchCatalog(ctx context.Context) ([]domain.Prize, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/v1/lottery/gifts", nil)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}

	var raws []map[string]interface{}
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("fetch catalog: decode gift list: %w", err)
	}

	return NormalizeCatalog(raws), nil
}

// Draw performs the single-draw call; the server picks the prize
func (c *Client) Draw(ctx context.Context, userID int64) (domain.Prize, error) {
	data, err := c.do(ctx, http.MethodPost, "/api/v1/lottery/draw", map[string]interface{}{
		"user_id": userID,
	})
	if err != nil {
		return domain.Prize{}, fmt.Errorf("draw: %w", err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.Prize{}, fmt.Errorf("draw: decode prize: %w", err)
	}

	prize, ok := NormalizePrize(raw)
	if !ok {
		return domain.Prize{}, fmt.Errorf("draw: unparseable prize payload")
	}
	return prize, nil
}

// Pay commits the drawn prize
func (c *Client) Pay(ctx context.Context, userID int64, giftID string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/v1/lottery/pay", map[string]interface{}{
		"user_id": userID,
		"gift_id": giftID,
	})
	if err != nil {
		return fmt.Errorf("pay: %w", err)
	}
	return nil
}

// Abandon releases the drawn prize back to the pool
func (c *Client) Abandon(ctx context.Context, userID int64, giftID string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/v1/lottery/giveup", map[string]interface{}{
		"user_id": userID,
		"gift_id": giftID,
	})
	if err != nil {
		return fmt.Errorf("abandon: %w", err)
	}
	return nil
}

// LatestOrder fetches the authoritative latest paid order. An empty
// result maps to domain.ErrOrderNotFound, kept distinct from transport
// failures.
func (c *Client) LatestOrder(ctx context.Context, userID int64) (*domain.LotteryOrder, error) {
	data, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/lottery/orders/latest?user_id=%d", userID), nil)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusNotFound {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("latest order: %w", err)
	}

	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, domain.ErrOrderNotFound
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("latest order: decode order: %w", err)
	}

	order, ok := NormalizeOrder(raw)
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

// do issues one backend request and unwraps the response envelope
func (c *Client) do(ctx context.Context, method, path string, body interface{}) (json.RawMessage, error) {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token := domain.TokenFrom(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode}
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode response envelope: %w", err)
	}
	if env.Code != 0 {
		return nil, fmt.Errorf("backend error %d: %s", env.Code, env.Msg)
	}

	return env.Data, nil
}
