// Package remote is the HTTP client for the Gocha order services: the query
// service that serves full order snapshots and the command service that
// accepts status updates.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gocha/internal/models"
)

const defaultTimeout = 10 * time.Second

// Client talks to the order query and command services.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	log        *zap.Logger
}

// NewClient creates a client for the service at baseURL. The token, when
// non-empty, is attached as a bearer credential; the session it represents is
// established elsewhere.
func NewClient(baseURL, token string, timeout time.Duration, log *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		token:      token,
		log:        log.With(zap.String("component", "remote")),
	}
}

type snapshotEnvelope struct {
	Orders []models.OrderPayload `json:"orders"`
}

// FetchOrders retrieves the full order list for a venue. Any non-2xx
// response or transport error is a failure; there is no partial result.
func (c *Client) FetchOrders(ctx context.Context, venueID string) ([]models.OrderPayload, error) {
	u := fmt.Sprintf("%s/orders?venue=%s", c.baseURL, url.QueryEscape(venueID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	c.decorate(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch orders: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch orders: unexpected status code %d", resp.StatusCode)
	}

	var envelope snapshotEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("fetch orders: decode response: %w", err)
	}
	return envelope.Orders, nil
}

// UpdateStatus issues the status-update command for one order. Every request
// carries a fresh X-Request-ID so retries are traceable server-side.
func (c *Client) UpdateStatus(ctx context.Context, orderID string, status models.Status) error {
	body, err := json.Marshal(map[string]models.Status{"status": status})
	if err != nil {
		return err
	}

	u := fmt.Sprintf("%s/orders/%s/status", c.baseURL, url.PathEscape(orderID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, u, bytes.NewReader(body))
	if err != nil {
		return err
	}
	c.decorate(req)
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Warn("status command rejected",
			zap.String("order_id", orderID),
			zap.Int("code", resp.StatusCode),
			zap.ByteString("body", detail))
		return fmt.Errorf("update status: unexpected status code %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) decorate(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
