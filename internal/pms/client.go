// Package pms talks to the external property-management system and
// normalizes its reservation payloads into local bookings.
package pms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Raw is one reservation record as delivered by the PMS. Key names vary
// between PMS versions and booking channels, so access goes through the
// resolver helpers in normalize.go instead of a fixed struct.
type Raw map[string]any

// Client fetches reservations from the PMS REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a PMS client. The timeout bounds the whole fetch; a
// slow upstream fails the refresh pass rather than stalling the scheduler.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// FetchReservations retrieves the raw reservation records in the
// [from, to] date window (YYYY-MM-DD, inclusive).
func (c *Client) FetchReservations(ctx context.Context, from, to string) ([]Raw, error) {
	u := fmt.Sprintf("%s/v1/reservations?from=%s&to=%s",
		c.baseURL, url.QueryEscape(from), url.QueryEscape(to))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building reservations request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching reservations: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reservations endpoint returned status %d", resp.StatusCode)
	}

	var payload struct {
		Reservations []Raw `json:"reservations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding reservations: %w", err)
	}

	return payload.Reservations, nil
}
