// Package client holds the pieces a POS terminal runs against the licensing
// API: a status client, a local countdown display, and the threshold alerter
// that tears the session down on expiry.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// LicenseStatus mirrors the status endpoint response.
type LicenseStatus struct {
	TenantID         string    `json:"tenant_id"`
	LicenseKey       string    `json:"license_key"`
	ExpiryDate       time.Time `json:"expiry_date"`
	IsActive         bool      `json:"is_active"`
	MinutesRemaining int64     `json:"minutes_remaining"`
}

// StatusFetcher is what Countdown and Alerter poll against.
type StatusFetcher interface {
	Status(ctx context.Context) (*LicenseStatus, error)
}

type Client struct {
	baseURL  string
	tenantID string
	token    string
	http     *http.Client
}

func New(baseURL, tenantID, token string) *Client {
	return &Client{
		baseURL:  baseURL,
		tenantID: tenantID,
		token:    token,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Status(ctx context.Context) (*LicenseStatus, error) {
	url := fmt.Sprintf("%s/v1/licenses/%s", c.baseURL, c.tenantID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("license status request failed: %s", resp.Status)
	}

	var status LicenseStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode license status: %w", err)
	}

	return &status, nil
}
