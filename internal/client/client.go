// Package client talks to the stratowatch daemon's HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/fentz26/stratowatch/internal/chart"
	"github.com/fentz26/stratowatch/internal/models"
)

// DefaultClientTimeout is the default timeout for API requests.
const DefaultClientTimeout = 10 * time.Second

// ErrAPI is wrapped by errors for non-2xx API responses.
var ErrAPI = errors.New("API error")

// HealthResponse is the daemon's /health payload.
type HealthResponse struct {
	OK      bool   `json:"ok"`
	DB      string `json:"db"`
	Version string `json:"version"`
	Time    string `json:"time"`
}

// PushRequest is the body of POST /compute/snapshots.
type PushRequest struct {
	Groups []models.GroupCounts `json:"groups"`
}

// PushResponse reports whether a pushed snapshot was stored.
type PushResponse struct {
	Stored bool   `json:"stored"`
	ID     string `json:"id,omitempty"`
}

// Client wraps HTTP calls to the stratowatch API.
type Client struct {
	baseURL    string
	groupID    string
	httpClient *http.Client
}

// NewClient creates a new API client with timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: DefaultClientTimeout,
		},
	}
}

// ForGroup returns a client whose FetchHistory reads one group's history.
func (c *Client) ForGroup(groupID string) *Client {
	cp := *c
	cp.groupID = groupID
	return &cp
}

// BaseURL returns the API address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// StateHistory fetches the instance state history. A nil limitSec requests
// the whole history; an empty groupID requests totals.
func (c *Client) StateHistory(ctx context.Context, limitSec *int, groupID string) ([]models.HistoryPoint, error) {
	path := "/compute/state_history/"
	if groupID != "" {
		path = "/compute/groups/" + url.PathEscape(groupID) + "/state_history/"
	}
	if limitSec != nil {
		path += "?limit=" + strconv.Itoa(*limitSec)
	}

	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var points []models.HistoryPoint
	if err := json.Unmarshal(body, &points); err != nil {
		return nil, fmt.Errorf("decode state history: %w", err)
	}
	return points, nil
}

// FetchHistory implements chart.Fetcher.
func (c *Client) FetchHistory(ctx context.Context, limitSec *int) ([]chart.Snapshot, error) {
	return c.StateHistory(ctx, limitSec, c.groupID)
}

// PushSnapshot submits group counts. The daemon stores them only if they
// differ from the latest snapshot.
func (c *Client) PushSnapshot(ctx context.Context, groups []models.GroupCounts) (*PushResponse, error) {
	body, err := c.do(ctx, http.MethodPost, "/compute/snapshots", PushRequest{Groups: groups})
	if err != nil {
		return nil, err
	}

	var resp PushResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode push response: %w", err)
	}
	return &resp, nil
}

// CheckHealth checks if the daemon is healthy. Unlike other calls it returns
// the parsed response even on non-200 statuses alongside the error.
func (c *Client) CheckHealth(ctx context.Context) (*HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var health HealthResponse
	if err := json.Unmarshal(body, &health); err != nil {
		return nil, fmt.Errorf("%w (%d): %s", ErrAPI, resp.StatusCode, string(body))
	}
	if resp.StatusCode != http.StatusOK {
		return &health, fmt.Errorf("%w (%d): daemon unhealthy", ErrAPI, resp.StatusCode)
	}
	return &health, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w (%d): %s", ErrAPI, resp.StatusCode, string(bytes.TrimSpace(body)))
	}
	return body, nil
}
