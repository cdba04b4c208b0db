package zones

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yegors/driverops/pkg/logger"
)

// Client talks to an external zone-management API. It implements Store.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a zone API client for baseURL
func NewClient(baseURL string, timeout time.Duration, log *logger.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     log.Named("zones-client"),
	}
}

// Create posts a new zone
func (c *Client) Create(ctx context.Context, in ZoneInput) (Envelope[Zone], error) {
	var out Envelope[Zone]
	err := c.do(ctx, http.MethodPost, "/api/zones", in, &out, FallbackCreate)
	return out, err
}

// List fetches every zone
func (c *Client) List(ctx context.Context) (Envelope[[]Zone], error) {
	var out Envelope[[]Zone]
	err := c.do(ctx, http.MethodGet, "/api/zones", nil, &out, FallbackList)
	return out, err
}

// Get fetches one zone
func (c *Client) Get(ctx context.Context, id string) (Envelope[Zone], error) {
	var out Envelope[Zone]
	err := c.do(ctx, http.MethodGet, "/api/zones/"+url.PathEscape(id), nil, &out, FallbackGet)
	return out, err
}

// Update sends a partial update
func (c *Client) Update(ctx context.Context, id string, patch ZonePatch) (Envelope[Zone], error) {
	var out Envelope[Zone]
	err := c.do(ctx, http.MethodPut, "/api/zones/"+url.PathEscape(id), patch, &out, FallbackUpdate)
	return out, err
}

// Delete removes a zone
func (c *Client) Delete(ctx context.Context, id string) (Envelope[Zone], error) {
	var out Envelope[Zone]
	err := c.do(ctx, http.MethodDelete, "/api/zones/"+url.PathEscape(id), nil, &out, FallbackDelete)
	return out, err
}

// ListActive fetches zones with is_active set
func (c *Client) ListActive(ctx context.Context) (Envelope[[]Zone], error) {
	var out Envelope[[]Zone]
	err := c.do(ctx, http.MethodGet, "/api/zones/active/list", nil, &out, FallbackActive)
	return out, err
}

// do performs one request. Any failure comes back as *APIError.
func (c *Client) do(ctx context.Context, method, path string, body, target any, fallback string) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return &APIError{Message: fallback, Err: fmt.Errorf("failed to encode request: %w", err)}
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &APIError{Message: fallback, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("Zone API request",
		logger.String("method", method),
		logger.String("path", path))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Message: fallback, Err: fmt.Errorf("zone API request failed: %w", err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: fallback, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: fallback}
		var env struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &env) == nil && env.Message != "" {
			apiErr.Message = env.Message
		}
		if resp.StatusCode == http.StatusNotFound {
			apiErr.Err = ErrNotFound
		}
		c.logger.Warn("Zone API returned an error",
			logger.String("method", method),
			logger.String("path", path),
			logger.Int("status_code", resp.StatusCode),
			logger.String("message", apiErr.Message))
		return apiErr
	}

	if err := json.Unmarshal(raw, target); err != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: fallback, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}
