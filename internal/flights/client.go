package flights

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/yegors/driverops/pkg/logger"
)

// StatusError is returned when OpenSky answers with a non-2xx status
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Failed to fetch flight data: unexpected status code %d", e.StatusCode)
}

type statesResponse struct {
	Time   int64   `json:"time"`
	States [][]any `json:"states"`
}

// Client fetches state vectors from the OpenSky REST API
type Client struct {
	config     Config
	httpClient *http.Client
	tokens     *TokenManager // nil means anonymous
	limiter    *rate.Limiter // nil means unlimited
	logger     *logger.Logger
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTokenManager authenticates requests with the given token source
func WithTokenManager(tm *TokenManager) ClientOption {
	return func(c *Client) {
		c.tokens = tm
	}
}

// NewClient creates a new OpenSky client. If the config names a credentials
// file that cannot be loaded the client proceeds anonymously.
func NewClient(config Config, log *logger.Logger, opts ...ClientOption) *Client {
	c := &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.RequestTimeoutSeconds) * time.Second,
		},
		logger: log.Named("flights-client"),
	}

	if config.MinRequestIntervalSeconds > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Duration(config.MinRequestIntervalSeconds)*time.Second), 1)
	}

	if config.CredentialsPath != "" {
		creds, err := LoadCredentials(config.CredentialsPath)
		if err != nil {
			c.logger.Warn("OpenSky credentials unavailable - proceeding as anonymous (rate limits may apply)",
				logger.String("path", config.CredentialsPath),
				logger.Error(err))
		} else {
			c.tokens = NewTokenManager(*creds, config.TokenURL, nil)
		}
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) statesURL() string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	q := url.Values{}
	q.Set("lamin", f(c.config.BBox.LaMin))
	q.Set("lomin", f(c.config.BBox.LoMin))
	q.Set("lamax", f(c.config.BBox.LaMax))
	q.Set("lomax", f(c.config.BBox.LoMax))
	return strings.TrimRight(c.config.APIBaseURL, "/") + "/states/all?" + q.Encode()
}

// FetchStates fetches the aircraft currently inside the configured bounding box.
// A response with no states yields an empty slice.
func (c *Client) FetchStates(ctx context.Context) ([]RawAircraftState, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for opensky rate limit: %w", err)
		}
	}

	urlStr := c.statesURL()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenSky request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			// Anonymous access still works, only with tighter limits
			c.logger.Warn("Failed to obtain OpenSky token, falling back to anonymous", logger.Error(err))
		} else {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	c.logger.Debug("Fetching OpenSky states", logger.String("url", urlStr))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute opensky request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Error("Unexpected OpenSky status code",
			logger.Int("status_code", resp.StatusCode),
			logger.String("body", string(body)))
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	var osResp statesResponse
	if err := json.NewDecoder(resp.Body).Decode(&osResp); err != nil {
		return nil, fmt.Errorf("failed to parse opensky JSON: %w", err)
	}

	states := make([]RawAircraftState, 0, len(osResp.States))
	for _, s := range osResp.States {
		states = append(states, decodeState(s))
	}
	return states, nil
}

// decodeState reads the positional OpenSky tuple. Missing or mistyped
// fields fall back to zero values or "N/A".
func decodeState(s []any) RawAircraftState {
	str := func(i int) string {
		if i < len(s) {
			if v, ok := s[i].(string); ok {
				return v
			}
		}
		return ""
	}
	num := func(i int) (float64, bool) {
		if i < len(s) {
			if v, ok := s[i].(float64); ok {
				return v, true
			}
		}
		return 0, false
	}

	raw := RawAircraftState{
		ICAO24:        str(0),
		Callsign:      str(1),
		OriginCountry: str(2),
		Altitude:      NotAvailable,
		Velocity:      NotAvailable,
	}
	raw.Longitude, _ = num(5)
	raw.Latitude, _ = num(6)
	if alt, ok := num(7); ok {
		// Truncate so a reading just under a threshold stays under it
		raw.Altitude = fmt.Sprintf("%.0f m", math.Floor(alt))
	}
	if len(s) > 8 {
		raw.OnGround, _ = s[8].(bool)
	}
	if vel, ok := num(9); ok {
		raw.Velocity = fmt.Sprintf("%.0f m/s", math.Floor(vel))
	}
	return raw
}
