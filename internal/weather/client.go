package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yegors/driverops/pkg/logger"
)

// StatusError is returned when the weather API answers with a non-2xx status
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Failed to fetch weather data: unexpected status code %d", e.StatusCode)
}

// Client handles HTTP requests to the Open-Meteo API
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a new weather API client
func NewClient(config Config, logger *logger.Logger) *Client {
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.RequestTimeoutSeconds) * time.Second,
		},
		logger: logger.Named("weather-client"),
	}
}

// forecastURL builds the current-weather query for the configured coordinate
func (c *Client) forecastURL() string {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(c.config.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(c.config.Longitude, 'f', -1, 64))
	q.Set("current_weather", "true")
	return strings.TrimRight(c.config.APIBaseURL, "/") + "/v1/forecast?" + q.Encode()
}

// FetchCurrent fetches the current weather for the configured coordinate
func (c *Client) FetchCurrent(ctx context.Context) (*CurrentWeather, error) {
	var result forecastResponse
	if err := c.fetchWithRetry(ctx, c.forecastURL(), &result); err != nil {
		return nil, err
	}

	if result.CurrentWeather == nil {
		return nil, fmt.Errorf("weather response did not contain current_weather")
	}

	return result.CurrentWeather, nil
}

// fetchWithRetry performs the request with optional retries and exponential backoff
func (c *Client) fetchWithRetry(ctx context.Context, urlStr string, target any) error {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoffDuration := time.Duration(500*(1<<uint(attempt-1))) * time.Millisecond
			c.logger.Info("Retrying weather data fetch",
				logger.Int("attempt", attempt),
				logger.String("backoff", backoffDuration.String()))

			select {
			case <-time.After(backoffDuration):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = c.fetchOnce(ctx, urlStr, target)
		if lastErr == nil {
			if attempt > 0 {
				c.logger.Info("Successfully fetched weather data after retries",
					logger.Int("attempts_needed", attempt+1))
			}
			return nil
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.logger.Warn("Weather API request failed",
			logger.Error(lastErr),
			logger.Int("attempt", attempt+1),
			logger.Int("max_attempts", c.config.MaxRetries+1))
	}

	return lastErr
}

func (c *Client) fetchOnce(ctx context.Context, urlStr string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("Fetching current weather", logger.String("url", urlStr))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error making request to weather API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("error decoding weather data: %w", err)
	}
	return nil
}
