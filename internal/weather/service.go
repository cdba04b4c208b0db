package weather

import (
	"context"
	"fmt"
	"time"

	"github.com/yegors/driverops/internal/poller"
	"github.com/yegors/driverops/pkg/logger"
)

// Snapshot is the weather poller's view state
type Snapshot = poller.Snapshot[Report]

// Service polls the current weather and derives its demand impact
type Service struct {
	config Config
	client *Client
	poller *poller.Poller[Report]
	logger *logger.Logger
}

// NewService creates a new weather service
func NewService(config Config, log *logger.Logger) *Service {
	if len(config.Regions) == 0 {
		config.Regions = DefaultRegions()
	}

	s := &Service{
		config: config,
		client: NewClient(config, log),
		logger: log.Named("weather-service"),
	}
	interval := time.Duration(config.RefreshIntervalMinutes) * time.Minute
	s.poller = poller.New("weather", interval, s.fetch, log)
	return s
}

func (s *Service) fetch(ctx context.Context) (Report, error) {
	cw, err := s.client.FetchCurrent(ctx)
	if err != nil {
		return Report{}, err
	}

	impact := Assess(*cw, s.config.Regions)

	s.logger.Info("Weather updated",
		logger.Float64("temperature", cw.Temperature),
		logger.Float64("wind_kmh", cw.WindSpeed),
		logger.Int("weather_code", cw.WeatherCode),
		logger.String("severity", string(impact.Severity)))

	return Report{Current: *cw, Impact: impact, FetchedAt: time.Now().UTC()}, nil
}

// Start begins polling
func (s *Service) Start(ctx context.Context) error {
	s.logger.Info("Starting weather service",
		logger.Float64("latitude", s.config.Latitude),
		logger.Float64("longitude", s.config.Longitude),
		logger.Int("refresh_interval_minutes", s.config.RefreshIntervalMinutes))
	return s.poller.Start(ctx)
}

// Stop halts polling
func (s *Service) Stop() {
	s.poller.Stop()
}

// Refresh triggers an immediate fetch and re-arms the interval
func (s *Service) Refresh(ctx context.Context) (Snapshot, error) {
	s.logger.Info("Manual weather refresh triggered")
	return s.poller.Refresh(ctx)
}

// Snapshot returns the current weather state
func (s *Service) Snapshot() Snapshot {
	return s.poller.Snapshot()
}

// Subscribe registers a callback for every applied fetch
func (s *Service) Subscribe(fn func(Snapshot)) {
	s.poller.Subscribe(fn)
}

// ValidateConfig validates the weather service configuration
func ValidateConfig(config Config) error {
	if config.RefreshIntervalMinutes <= 0 {
		return fmt.Errorf("refresh_interval_minutes must be greater than 0")
	}
	if config.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("request_timeout_seconds must be greater than 0")
	}
	if config.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be 0 or greater")
	}
	if config.APIBaseURL == "" {
		return fmt.Errorf("api_base_url cannot be empty")
	}
	if config.Latitude < -90 || config.Latitude > 90 || config.Longitude < -180 || config.Longitude > 180 {
		return fmt.Errorf("invalid coordinate %f,%f", config.Latitude, config.Longitude)
	}
	return nil
}
