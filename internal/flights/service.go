package flights

import (
	"context"
	"fmt"
	"time"

	"github.com/yegors/driverops/internal/poller"
	"github.com/yegors/driverops/pkg/logger"
)

// Snapshot is the flight poller's view state
type Snapshot = poller.Snapshot[Report]

// Service polls arrivals near Changi and converts them for display
type Service struct {
	config    Config
	client    *Client
	estimator Estimator
	poller    *poller.Poller[Report]
	logger    *logger.Logger
}

// NewService creates a new flight service. A nil estimator gets a seeded random one.
func NewService(config Config, client *Client, est Estimator, log *logger.Logger) *Service {
	if client == nil {
		client = NewClient(config, log)
	}
	if est == nil {
		est = NewRandomEstimator(config.EstimatorSeed)
	}

	s := &Service{
		config:    config,
		client:    client,
		estimator: est,
		logger:    log.Named("flights-service"),
	}
	interval := time.Duration(config.FetchIntervalSeconds) * time.Second
	s.poller = poller.New("flights", interval, s.fetch, log)
	return s
}

func (s *Service) fetch(ctx context.Context) (Report, error) {
	raw, err := s.client.FetchStates(ctx)
	if err != nil {
		return Report{}, err
	}

	flights := TransformAll(raw, s.estimator)
	total := len(flights)
	if s.config.MaxFlights > 0 && len(flights) > s.config.MaxFlights {
		flights = flights[:s.config.MaxFlights]
	}

	arrivals := 0
	for _, f := range flights {
		if f.Status != StatusLanded {
			arrivals++
		}
	}

	s.logger.Info("Flights updated",
		logger.Int("received", total),
		logger.Int("shown", len(flights)),
		logger.Int("arrivals", arrivals))

	return Report{
		Flights:   flights,
		Count:     len(flights),
		Arrivals:  arrivals,
		Total:     total,
		FetchedAt: time.Now().UTC(),
	}, nil
}

// Start begins polling
func (s *Service) Start(ctx context.Context) error {
	s.logger.Info("Starting flights service",
		logger.Int("fetch_interval_seconds", s.config.FetchIntervalSeconds),
		logger.Float64("lamin", s.config.BBox.LaMin),
		logger.Float64("lomin", s.config.BBox.LoMin),
		logger.Float64("lamax", s.config.BBox.LaMax),
		logger.Float64("lomax", s.config.BBox.LoMax))
	return s.poller.Start(ctx)
}

// Stop halts polling
func (s *Service) Stop() {
	s.poller.Stop()
}

// Refresh triggers an immediate fetch and re-arms the interval
func (s *Service) Refresh(ctx context.Context) (Snapshot, error) {
	s.logger.Info("Manual flights refresh triggered")
	return s.poller.Refresh(ctx)
}

// Snapshot returns the current flight state
func (s *Service) Snapshot() Snapshot {
	return s.poller.Snapshot()
}

// Subscribe registers a callback for every applied fetch
func (s *Service) Subscribe(fn func(Snapshot)) {
	s.poller.Subscribe(fn)
}

// ValidateConfig validates the flight service configuration
func ValidateConfig(config Config) error {
	if config.FetchIntervalSeconds <= 0 {
		return fmt.Errorf("fetch_interval_seconds must be greater than 0")
	}
	if config.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("request_timeout_seconds must be greater than 0")
	}
	if config.APIBaseURL == "" {
		return fmt.Errorf("api_base_url cannot be empty")
	}
	if !config.BBox.Valid() {
		return fmt.Errorf("invalid bounding box %+v", config.BBox)
	}
	if config.MaxFlights < 0 {
		return fmt.Errorf("max_flights must be 0 or greater")
	}
	if config.MinRequestIntervalSeconds < 0 {
		return fmt.Errorf("min_request_interval_seconds must be 0 or greater")
	}
	return nil
}
