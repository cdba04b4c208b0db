// Package dashboard assembles every data source into the driver's view and
// keeps it fresh.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/yegors/driverops/internal/advisor"
	"github.com/yegors/driverops/internal/earnings"
	"github.com/yegors/driverops/internal/flights"
	"github.com/yegors/driverops/internal/recommend"
	"github.com/yegors/driverops/internal/weather"
	"github.com/yegors/driverops/internal/websocket"
	"github.com/yegors/driverops/pkg/logger"
)

// WeatherSource is the weather poller as seen by the dashboard
type WeatherSource interface {
	Snapshot() weather.Snapshot
	Refresh(ctx context.Context) (weather.Snapshot, error)
	Subscribe(fn func(weather.Snapshot))
}

// FlightSource is the flight poller as seen by the dashboard
type FlightSource interface {
	Snapshot() flights.Snapshot
	Refresh(ctx context.Context) (flights.Snapshot, error)
	Subscribe(fn func(flights.Snapshot))
}

// Broadcaster pushes messages to connected clients
type Broadcaster interface {
	Broadcast(message *websocket.Message)
}

// Config holds dashboard settings
type Config struct {
	AutoRefreshMinutes int
	Timezone           string
	Earnings           earnings.Config
}

// View is the full dashboard document
type View struct {
	Clock           string           `json:"clock"`
	Date            string           `json:"date"`
	LastUpdated     time.Time        `json:"last_updated"`
	UpdatedAgo      string           `json:"updated_ago"`
	Weather         weather.Snapshot `json:"weather"`
	Flights         flights.Snapshot `json:"flights"`
	Recommendations []recommend.Zone `json:"recommendations"`
	Earnings        earnings.Summary `json:"earnings"`
	Tip             advisor.Tip      `json:"tip"`
}

// Dashboard owns the refresh schedule and builds views
type Dashboard struct {
	weather  WeatherSource
	flights  FlightSource
	advisor  *advisor.Advisor
	hub      Broadcaster
	config   Config
	location *time.Location
	logger   *logger.Logger
	now      func() time.Time

	mu          sync.RWMutex
	lastUpdated time.Time

	// Service lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a dashboard. hub may be nil when nothing is pushed.
func New(config Config, ws WeatherSource, fs FlightSource, adv *advisor.Advisor, hub Broadcaster, log *logger.Logger) *Dashboard {
	return &Dashboard{
		weather:  ws,
		flights:  fs,
		advisor:  adv,
		hub:      hub,
		config:   config,
		location: loadLocation(config.Timezone),
		logger:   log.Named("dashboard"),
		now:      time.Now,
	}
}

// loadLocation falls back to fixed UTC+8 when no tz database is available
func loadLocation(name string) *time.Location {
	if name == "" {
		name = "Asia/Singapore"
	}
	if loc, err := time.LoadLocation(name); err == nil {
		return loc
	}
	return time.FixedZone("SGT", 8*60*60)
}

// Start wires poller updates to the hub and begins the auto-refresh loop
func (d *Dashboard) Start(ctx context.Context) error {
	if d.config.AutoRefreshMinutes <= 0 {
		return fmt.Errorf("auto_refresh_minutes must be greater than 0")
	}

	d.logger.Info("Starting dashboard",
		logger.Int("auto_refresh_minutes", d.config.AutoRefreshMinutes),
		logger.String("timezone", d.location.String()))

	if d.hub != nil {
		d.weather.Subscribe(func(s weather.Snapshot) {
			d.hub.Broadcast(&websocket.Message{Type: websocket.MessageTypeWeatherUpdate, Data: s})
		})
		d.flights.Subscribe(func(s flights.Snapshot) {
			d.hub.Broadcast(&websocket.Message{Type: websocket.MessageTypeFlightsUpdate, Data: s})
		})
	}

	d.mu.Lock()
	d.lastUpdated = d.now()
	d.mu.Unlock()

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.wg.Add(1)
	go d.autoRefresh(d.ctx)
	return nil
}

// Stop ends the auto-refresh loop
func (d *Dashboard) Stop() {
	if d.cancel == nil {
		return
	}
	d.cancel()
	d.wg.Wait()
	d.logger.Info("Dashboard stopped")
}

func (d *Dashboard) autoRefresh(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(time.Duration(d.config.AutoRefreshMinutes) * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.logger.Debug("Auto refresh triggered")
			if err := d.RefreshAll(ctx); err != nil && ctx.Err() == nil {
				d.logger.Warn("Auto refresh finished with errors", logger.Error(err))
			}
		}
	}
}

// RefreshAll refreshes both pollers concurrently and stamps last-updated.
// Each poller keeps its previous data on failure; the joined error is returned.
func (d *Dashboard) RefreshAll(ctx context.Context) error {
	var g errgroup.Group
	var weatherErr, flightsErr error

	g.Go(func() error {
		_, weatherErr = d.weather.Refresh(ctx)
		return nil
	})
	g.Go(func() error {
		_, flightsErr = d.flights.Refresh(ctx)
		return nil
	})
	g.Wait()

	d.mu.Lock()
	d.lastUpdated = d.now()
	d.mu.Unlock()

	err := errors.Join(weatherErr, flightsErr)
	if err == nil {
		d.logger.Info("Dashboard refreshed")
	}
	return err
}

func updatedAgo(last, now time.Time) string {
	if last.IsZero() {
		return "never"
	}
	return humanize.RelTime(last, now, "ago", "from now")
}

// LastUpdated returns when the dashboard was last refreshed
func (d *Dashboard) LastUpdated() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastUpdated
}

// Recommendations ranks zones for the current local hour
func (d *Dashboard) Recommendations() []recommend.Zone {
	arrivals := recommend.NoFlightData
	if fs := d.flights.Snapshot(); fs.Data != nil {
		arrivals = fs.Data.Arrivals
	}
	return recommend.ForHour(d.now().In(d.location).Hour(), arrivals)
}

// Earnings returns the shift summary
func (d *Dashboard) Earnings() earnings.Summary {
	return earnings.Compute(d.config.Earnings)
}

// Snapshot builds the full view
func (d *Dashboard) Snapshot(ctx context.Context) View {
	now := d.now()
	local := now.In(d.location)
	lastUpdated := d.LastUpdated()
	ws := d.weather.Snapshot()
	fs := d.flights.Snapshot()

	in := advisor.Inputs{Hour: local.Hour()}
	if ws.Data != nil {
		in.Impact = &ws.Data.Impact
	}
	if fs.Data != nil {
		in.Flights = fs.Data
	}

	return View{
		Clock:           local.Format("15:04:05"),
		Date:            local.Format("Mon, 2 Jan 2006"),
		LastUpdated:     lastUpdated,
		UpdatedAgo:      updatedAgo(lastUpdated, now),
		Weather:         ws,
		Flights:         fs,
		Recommendations: d.Recommendations(),
		Earnings:        d.Earnings(),
		Tip:             d.advisor.Tip(ctx, in),
	}
}

// HandleMessage answers WebSocket client requests
func (d *Dashboard) HandleMessage(client *websocket.Client, messageType string, data json.RawMessage) error {
	ctx := d.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	switch messageType {
	case websocket.MessageTypeSnapshotRequest:
	case websocket.MessageTypeRefreshRequest:
		if err := d.RefreshAll(ctx); err != nil {
			d.logger.Warn("Client-requested refresh finished with errors", logger.Error(err))
		}
	default:
		return fmt.Errorf("unknown message type %q", messageType)
	}

	if !client.SendMessage(&websocket.Message{Type: websocket.MessageTypeSnapshot, Data: d.Snapshot(ctx)}) {
		return fmt.Errorf("client send buffer full")
	}
	return nil
}
