package dashboard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/driverops/internal/advisor"
	"github.com/yegors/driverops/internal/earnings"
	"github.com/yegors/driverops/internal/flights"
	"github.com/yegors/driverops/internal/weather"
	"github.com/yegors/driverops/internal/websocket"
	"github.com/yegors/driverops/pkg/logger"
)

type fakeSource[T any] struct {
	mu        sync.Mutex
	snap      T
	err       error
	refreshes atomic.Int64
	listeners []func(T)
	delay     time.Duration
}

func (f *fakeSource[T]) Snapshot() T {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeSource[T]) Refresh(ctx context.Context) (T, error) {
	f.refreshes.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.Snapshot(), f.err
}

func (f *fakeSource[T]) Subscribe(fn func(T)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, fn)
}

func (f *fakeSource[T]) emit(s T) {
	f.mu.Lock()
	f.snap = s
	listeners := append([]func(T){}, f.listeners...)
	f.mu.Unlock()
	for _, fn := range listeners {
		fn(s)
	}
}

type weatherSource = fakeSource[weather.Snapshot]
type flightSource = fakeSource[flights.Snapshot]

type recordingHub struct {
	mu       sync.Mutex
	messages []*websocket.Message
}

func (h *recordingHub) Broadcast(m *websocket.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, m)
}

func (h *recordingHub) types() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.messages))
	for _, m := range h.messages {
		out = append(out, m.Type)
	}
	return out
}

func testConfig() Config {
	return Config{AutoRefreshMinutes: 5, Timezone: "Asia/Singapore", Earnings: earnings.DefaultConfig()}
}

func newTestDashboard(ws *weatherSource, fs *flightSource, hub Broadcaster) *Dashboard {
	d := New(testConfig(), ws, fs, advisor.New(nil, advisor.Config{}, logger.NewNop()), hub, logger.NewNop())
	// 19:30 in Singapore
	d.now = func() time.Time { return time.Date(2025, 10, 27, 11, 30, 0, 0, time.UTC) }
	return d
}

func TestSnapshotBeforeFirstFetch(t *testing.T) {
	d := newTestDashboard(&weatherSource{}, &flightSource{}, nil)
	v := d.Snapshot(context.Background())

	assert.Equal(t, "19:30:00", v.Clock)
	assert.Nil(t, v.Weather.Data)
	assert.Nil(t, v.Flights.Data)
	assert.Equal(t, "5 wide-body arrivals in 45min", v.Recommendations[0].Reason)
	assert.Equal(t, 127.37, v.Earnings.Net)
	assert.Equal(t, advisor.SourceRules, v.Tip.Source)
	assert.Equal(t, "never", v.UpdatedAgo)
}

func TestSnapshotUsesLiveData(t *testing.T) {
	impact := weather.Assess(weather.CurrentWeather{WeatherCode: 95, WindSpeed: 10}, weather.DefaultRegions())
	ws := &weatherSource{snap: weather.Snapshot{Data: &weather.Report{Impact: impact}}}
	fs := &flightSource{snap: flights.Snapshot{Data: &flights.Report{Arrivals: 4}}}

	d := newTestDashboard(ws, fs, nil)
	v := d.Snapshot(context.Background())

	assert.Equal(t, "4 arrivals in 45min", v.Recommendations[0].Reason)
	// 19:00 is night and commute peak
	assert.Len(t, v.Recommendations, 5)
	assert.Contains(t, v.Tip.Text, "Position near Changi")
}

func TestRefreshAllRunsConcurrently(t *testing.T) {
	ws := &weatherSource{delay: 100 * time.Millisecond}
	fs := &flightSource{delay: 100 * time.Millisecond}
	d := newTestDashboard(ws, fs, nil)

	start := time.Now()
	require.NoError(t, d.RefreshAll(context.Background()))
	assert.Less(t, time.Since(start), 190*time.Millisecond)

	assert.Equal(t, int64(1), ws.refreshes.Load())
	assert.Equal(t, int64(1), fs.refreshes.Load())
	assert.Equal(t, d.now(), d.LastUpdated())
}

func TestUpdatedAgo(t *testing.T) {
	now := time.Date(2025, 10, 27, 11, 30, 0, 0, time.UTC)
	assert.Equal(t, "never", updatedAgo(time.Time{}, now))
	assert.Equal(t, "now", updatedAgo(now, now))
	assert.Equal(t, "3 minutes ago", updatedAgo(now.Add(-3*time.Minute), now))
}

func TestRefreshAllJoinsErrors(t *testing.T) {
	weatherErr := errors.New("weather down")
	ws := &weatherSource{err: weatherErr}
	fs := &flightSource{}
	d := newTestDashboard(ws, fs, nil)

	err := d.RefreshAll(context.Background())
	assert.ErrorIs(t, err, weatherErr)
	assert.Equal(t, int64(1), fs.refreshes.Load())
	assert.False(t, d.LastUpdated().IsZero())
}

func TestStartPushesUpdates(t *testing.T) {
	ws, fs := &weatherSource{}, &flightSource{}
	hub := &recordingHub{}
	d := newTestDashboard(ws, fs, hub)

	require.NoError(t, d.Start(context.Background()))
	defer d.Stop()

	ws.emit(weather.Snapshot{Sequence: 1})
	fs.emit(flights.Snapshot{Sequence: 1})

	assert.Equal(t, []string{websocket.MessageTypeWeatherUpdate, websocket.MessageTypeFlightsUpdate}, hub.types())
}

func TestStartRejectsZeroInterval(t *testing.T) {
	d := newTestDashboard(&weatherSource{}, &flightSource{}, nil)
	d.config.AutoRefreshMinutes = 0
	assert.Error(t, d.Start(context.Background()))
}
