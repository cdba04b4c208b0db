package advisor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/driverops/internal/ai"
	"github.com/yegors/driverops/internal/flights"
	"github.com/yegors/driverops/internal/weather"
	"github.com/yegors/driverops/pkg/logger"
)

type fakeProvider struct {
	reply string
	err   error
	calls int
	last  []ai.ChatMessage
}

func (f *fakeProvider) ChatCompletion(ctx context.Context, messages []ai.ChatMessage, config ai.ChatConfig) (string, error) {
	f.calls++
	f.last = messages
	return f.reply, f.err
}

func heavyRain() *weather.Impact {
	impact := weather.Assess(weather.CurrentWeather{WeatherCode: 81, WindSpeed: 22}, weather.DefaultRegions())
	return &impact
}

func busyFlights() *flights.Report {
	list := []flights.DisplayFlight{
		{Terminal: flights.TerminalT3, ExpectedPax: 300, Status: flights.StatusLanding},
		{Terminal: flights.TerminalT3, ExpectedPax: 250, Status: flights.StatusInbound},
		{Terminal: flights.TerminalT1, ExpectedPax: 400, Status: flights.StatusApproaching},
		{Terminal: flights.TerminalT4, ExpectedPax: 150, Status: flights.StatusInbound},
		{Terminal: flights.TerminalT1, ExpectedPax: 100, Status: flights.StatusInbound},
		{Terminal: flights.TerminalT1, ExpectedPax: 900, Status: flights.StatusLanded},
	}
	return &flights.Report{Flights: list, Count: len(list), Arrivals: 5}
}

func TestRuleTipRainFirst(t *testing.T) {
	tip := RuleTip(Inputs{Hour: 12, Impact: heavyRain(), Flights: busyFlights()})
	assert.Equal(t, "Position near Changi before rain starts. Airport demand spikes during heavy rain.", tip)
}

func TestRuleTipBusyArrivals(t *testing.T) {
	tip := RuleTip(Inputs{Hour: 12, Flights: busyFlights()})
	assert.Equal(t, "5 arrivals inbound. Queue at T3, about 550 passengers are on the way.", tip)
}

func TestRuleTipByHour(t *testing.T) {
	assert.Contains(t, RuleTip(Inputs{Hour: 8}), "Woodlands")
	assert.Contains(t, RuleTip(Inputs{Hour: 23}), "Mandai")
	assert.Contains(t, RuleTip(Inputs{Hour: 14}), "Marina Bay")
}

func TestTipWithoutProvider(t *testing.T) {
	a := New(nil, Config{}, logger.NewNop())
	tip := a.Tip(context.Background(), Inputs{Hour: 14})
	assert.Equal(t, SourceRules, tip.Source)
}

func TestTipFromModelIsCached(t *testing.T) {
	p := &fakeProvider{reply: " Wait at T3 taxi stand. "}
	a := New(p, Config{Model: "m", CacheMinutes: 10}, logger.NewNop())

	in := Inputs{Hour: 12, Impact: heavyRain(), Flights: busyFlights()}
	tip := a.Tip(context.Background(), in)
	assert.Equal(t, Tip{Text: "Wait at T3 taxi stand.", Source: SourceModel}, tip)

	require.Len(t, p.last, 2)
	assert.Equal(t, ai.RoleSystem, p.last[0].Role)
	assert.Contains(t, p.last[1].Content, "Rain showers")
	assert.Contains(t, p.last[1].Content, "Busiest terminal: T3")

	a.Tip(context.Background(), in)
	assert.Equal(t, 1, p.calls)
}

func TestTipFallsBackOnModelError(t *testing.T) {
	p := &fakeProvider{err: errors.New("quota")}
	a := New(p, Config{Model: "m", CacheMinutes: 10}, logger.NewNop())

	tip := a.Tip(context.Background(), Inputs{Hour: 14})
	assert.Equal(t, SourceRules, tip.Source)
	assert.Contains(t, tip.Text, "Marina Bay")

	// failures are not cached
	a.Tip(context.Background(), Inputs{Hour: 14})
	assert.Equal(t, 2, p.calls)
}
