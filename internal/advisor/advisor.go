// Package advisor produces the driver's positioning tip. Tips come from
// fixed rules unless a chat provider is configured, in which case the model
// is asked first and the rules are the fallback.
package advisor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/yegors/driverops/internal/ai"
	"github.com/yegors/driverops/internal/flights"
	"github.com/yegors/driverops/internal/recommend"
	"github.com/yegors/driverops/internal/weather"
	"github.com/yegors/driverops/pkg/logger"
)

// Tip sources
const (
	SourceRules = "rules"
	SourceModel = "model"
)

// Tip is a one-line positioning suggestion
type Tip struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

// Inputs is what a tip is based on. Nil pointers mean no data yet.
type Inputs struct {
	Hour    int
	Impact  *weather.Impact
	Flights *flights.Report
}

// Config holds advisor settings
type Config struct {
	Model          string
	Temperature    float64
	MaxTokens      int
	TimeoutSeconds int
	CacheMinutes   int
}

// Advisor builds tips
type Advisor struct {
	provider ai.ChatProvider // nil means rules only
	config   Config
	cache    *expirable.LRU[string, Tip]
	logger   *logger.Logger
}

// New creates an advisor. provider may be nil.
func New(provider ai.ChatProvider, config Config, log *logger.Logger) *Advisor {
	a := &Advisor{
		provider: provider,
		config:   config,
		logger:   log.Named("advisor"),
	}
	if provider != nil && config.CacheMinutes > 0 {
		a.cache = expirable.NewLRU[string, Tip](32, nil, time.Duration(config.CacheMinutes)*time.Minute)
	}
	return a
}

// Tip returns a tip for in, asking the model when one is configured
func (a *Advisor) Tip(ctx context.Context, in Inputs) Tip {
	rule := Tip{Text: RuleTip(in), Source: SourceRules}
	if a.provider == nil {
		return rule
	}

	key := cacheKey(in)
	if a.cache != nil {
		if tip, ok := a.cache.Get(key); ok {
			return tip
		}
	}

	if a.config.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(a.config.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	text, err := a.provider.ChatCompletion(ctx, []ai.ChatMessage{
		{Role: ai.RoleSystem, Content: systemPrompt},
		{Role: ai.RoleUser, Content: describe(in)},
	}, ai.ChatConfig{
		Model:       a.config.Model,
		Temperature: a.config.Temperature,
		MaxTokens:   a.config.MaxTokens,
	})
	if err != nil || strings.TrimSpace(text) == "" {
		a.logger.Warn("Model tip unavailable, using rules", logger.Error(err))
		return rule
	}

	tip := Tip{Text: strings.TrimSpace(text), Source: SourceModel}
	if a.cache != nil {
		a.cache.Add(key, tip)
	}
	return tip
}

const systemPrompt = "You advise a rideshare driver in Singapore. Reply with exactly one short sentence " +
	"telling them where to position next and why. No greetings, no lists."

// cacheKey buckets inputs so small changes reuse the same tip
func cacheKey(in Inputs) string {
	sev := "none"
	if in.Impact != nil {
		sev = string(in.Impact.Severity)
	}
	arrivals := -1
	if in.Flights != nil {
		arrivals = in.Flights.Arrivals
	}
	return fmt.Sprintf("%d|%s|%d", in.Hour, sev, arrivals)
}

func describe(in Inputs) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Local hour: %02d:00.\n", in.Hour)
	if in.Impact != nil {
		fmt.Fprintf(&b, "Weather: %s (%s severity), wind %s, base surge +%d%%.\n",
			in.Impact.Condition, in.Impact.Severity, in.Impact.Wind, in.Impact.BaseSurge)
	}
	if in.Flights != nil {
		fmt.Fprintf(&b, "Changi arrivals in the air: %d.\n", in.Flights.Arrivals)
		if term, pax := busiestTerminal(in.Flights.Flights); pax > 0 {
			fmt.Fprintf(&b, "Busiest terminal: %s with about %d passengers.\n", term, pax)
		}
	}
	return b.String()
}

// busiestTerminal sums expected passengers of airborne flights per terminal
func busiestTerminal(list []flights.DisplayFlight) (flights.Terminal, int) {
	totals := map[flights.Terminal]int{}
	for _, f := range list {
		if f.Status != flights.StatusLanded {
			totals[f.Terminal] += f.ExpectedPax
		}
	}

	var best flights.Terminal
	bestPax := 0
	for _, term := range []flights.Terminal{flights.TerminalT1, flights.TerminalT3, flights.TerminalT4} {
		if totals[term] > bestPax {
			best, bestPax = term, totals[term]
		}
	}
	return best, bestPax
}

// RuleTip is the deterministic tip
func RuleTip(in Inputs) string {
	if in.Impact != nil && in.Impact.Alert {
		return "Position near Changi before rain starts. Airport demand spikes during heavy rain."
	}

	if in.Flights != nil && in.Flights.Arrivals > 0 {
		term, pax := busiestTerminal(in.Flights.Flights)
		if in.Flights.Arrivals >= 5 && pax > 0 {
			return fmt.Sprintf("%d arrivals inbound. Queue at %s, about %d passengers are on the way.",
				in.Flights.Arrivals, term, pax)
		}
		if pax > 0 {
			return fmt.Sprintf("Light arrival traffic. %s is your best airport bet with about %d passengers inbound.", term, pax)
		}
	}

	switch {
	case recommend.IsCommutePeak(in.Hour):
		return "Commuter peak. Woodlands Train Station fills up fast with riders from Malaysia."
	case recommend.IsNight(in.Hour):
		return "Night Safari closing soon. Mandai has strong exit demand."
	default:
		return "Demand is steady. Marina Bay / CBD is a safe bet between airport waves."
	}
}
