// Package poller runs a fetch function on a fixed interval and holds the latest
// successful result. Failed fetches keep the previous data and record an error.
//
// Every fetch is stamped with a monotonically increasing sequence number and its
// result is applied only if no newer fetch has been issued in the meantime, so a
// slow timer fetch can never overwrite a newer manual refresh.
package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yegors/driverops/pkg/logger"
)

// FetchFunc retrieves one fresh value
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Snapshot is a point-in-time copy of a poller's state
type Snapshot[T any] struct {
	Data        *T        `json:"data"`
	Loading     bool      `json:"loading"`
	Error       string    `json:"error,omitempty"`
	LastUpdated time.Time `json:"last_updated,omitempty"`
	LastAttempt time.Time `json:"last_attempt,omitempty"`
	Sequence    uint64    `json:"sequence"`
}

// HasError reports whether the most recent applied fetch failed
func (s Snapshot[T]) HasError() bool {
	return s.Error != ""
}

// ErrStale is returned by Refresh when a newer fetch superseded this one
var ErrStale = errors.New("superseded by a newer fetch")

// ErrNotRunning is returned by Refresh after Stop
var ErrNotRunning = errors.New("poller is not running")

// Poller owns the state of one periodically refreshed value
type Poller[T any] struct {
	name     string
	interval time.Duration
	fetch    FetchFunc[T]
	logger   *logger.Logger
	now      func() time.Time

	mu          sync.RWMutex
	data        *T
	errText     string
	lastUpdated time.Time
	lastAttempt time.Time
	applied     uint64
	inFlight    int
	listeners   []func(Snapshot[T])

	issued atomic.Uint64
	rearm  chan struct{}

	// Service lifecycle
	lifeMu  sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// New creates a poller; it does nothing until Start is called
func New[T any](name string, interval time.Duration, fetch FetchFunc[T], log *logger.Logger) *Poller[T] {
	return &Poller[T]{
		name:     name,
		interval: interval,
		fetch:    fetch,
		logger:   log.Named(name + "-poller"),
		now:      time.Now,
		rearm:    make(chan struct{}, 1),
	}
}

// Subscribe registers fn to be called after every applied fetch
func (p *Poller[T]) Subscribe(fn func(Snapshot[T])) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// Start performs the initial fetch and begins the refresh loop
func (p *Poller[T]) Start(ctx context.Context) error {
	p.lifeMu.Lock()
	defer p.lifeMu.Unlock()

	if p.started {
		return nil
	}
	if p.interval <= 0 {
		return errors.New("poll interval must be positive")
	}

	p.logger.Info("Starting poller", logger.Duration("interval", p.interval))

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.started = true

	p.wg.Add(1)
	go p.run(p.ctx)
	return nil
}

// Stop cancels the loop and any in-flight fetches. Late results are dropped.
func (p *Poller[T]) Stop() {
	p.lifeMu.Lock()
	if !p.started {
		p.lifeMu.Unlock()
		return
	}
	p.started = false
	p.cancel()
	p.lifeMu.Unlock()

	p.wg.Wait()
	p.logger.Info("Poller stopped")
}

// IsRunning reports whether the loop is active
func (p *Poller[T]) IsRunning() bool {
	p.lifeMu.Lock()
	defer p.lifeMu.Unlock()
	return p.started
}

// Refresh performs an immediate out-of-cycle fetch and re-arms the interval
func (p *Poller[T]) Refresh(ctx context.Context) (Snapshot[T], error) {
	p.lifeMu.Lock()
	loopCtx := p.ctx
	running := p.started
	p.lifeMu.Unlock()

	if !running {
		return p.Snapshot(), ErrNotRunning
	}
	if err := ctx.Err(); err != nil {
		return p.Snapshot(), err
	}

	select {
	case p.rearm <- struct{}{}:
	default:
	}

	// Stop must still be able to abort a manual refresh
	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stopWatch := context.AfterFunc(loopCtx, cancel)
	defer stopWatch()

	err := p.poll(fetchCtx)
	return p.Snapshot(), err
}

// Snapshot returns a copy of the current state
func (p *Poller[T]) Snapshot() Snapshot[T] {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshotLocked()
}

func (p *Poller[T]) snapshotLocked() Snapshot[T] {
	return Snapshot[T]{
		Data:        p.data,
		Loading:     p.inFlight > 0,
		Error:       p.errText,
		LastUpdated: p.lastUpdated,
		LastAttempt: p.lastAttempt,
		Sequence:    p.applied,
	}
}

func (p *Poller[T]) run(ctx context.Context) {
	defer p.wg.Done()

	p.poll(ctx)

	timer := time.NewTimer(p.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.rearm:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(p.interval)
		case <-timer.C:
			p.logger.Debug("Periodic refresh triggered")
			p.poll(ctx)
			timer.Reset(p.interval)
		}
	}
}

// poll issues one fetch and applies its result if it is still the newest
func (p *Poller[T]) poll(ctx context.Context) error {
	// A cancelled caller must not supersede fetches that are still running
	if err := ctx.Err(); err != nil {
		return err
	}
	seq := p.issued.Add(1)
	start := p.now()

	p.mu.Lock()
	p.inFlight++
	p.lastAttempt = start
	p.mu.Unlock()

	value, err := p.fetch(ctx)

	p.mu.Lock()
	p.inFlight--

	if ctx.Err() != nil {
		p.mu.Unlock()
		p.logger.Debug("Dropping result of cancelled fetch", logger.Uint64("sequence", seq))
		return ctx.Err()
	}

	if latest := p.issued.Load(); seq != latest {
		p.mu.Unlock()
		p.logger.Debug("Dropping stale fetch result",
			logger.Uint64("sequence", seq),
			logger.Uint64("latest", latest))
		return ErrStale
	}

	p.applied = seq
	if err != nil {
		// Keep the previous data visible
		p.errText = err.Error()
		p.logger.Warn("Fetch failed", logger.Error(err), logger.Uint64("sequence", seq))
	} else {
		p.data = &value
		p.errText = ""
		p.lastUpdated = p.now()
		p.logger.Debug("Fetch applied",
			logger.Uint64("sequence", seq),
			logger.Duration("duration", p.lastUpdated.Sub(start)))
	}

	snap := p.snapshotLocked()
	listeners := append([]func(Snapshot[T]){}, p.listeners...)
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
	return err
}
