package safety

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/groundguard-io/groundguard/internal/core"
	"github.com/groundguard-io/groundguard/internal/pkg/metrics"
	"github.com/groundguard-io/groundguard/pkg/log"
)

// DefaultHeartbeatPeriod is the cadence of the pulse toward the external
// safety processor.
const DefaultHeartbeatPeriod = 50 * time.Millisecond

// HeartbeatCallback is the external pulse receiver. It runs on the emitter
// goroutine.
type HeartbeatCallback func()

// WatchdogConfig carries the heartbeat emitter parameters.
type WatchdogConfig struct {
	HeartbeatPeriod time.Duration `json:"heartbeat-period" mapstructure:"heartbeat-period"`
}

// DefaultWatchdogConfig returns the production emitter parameters.
func DefaultWatchdogConfig() WatchdogConfig {
	return WatchdogConfig{HeartbeatPeriod: DefaultHeartbeatPeriod}
}

// WatchdogStatistics is a snapshot of the emitter counters.
type WatchdogStatistics struct {
	HeartbeatsSent      uint64
	FeedsReceived       uint64
	TimeSinceLastFeedMs uint32
}

// Watchdog emits the periodic liveness pulse and records feeds from the
// command pipeline. Emission is not gated on feeds: the emitter reports the
// time since the last feed and leaves the judgment to the external watchdog.
type Watchdog struct {
	clock core.Clock

	running atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	feedMu       sync.Mutex
	lastFeedTime time.Time

	mu       sync.Mutex
	cfg      WatchdogConfig
	callback HeartbeatCallback
	stats    WatchdogStatistics
}

// NewWatchdog creates a heartbeat emitter.
func NewWatchdog(clock core.Clock, cfg WatchdogConfig) *Watchdog {
	if clock == nil {
		clock = core.SystemClock
	}
	if cfg.HeartbeatPeriod <= 0 {
		cfg.HeartbeatPeriod = DefaultHeartbeatPeriod
	}
	return &Watchdog{
		clock:        clock,
		cfg:          cfg,
		lastFeedTime: clock.Now(),
	}
}

// Start launches the emitter loop. Calling Start on a running watchdog is a
// no-op.
func (w *Watchdog) Start(cb HeartbeatCallback) {
	if !w.running.CompareAndSwap(false, true) {
		return
	}

	w.mu.Lock()
	w.callback = cb
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	period := w.cfg.HeartbeatPeriod
	w.mu.Unlock()

	w.feedMu.Lock()
	w.lastFeedTime = w.clock.Now()
	w.feedMu.Unlock()

	go w.loop(period)
}

// Stop clears the running flag and joins the loop.
func (w *Watchdog) Stop() {
	if !w.running.CompareAndSwap(true, false) {
		return
	}

	w.mu.Lock()
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	close(stopCh)
	<-doneCh
}

// IsRunning reports whether the emitter loop is active.
func (w *Watchdog) IsRunning() bool {
	return w.running.Load()
}

// Feed marks the command pipeline as alive. Called whenever a command is
// successfully forwarded.
func (w *Watchdog) Feed() {
	w.feedMu.Lock()
	w.lastFeedTime = w.clock.Now()
	w.feedMu.Unlock()

	w.mu.Lock()
	w.stats.FeedsReceived++
	w.mu.Unlock()
}

// SetConfig replaces the emitter parameters. Only allowed while stopped.
func (w *Watchdog) SetConfig(cfg WatchdogConfig) {
	if cfg.HeartbeatPeriod <= 0 {
		cfg.HeartbeatPeriod = DefaultHeartbeatPeriod
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cfg = cfg
}

// Statistics returns a copy of the emitter counters.
func (w *Watchdog) Statistics() WatchdogStatistics {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watchdog) loop(period time.Duration) {
	defer close(w.doneCh)

	nextBeat := w.clock.Now().Add(period)

	for w.running.Load() {
		w.emit()

		// Refresh the feed-age figure for external monitoring.
		w.feedMu.Lock()
		sinceFeed := w.clock.Now().Sub(w.lastFeedTime)
		w.feedMu.Unlock()

		w.mu.Lock()
		w.stats.TimeSinceLastFeedMs = uint32(sinceFeed.Milliseconds())
		w.mu.Unlock()

		timer := time.NewTimer(nextBeat.Sub(w.clock.Now()))
		select {
		case <-w.stopCh:
			timer.Stop()
			return
		case <-timer.C:
		}
		nextBeat = nextBeat.Add(period)
	}
}

// emit invokes the pulse callback, containing any panic so a misbehaving
// receiver cannot kill the emitter.
func (w *Watchdog) emit() {
	defer func() {
		if r := recover(); r != nil {
			log.Error(nil, "Heartbeat callback panicked", "panic", r)
		}
	}()

	w.mu.Lock()
	cb := w.callback
	w.mu.Unlock()

	if cb == nil {
		return
	}
	cb()

	metrics.HeartbeatsSent.Inc()
	w.mu.Lock()
	w.stats.HeartbeatsSent++
	w.mu.Unlock()
}
