package pipeline

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/groundguard-io/groundguard/internal/core"
	"github.com/groundguard-io/groundguard/internal/pkg/metrics"
	"github.com/groundguard-io/groundguard/pkg/log"
)

// DefaultForwardPeriod is the dispatch cadence toward the BCM.
const DefaultForwardPeriod = 10 * time.Millisecond

// emaAlpha is the smoothing factor of the loop-time moving average.
const emaAlpha = 0.1

// ForwardCallback receives the selected command once per period. It runs on
// the forwarder goroutine and must return quickly (≤ 1 ms) to preserve the
// cadence.
type ForwardCallback func(cmd core.Command)

// ForwarderConfig carries the dispatch loop parameters.
type ForwarderConfig struct {
	ForwardPeriod time.Duration `json:"forward-period" mapstructure:"forward-period"`

	// SendHeartbeatOnNoCommand, when true, emits a brake-engaged hold frame
	// on ticks with no fresh command. Off by default: no emission on empty
	// ticks is the simplest safe policy.
	SendHeartbeatOnNoCommand bool `json:"send-heartbeat-on-no-command" mapstructure:"send-heartbeat-on-no-command"`
}

// DefaultForwarderConfig returns the production dispatch parameters.
func DefaultForwarderConfig() ForwarderConfig {
	return ForwarderConfig{ForwardPeriod: DefaultForwardPeriod}
}

// ForwarderStatistics is a snapshot of the dispatch loop counters.
type ForwarderStatistics struct {
	CommandsForwarded uint64
	NoCommandCycles   uint64
	AvgLoopTimeUs     uint32
	MaxLoopTimeUs     uint32
	LastForwardTime   time.Time
}

// Forwarder runs the periodic dispatch loop. Exactly one goroutine writes
// the selected command to the BCM per period; deadlines are absolute so the
// cadence does not drift with processing time.
type Forwarder struct {
	clock    core.Clock
	selector *Selector

	running atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	mu       sync.Mutex
	cfg      ForwarderConfig
	callback ForwardCallback
	stats    ForwarderStatistics
	samples  uint64
}

// NewForwarder creates a forwarder borrowing the given selector.
func NewForwarder(clock core.Clock, selector *Selector, cfg ForwarderConfig) *Forwarder {
	if clock == nil {
		clock = core.SystemClock
	}
	if cfg.ForwardPeriod <= 0 {
		cfg.ForwardPeriod = DefaultForwardPeriod
	}
	return &Forwarder{
		clock:    clock,
		selector: selector,
		cfg:      cfg,
	}
}

// Start launches the dispatch loop. Calling Start on a running forwarder is
// a no-op.
func (f *Forwarder) Start(cb ForwardCallback) {
	if !f.running.CompareAndSwap(false, true) {
		return
	}

	f.mu.Lock()
	f.callback = cb
	f.stopCh = make(chan struct{})
	f.doneCh = make(chan struct{})
	period := f.cfg.ForwardPeriod
	f.mu.Unlock()

	go f.loop(period)
}

// Stop clears the running flag and joins the loop. The loop observes the
// flag at the top of each iteration, so joining is bounded by one period.
func (f *Forwarder) Stop() {
	if !f.running.CompareAndSwap(true, false) {
		return
	}

	f.mu.Lock()
	stopCh, doneCh := f.stopCh, f.doneCh
	f.mu.Unlock()

	close(stopCh)
	<-doneCh
}

// IsRunning reports whether the dispatch loop is active.
func (f *Forwarder) IsRunning() bool {
	return f.running.Load()
}

// SetConfig replaces the loop parameters. Only allowed while stopped.
func (f *Forwarder) SetConfig(cfg ForwarderConfig) {
	if cfg.ForwardPeriod <= 0 {
		cfg.ForwardPeriod = DefaultForwardPeriod
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cfg = cfg
}

// Statistics returns a copy of the loop counters.
func (f *Forwarder) Statistics() ForwarderStatistics {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats
}

func (f *Forwarder) loop(period time.Duration) {
	defer close(f.doneCh)

	// Absolute deadlines: next wake is always prior wake + period, never
	// now + period.
	nextWake := f.clock.Now().Add(period)

	for f.running.Load() {
		loopStart := f.clock.Now()

		if cmd, ok := f.selector.Select(); ok {
			f.dispatch(cmd)
		} else {
			f.mu.Lock()
			f.stats.NoCommandCycles++
			hold := f.cfg.SendHeartbeatOnNoCommand
			f.mu.Unlock()
			metrics.NoCommandCycles.Inc()

			if hold {
				f.dispatch(core.Command{
					Source:    core.SourceNone,
					Timestamp: loopStart,
					Payload:   core.Payload{BrakeEngaged: true},
				})
			}
		}

		loopTime := f.clock.Now().Sub(loopStart)
		f.updateTimingStats(loopTime)
		metrics.ForwardLoopSeconds.Observe(loopTime.Seconds())

		timer := time.NewTimer(nextWake.Sub(f.clock.Now()))
		select {
		case <-f.stopCh:
			timer.Stop()
			return
		case <-timer.C:
		}
		nextWake = nextWake.Add(period)
	}
}

// dispatch invokes the BCM callback, containing any panic so a misbehaving
// callback cannot kill the dispatch loop.
func (f *Forwarder) dispatch(cmd core.Command) {
	defer func() {
		if r := recover(); r != nil {
			log.Error(nil, "BCM callback panicked", "panic", r)
		}
	}()

	f.mu.Lock()
	cb := f.callback
	f.mu.Unlock()

	if cb == nil {
		return
	}
	cb(cmd)

	f.mu.Lock()
	f.stats.CommandsForwarded++
	f.stats.LastForwardTime = f.clock.Now()
	f.mu.Unlock()
}

func (f *Forwarder) updateTimingStats(loopTime time.Duration) {
	us := uint32(loopTime.Microseconds())

	f.mu.Lock()
	defer f.mu.Unlock()

	if us > f.stats.MaxLoopTimeUs {
		f.stats.MaxLoopTimeUs = us
	}

	if f.samples == 0 {
		f.stats.AvgLoopTimeUs = us
	} else {
		f.stats.AvgLoopTimeUs = uint32(emaAlpha*float64(us) + (1-emaAlpha)*float64(f.stats.AvgLoopTimeUs))
	}
	f.samples++
}
