package pipeline

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/groundguard-io/groundguard/internal/core"
)

// The forwarder tests run against the real clock with short periods; the
// fake clock cannot drive time.Timer.

func TestForwarderDispatchesFreshCommand(t *testing.T) {
	bank := NewSlotBank(core.SystemClock, 0)
	sel := NewSelector(bank)
	fwd := NewForwarder(core.SystemClock, sel, ForwarderConfig{ForwardPeriod: 2 * time.Millisecond})

	bank.Store(core.Command{
		Source:    core.SourceRemote,
		Sequence:  1,
		Timestamp: time.Now(),
	})

	var forwarded atomic.Uint64
	fwd.Start(func(cmd core.Command) {
		if cmd.Source == core.SourceRemote {
			forwarded.Add(1)
		}
	})
	defer fwd.Stop()

	time.Sleep(50 * time.Millisecond)

	if forwarded.Load() < 5 {
		t.Errorf("expected repeated dispatch of the fresh command, got %d", forwarded.Load())
	}
	if stats := fwd.Statistics(); stats.CommandsForwarded == 0 {
		t.Error("CommandsForwarded not counted")
	}
}

func TestForwarderEmptyTicks(t *testing.T) {
	bank := NewSlotBank(core.SystemClock, 0)
	sel := NewSelector(bank)
	fwd := NewForwarder(core.SystemClock, sel, ForwarderConfig{ForwardPeriod: 2 * time.Millisecond})

	var calls atomic.Uint64
	fwd.Start(func(core.Command) { calls.Add(1) })
	time.Sleep(30 * time.Millisecond)
	fwd.Stop()

	if calls.Load() != 0 {
		t.Errorf("BCM callback invoked %d times with no command stored", calls.Load())
	}
	if stats := fwd.Statistics(); stats.NoCommandCycles == 0 {
		t.Error("NoCommandCycles not counted")
	}
}

func TestForwarderHoldFrameOnNoCommand(t *testing.T) {
	bank := NewSlotBank(core.SystemClock, 0)
	sel := NewSelector(bank)
	fwd := NewForwarder(core.SystemClock, sel, ForwarderConfig{
		ForwardPeriod:            2 * time.Millisecond,
		SendHeartbeatOnNoCommand: true,
	})

	var mu sync.Mutex
	var last core.Command
	var calls int
	fwd.Start(func(cmd core.Command) {
		mu.Lock()
		last = cmd
		calls++
		mu.Unlock()
	})
	time.Sleep(30 * time.Millisecond)
	fwd.Stop()

	mu.Lock()
	defer mu.Unlock()
	if calls == 0 {
		t.Fatal("hold frames not emitted")
	}
	if last.Source != core.SourceNone || !last.Payload.BrakeEngaged {
		t.Errorf("hold frame malformed: %+v", last)
	}
}

func TestForwarderStopJoins(t *testing.T) {
	bank := NewSlotBank(core.SystemClock, 0)
	sel := NewSelector(bank)
	fwd := NewForwarder(core.SystemClock, sel, ForwarderConfig{ForwardPeriod: 5 * time.Millisecond})

	fwd.Start(func(core.Command) {})
	if !fwd.IsRunning() {
		t.Fatal("forwarder should be running")
	}

	done := make(chan struct{})
	go func() {
		fwd.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Stop did not join within several periods")
	}

	if fwd.IsRunning() {
		t.Error("forwarder still running after Stop")
	}

	// Second Stop is a no-op.
	fwd.Stop()
}

func TestForwarderSurvivesCallbackPanic(t *testing.T) {
	bank := NewSlotBank(core.SystemClock, 0)
	sel := NewSelector(bank)
	fwd := NewForwarder(core.SystemClock, sel, ForwarderConfig{ForwardPeriod: 2 * time.Millisecond})

	bank.Store(core.Command{Source: core.SourceSafety, Sequence: 1, Timestamp: time.Now()})

	var calls atomic.Uint64
	fwd.Start(func(core.Command) {
		calls.Add(1)
		panic("bcm exploded")
	})
	time.Sleep(30 * time.Millisecond)
	fwd.Stop()

	if calls.Load() < 2 {
		t.Errorf("loop died after callback panic: %d calls", calls.Load())
	}
}

func TestForwarderCadence(t *testing.T) {
	if testing.Short() {
		t.Skip("timing-sensitive")
	}

	bank := NewSlotBank(core.SystemClock, 0)
	sel := NewSelector(bank)
	period := 10 * time.Millisecond
	fwd := NewForwarder(core.SystemClock, sel, ForwarderConfig{ForwardPeriod: period})

	var mu sync.Mutex
	var stamps []time.Time
	fwd.Start(func(core.Command) {
		mu.Lock()
		stamps = append(stamps, time.Now())
		mu.Unlock()
	})

	// Keep the slot fresh for the duration of the measurement.
	stop := make(chan struct{})
	go func() {
		seq := uint64(0)
		for {
			select {
			case <-stop:
				return
			default:
			}
			seq++
			bank.Store(core.Command{Source: core.SourceRemote, Sequence: seq, Timestamp: time.Now()})
			time.Sleep(50 * time.Millisecond)
		}
	}()

	time.Sleep(time.Second)
	close(stop)
	fwd.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(stamps) < 50 {
		t.Fatalf("too few dispatches: %d", len(stamps))
	}

	// Absolute deadlines keep the cadence from drifting: the mean interval
	// must sit close to the period even if individual ticks jitter.
	elapsed := stamps[len(stamps)-1].Sub(stamps[0])
	mean := elapsed / time.Duration(len(stamps)-1)
	if mean < period-2*time.Millisecond || mean > period+5*time.Millisecond {
		t.Errorf("mean inter-dispatch interval %v outside [%v, %v]", mean, period-2*time.Millisecond, period+5*time.Millisecond)
	}
}
