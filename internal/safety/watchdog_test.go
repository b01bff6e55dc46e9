package safety

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/groundguard-io/groundguard/internal/core"
)

func TestWatchdogEmitsHeartbeats(t *testing.T) {
	w := NewWatchdog(core.SystemClock, WatchdogConfig{HeartbeatPeriod: 5 * time.Millisecond})

	var beats atomic.Uint64
	w.Start(func() { beats.Add(1) })
	time.Sleep(60 * time.Millisecond)
	w.Stop()

	if beats.Load() < 5 {
		t.Errorf("expected at least 5 heartbeats, got %d", beats.Load())
	}
	if stats := w.Statistics(); stats.HeartbeatsSent != beats.Load() {
		t.Errorf("HeartbeatsSent = %d, callback saw %d", stats.HeartbeatsSent, beats.Load())
	}
}

func TestWatchdogFeedTracking(t *testing.T) {
	clock := newFakeClock()
	w := NewWatchdog(clock, DefaultWatchdogConfig())

	w.Feed()
	w.Feed()

	if stats := w.Statistics(); stats.FeedsReceived != 2 {
		t.Errorf("FeedsReceived = %d, want 2", stats.FeedsReceived)
	}
}

func TestWatchdogEmissionNotGatedOnFeeds(t *testing.T) {
	// No feeds at all: the pulse still goes out, only the feed-age figure
	// grows. The external watchdog decides what to do with it.
	w := NewWatchdog(core.SystemClock, WatchdogConfig{HeartbeatPeriod: 5 * time.Millisecond})

	var beats atomic.Uint64
	w.Start(func() { beats.Add(1) })
	time.Sleep(40 * time.Millisecond)
	w.Stop()

	if beats.Load() == 0 {
		t.Error("emission must not be gated on feeds")
	}
}

func TestWatchdogStopJoins(t *testing.T) {
	w := NewWatchdog(core.SystemClock, WatchdogConfig{HeartbeatPeriod: 10 * time.Millisecond})
	w.Start(func() {})

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("Stop did not join")
	}

	// Idempotent stop and restart.
	w.Stop()
	w.Start(func() {})
	w.Stop()
}

func TestWatchdogSurvivesCallbackPanic(t *testing.T) {
	w := NewWatchdog(core.SystemClock, WatchdogConfig{HeartbeatPeriod: 5 * time.Millisecond})

	var beats atomic.Uint64
	w.Start(func() {
		beats.Add(1)
		panic("pulse receiver exploded")
	})
	time.Sleep(40 * time.Millisecond)
	w.Stop()

	if beats.Load() < 2 {
		t.Errorf("emitter died after callback panic: %d beats", beats.Load())
	}
}
