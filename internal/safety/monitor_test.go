package safety

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/groundguard-io/groundguard/internal/core"
)

type haltRecorder struct {
	mu      sync.Mutex
	reasons []string
}

func (h *haltRecorder) halt(reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reasons = append(h.reasons, reason)
}

func (h *haltRecorder) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.reasons)
}

func (h *haltRecorder) last() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.reasons) == 0 {
		return ""
	}
	return h.reasons[len(h.reasons)-1]
}

func newTestMonitor(clock core.Clock) (*Monitor, *core.SensorStore, *Liveness, *haltRecorder) {
	sensors := core.NewSensorStore(clock)
	liveness := NewLiveness(clock, 0, 0)
	rec := &haltRecorder{}
	m := NewMonitor(clock, DefaultMonitorConfig(), liveness, sensors, rec.halt)
	return m, sensors, liveness, rec
}

func TestMonitorNominal(t *testing.T) {
	clock := newFakeClock()
	m, sensors, _, rec := newTestMonitor(clock)

	sensors.SetSpeed(5)
	sensors.SetBatteryVoltage(12)
	m.RunCheck()

	if rec.count() != 0 {
		t.Errorf("nominal state triggered halt: %v", rec.reasons)
	}
	if m.IsHalted() {
		t.Error("monitor halted in nominal state")
	}
}

func TestMonitorSpeedLimitHalt(t *testing.T) {
	clock := newFakeClock()
	m, sensors, _, rec := newTestMonitor(clock)

	sensors.SetSpeed(12)
	sensors.SetBatteryVoltage(12)
	m.RunCheck()

	if rec.count() != 1 {
		t.Fatalf("expected one halt, got %d", rec.count())
	}
	if !strings.Contains(rec.last(), "speed limit") {
		t.Errorf("reason %q should mention speed limit", rec.last())
	}
	if !m.IsHalted() {
		t.Error("monitor not marked halted")
	}
}

func TestMonitorBatteryHalt(t *testing.T) {
	clock := newFakeClock()
	m, sensors, _, rec := newTestMonitor(clock)

	sensors.SetSpeed(2)
	sensors.SetBatteryVoltage(9.5)
	m.RunCheck()

	if rec.count() != 1 || !strings.Contains(rec.last(), "battery low") {
		t.Errorf("expected battery halt, got %v", rec.reasons)
	}
}

func TestMonitorNoBatterySampleNoHalt(t *testing.T) {
	clock := newFakeClock()
	m, sensors, _, rec := newTestMonitor(clock)

	// Speed sampled, battery never sampled: the zero voltage must not halt.
	sensors.SetSpeed(2)
	m.RunCheck()

	if rec.count() != 0 {
		t.Errorf("halted before any battery sample: %v", rec.reasons)
	}
}

func TestMonitorLivenessBeforeSensors(t *testing.T) {
	clock := newFakeClock()
	m, sensors, _, rec := newTestMonitor(clock)

	// Both a hung task and an implausible speed: liveness is checked first.
	sensors.SetSpeed(50)
	sensors.SetBatteryVoltage(12)
	clock.advance(200 * time.Millisecond)

	m.RunCheck()

	if rec.count() != 1 {
		t.Fatalf("expected one halt, got %d", rec.count())
	}
	if !strings.Contains(rec.last(), "hung") {
		t.Errorf("liveness must be checked before sensors, reason: %q", rec.last())
	}
}

func TestMonitorHaltIdempotent(t *testing.T) {
	clock := newFakeClock()
	m, _, _, rec := newTestMonitor(clock)

	m.ExecuteImmediateHalt("first")
	m.ExecuteImmediateHalt("second")

	if rec.count() != 1 {
		t.Fatalf("halt ran %d times, want 1", rec.count())
	}
	if rec.last() != "first" {
		t.Errorf("first reason must win, got %q", rec.last())
	}

	// Further checks after halt are inert until rearmed.
	m.RunCheck()
	if rec.count() != 1 {
		t.Error("RunCheck fired the halt path again while halted")
	}

	m.RearmHalt()
	if m.IsHalted() {
		t.Error("RearmHalt did not clear the halted flag")
	}
}

func TestMonitorLoopTriggersHalt(t *testing.T) {
	// Real clock: drive the periodic loop end to end.
	sensors := core.NewSensorStore(core.SystemClock)
	liveness := NewLiveness(core.SystemClock, time.Minute, time.Minute)
	rec := &haltRecorder{}
	m := NewMonitor(core.SystemClock, MonitorConfig{
		Period:            5 * time.Millisecond,
		MaxSpeedMps:       10,
		MinBatteryVoltage: 10,
	}, liveness, sensors, rec.halt)

	sensors.SetBatteryVoltage(12)
	sensors.SetSpeed(11)

	m.Start()
	defer m.Stop()

	deadline := time.After(500 * time.Millisecond)
	for rec.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("monitor loop never halted on implausible speed")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if !strings.Contains(rec.last(), "speed limit") {
		t.Errorf("unexpected reason: %q", rec.last())
	}
}
