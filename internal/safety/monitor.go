package safety

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/groundguard-io/groundguard/internal/core"
	"github.com/groundguard-io/groundguard/internal/pkg/metrics"
	"github.com/groundguard-io/groundguard/pkg/log"
)

// Plausibility thresholds and cadence of the safety monitor.
const (
	DefaultMonitorPeriod     = 50 * time.Millisecond
	DefaultMaxSpeedMps       = 10.0
	DefaultMinBatteryVoltage = 10.0
)

// HaltFunc is invoked exactly once when the monitor decides to halt. The
// orchestrator supplies it: log, clear slots, transition to EmergencyStop.
type HaltFunc func(reason string)

// MonitorConfig carries the plausibility thresholds.
type MonitorConfig struct {
	Period            time.Duration `json:"period" mapstructure:"period"`
	MaxSpeedMps       float32       `json:"max-speed-mps" mapstructure:"max-speed-mps"`
	MinBatteryVoltage float32       `json:"min-battery-voltage" mapstructure:"min-battery-voltage"`
}

// DefaultMonitorConfig returns the hardware plausibility thresholds.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Period:            DefaultMonitorPeriod,
		MaxSpeedMps:       DefaultMaxSpeedMps,
		MinBatteryVoltage: DefaultMinBatteryVoltage,
	}
}

// Monitor periodically cross-checks task liveness and sensor plausibility,
// halting the system on the first violation. The liveness mutex is taken
// and released before the sensor mutex; the two are never held together.
type Monitor struct {
	clock    core.Clock
	cfg      MonitorConfig
	liveness *Liveness
	sensors  *core.SensorStore
	halt     HaltFunc

	running atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	halted atomic.Bool
}

// NewMonitor creates a safety monitor over the given liveness table and
// sensor store.
func NewMonitor(clock core.Clock, cfg MonitorConfig, liveness *Liveness, sensors *core.SensorStore, halt HaltFunc) *Monitor {
	if clock == nil {
		clock = core.SystemClock
	}
	if cfg.Period <= 0 {
		cfg.Period = DefaultMonitorPeriod
	}
	if cfg.MaxSpeedMps <= 0 {
		cfg.MaxSpeedMps = DefaultMaxSpeedMps
	}
	if cfg.MinBatteryVoltage <= 0 {
		cfg.MinBatteryVoltage = DefaultMinBatteryVoltage
	}
	return &Monitor{
		clock:    clock,
		cfg:      cfg,
		liveness: liveness,
		sensors:  sensors,
		halt:     halt,
	}
}

// Start launches the check loop. Calling Start on a running monitor is a
// no-op.
func (m *Monitor) Start() {
	if !m.running.CompareAndSwap(false, true) {
		return
	}
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	go m.loop()
}

// Stop clears the running flag and joins the loop.
func (m *Monitor) Stop() {
	if !m.running.CompareAndSwap(true, false) {
		return
	}
	close(m.stopCh)
	<-m.doneCh
}

// IsRunning reports whether the check loop is active.
func (m *Monitor) IsRunning() bool {
	return m.running.Load()
}

// IsHalted reports whether the halt path has fired.
func (m *Monitor) IsHalted() bool {
	return m.halted.Load()
}

// RearmHalt re-enables the halt path after an operator reset.
func (m *Monitor) RearmHalt() {
	m.halted.Store(false)
}

// RunCheck executes one monitoring pass: task liveness first, then sensor
// plausibility. Exposed for tests; the loop calls it once per period.
func (m *Monitor) RunCheck() {
	if m.halted.Load() {
		// Terminal until operator reset; nothing more to evaluate.
		return
	}

	if healthy, reason := m.liveness.Healthy(); !healthy {
		m.ExecuteImmediateHalt(reason)
		return
	}

	snap := m.sensors.Snapshot()

	if snap.SpeedMps > m.cfg.MaxSpeedMps {
		m.ExecuteImmediateHalt(fmt.Sprintf("speed limit reached (%.2f m/s > %.2f m/s)", snap.SpeedMps, m.cfg.MaxSpeedMps))
		return
	}

	// Battery plausibility is judged only once a sample has arrived; before
	// that the zero value would read as a dead battery.
	if !snap.LastBatteryUpdate.IsZero() && snap.BatteryVoltageV < m.cfg.MinBatteryVoltage {
		m.ExecuteImmediateHalt(fmt.Sprintf("battery low (%.2f V < %.2f V)", snap.BatteryVoltageV, m.cfg.MinBatteryVoltage))
		return
	}

	log.Debug("Safety check nominal",
		"speedMps", snap.SpeedMps,
		"batteryV", snap.BatteryVoltageV)
}

// ExecuteImmediateHalt runs the halt path once. Repeated entries are no-ops:
// the first reason wins and is the one logged and reported.
func (m *Monitor) ExecuteImmediateHalt(reason string) {
	if !m.halted.CompareAndSwap(false, true) {
		return
	}

	metrics.EmergencyStops.Inc()
	log.Error(nil, "Emergency halt", "reason", reason)

	if m.halt != nil {
		m.halt(reason)
	}
}

func (m *Monitor) loop() {
	defer close(m.doneCh)

	nextCheck := m.clock.Now().Add(m.cfg.Period)

	for m.running.Load() {
		m.RunCheck()

		timer := time.NewTimer(nextCheck.Sub(m.clock.Now()))
		select {
		case <-m.stopCh:
			timer.Stop()
			return
		case <-timer.C:
		}
		nextCheck = nextCheck.Add(m.cfg.Period)
	}
}
