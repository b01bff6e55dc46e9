package safety

import (
	"fmt"
	"sync"
	"time"

	"github.com/groundguard-io/groundguard/internal/core"
)

// Heartbeat deadlines for the monitored tasks.
const (
	DefaultSensorHeartbeatTimeout  = 100 * time.Millisecond
	DefaultCommandHeartbeatTimeout = 100 * time.Millisecond
)

// Liveness tracks the last heartbeat of the sensor and command processing
// tasks. The tasks report on themselves; the safety monitor checks the
// deadlines. One mutex covers the whole table.
type Liveness struct {
	clock core.Clock

	mu             sync.Mutex
	lastSensor     time.Time
	lastCommand    time.Time
	sensorTimeout  time.Duration
	commandTimeout time.Duration
}

// NewLiveness creates a table with both heartbeats primed to now, so a
// freshly started system is healthy until a deadline actually lapses.
func NewLiveness(clock core.Clock, sensorTimeout, commandTimeout time.Duration) *Liveness {
	if clock == nil {
		clock = core.SystemClock
	}
	if sensorTimeout <= 0 {
		sensorTimeout = DefaultSensorHeartbeatTimeout
	}
	if commandTimeout <= 0 {
		commandTimeout = DefaultCommandHeartbeatTimeout
	}

	now := clock.Now()
	return &Liveness{
		clock:          clock,
		lastSensor:     now,
		lastCommand:    now,
		sensorTimeout:  sensorTimeout,
		commandTimeout: commandTimeout,
	}
}

// UpdateSensorHeartbeat records a sensor-task heartbeat at time t.
func (l *Liveness) UpdateSensorHeartbeat(t time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastSensor = t
}

// UpdateCommandHeartbeat records a command-task heartbeat at time t.
func (l *Liveness) UpdateCommandHeartbeat(t time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastCommand = t
}

// Reprime resets both heartbeats to now. Called on operator reset so a halt
// caused by a hung task does not immediately re-trigger.
func (l *Liveness) Reprime() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock.Now()
	l.lastSensor = now
	l.lastCommand = now
}

// Healthy checks both deadlines under the liveness mutex. On violation it
// returns false and a reason naming the hung task.
func (l *Liveness) Healthy() (bool, string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()

	if d := now.Sub(l.lastSensor); d > l.sensorTimeout {
		return false, fmt.Sprintf("Sensor Processor hung (%d ms)", d.Milliseconds())
	}
	if d := now.Sub(l.lastCommand); d > l.commandTimeout {
		return false, fmt.Sprintf("Command Processor hung (%d ms)", d.Milliseconds())
	}
	return true, ""
}
