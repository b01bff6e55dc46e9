package pipeline

import (
	"sync"
	"time"

	"github.com/groundguard-io/groundguard/internal/core"
)

// CommandCallback receives each normalized command, typically the
// orchestrator's handleCommand.
type CommandCallback func(cmd core.Command)

// IntakeStatistics is a snapshot of the intake counters.
type IntakeStatistics struct {
	CommandsReceived   uint64
	CommandsNormalized uint64
	LastReceivedTime   time.Time
}

// Intake normalizes raw source data into the internal Command format and
// hands it to the configured callback. The transform itself is stateless;
// only counters are kept.
type Intake struct {
	clock core.Clock

	mu       sync.Mutex
	callback CommandCallback
	stats    IntakeStatistics
}

// NewIntake creates an intake using the given clock.
func NewIntake(clock core.Clock) *Intake {
	if clock == nil {
		clock = core.SystemClock
	}
	return &Intake{clock: clock}
}

// SetCallback installs the delivery callback for normalized commands.
func (i *Intake) SetCallback(cb CommandCallback) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.callback = cb
}

// Receive normalizes one raw command and delivers it. The entry timestamp is
// stamped here: freshness is measured from the moment the command entered
// the system, not from when the source produced it.
func (i *Intake) Receive(source core.Source, payload core.Payload, sequence uint64) {
	now := i.clock.Now()

	cmd := core.Command{
		Source:    source,
		Sequence:  sequence,
		Timestamp: now,
		Payload:   payload,
	}

	i.mu.Lock()
	i.stats.CommandsReceived++
	i.stats.CommandsNormalized++
	i.stats.LastReceivedTime = now
	cb := i.callback
	i.mu.Unlock()

	if cb != nil {
		cb(cmd)
	}
}

// Statistics returns a copy of the intake counters.
func (i *Intake) Statistics() IntakeStatistics {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.stats
}
