// Package logsink defines the audit trail interface the command pipeline
// reports into, together with the bundled implementations. The sink is the
// one intentional interface abstraction of the core: persistent backends
// (database writers, uplink forwarders) implement it outside this process's
// concern.
package logsink

import (
	"github.com/groundguard-io/groundguard/internal/core"
)

// Sink receives every observable event of the command pipeline.
// Implementations must be safe for concurrent use; they are called from the
// intake callbacks, the forwarder goroutine, the heartbeat emitter and the
// safety monitor.
type Sink interface {
	LogCommandReceived(cmd core.Command)
	LogCommandValidated(cmd core.Command, v core.Validation)
	LogCommandRejected(cmd core.Command, v core.Validation)
	LogPrioritySelection(source core.Source, cmd core.Command)
	LogCommandForwarded(cmd core.Command)

	// LogHeartbeat is invoked once per emitted heartbeat. Implementations
	// normally keep this a no-op; at 50 ms cadence it drowns everything else.
	LogHeartbeat()

	LogStateTransition(from, to core.State, reason string)
	LogEmergencyStop(reason string)
	LogError(component, msg string)
	LogInfo(component, msg string)
}

// Nop is a Sink that discards everything. Useful as a test default.
type Nop struct{}

var _ Sink = Nop{}

func (Nop) LogCommandReceived(core.Command)                   {}
func (Nop) LogCommandValidated(core.Command, core.Validation) {}
func (Nop) LogCommandRejected(core.Command, core.Validation)  {}
func (Nop) LogPrioritySelection(core.Source, core.Command)    {}
func (Nop) LogCommandForwarded(core.Command)                  {}
func (Nop) LogHeartbeat()                                     {}
func (Nop) LogStateTransition(core.State, core.State, string) {}
func (Nop) LogEmergencyStop(string)                           {}
func (Nop) LogError(string, string)                           {}
func (Nop) LogInfo(string, string)                            {}
