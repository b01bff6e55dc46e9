package logsink

import (
	"github.com/groundguard-io/groundguard/internal/core"
)

// Tee fans every event out to all given sinks in order.
func Tee(sinks ...Sink) Sink {
	return tee(sinks)
}

type tee []Sink

var _ Sink = tee{}

func (t tee) LogCommandReceived(cmd core.Command) {
	for _, s := range t {
		s.LogCommandReceived(cmd)
	}
}

func (t tee) LogCommandValidated(cmd core.Command, v core.Validation) {
	for _, s := range t {
		s.LogCommandValidated(cmd, v)
	}
}

func (t tee) LogCommandRejected(cmd core.Command, v core.Validation) {
	for _, s := range t {
		s.LogCommandRejected(cmd, v)
	}
}

func (t tee) LogPrioritySelection(source core.Source, cmd core.Command) {
	for _, s := range t {
		s.LogPrioritySelection(source, cmd)
	}
}

func (t tee) LogCommandForwarded(cmd core.Command) {
	for _, s := range t {
		s.LogCommandForwarded(cmd)
	}
}

func (t tee) LogHeartbeat() {
	for _, s := range t {
		s.LogHeartbeat()
	}
}

func (t tee) LogStateTransition(from, to core.State, reason string) {
	for _, s := range t {
		s.LogStateTransition(from, to, reason)
	}
}

func (t tee) LogEmergencyStop(reason string) {
	for _, s := range t {
		s.LogEmergencyStop(reason)
	}
}

func (t tee) LogError(component, msg string) {
	for _, s := range t {
		s.LogError(component, msg)
	}
}

func (t tee) LogInfo(component, msg string) {
	for _, s := range t {
		s.LogInfo(component, msg)
	}
}
