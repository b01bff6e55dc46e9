package logsink

import (
	"github.com/groundguard-io/groundguard/internal/core"
	"github.com/groundguard-io/groundguard/pkg/log"
)

// Zap routes pipeline events into the project's structured logger. High
// frequency events go out at debug level so a normal info-level deployment
// only sees rejections, state changes, info messages and errors.
type Zap struct {
	l log.Logger
}

var _ Sink = (*Zap)(nil)

// NewZap wraps the given logger; pass nil to use the process-global one.
func NewZap(l log.Logger) *Zap {
	if l == nil {
		l = log.Std()
	}
	return &Zap{l: l.WithName("pipeline")}
}

func (z *Zap) LogCommandReceived(cmd core.Command) {
	z.l.Debug("Command received", "source", cmd.Source, "seq", cmd.Sequence)
}

func (z *Zap) LogCommandValidated(cmd core.Command, v core.Validation) {
	z.l.Debug("Command validated", "source", cmd.Source, "seq", cmd.Sequence, "result", v.Result)
}

func (z *Zap) LogCommandRejected(cmd core.Command, v core.Validation) {
	z.l.Warn("Command rejected",
		"source", cmd.Source,
		"seq", cmd.Sequence,
		"result", v.Result,
		"reason", v.Reason)
}

func (z *Zap) LogPrioritySelection(source core.Source, cmd core.Command) {
	z.l.Debug("Command stored for selection", "source", source, "seq", cmd.Sequence)
}

func (z *Zap) LogCommandForwarded(cmd core.Command) {
	z.l.Debug("Command forwarded",
		"source", cmd.Source,
		"seq", cmd.Sequence,
		"steeringDeg", cmd.Payload.SteeringAngleDeg,
		"speedMps", cmd.Payload.SpeedMps,
		"brake", cmd.Payload.BrakeEngaged)
}

func (z *Zap) LogHeartbeat() {}

func (z *Zap) LogStateTransition(from, to core.State, reason string) {
	z.l.Info("State transition", "from", string(from), "to", string(to), "reason", reason)
}

func (z *Zap) LogEmergencyStop(reason string) {
	z.l.Error(nil, "EMERGENCY STOP TRIGGERED", "reason", reason)
}

func (z *Zap) LogError(component, msg string) {
	z.l.Error(nil, msg, "component", component)
}

func (z *Zap) LogInfo(component, msg string) {
	z.l.Info(msg, "component", component)
}
