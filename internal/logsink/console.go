package logsink

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/groundguard-io/groundguard/internal/core"
)

// Console writes human-readable event lines to stdout/stderr. It is the
// default sink when nothing else is configured.
type Console struct {
	mu      sync.Mutex
	out     io.Writer
	errOut  io.Writer
	verbose bool
}

var _ Sink = (*Console)(nil)

// NewConsole creates a console sink. With verbose false, the high-frequency
// events (received, validated, selection, forwarded) are suppressed and only
// validation failures, state changes, emergency stops, errors and info
// messages are printed.
func NewConsole(verbose bool) *Console {
	return &Console{
		out:     os.Stdout,
		errOut:  os.Stderr,
		verbose: verbose,
	}
}

func (c *Console) stamp() string {
	return time.Now().Format("2006-01-02 15:04:05.000")
}

func (c *Console) printf(w io.Writer, format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(w, "[%s] "+format+"\n", append([]any{c.stamp()}, args...)...)
}

func (c *Console) LogCommandReceived(cmd core.Command) {
	if !c.verbose {
		return
	}
	c.printf(c.out, "[INTAKE] Command received from %s (seq: %d)", cmd.Source, cmd.Sequence)
}

func (c *Console) LogCommandValidated(cmd core.Command, v core.Validation) {
	if !c.verbose {
		return
	}
	c.printf(c.out, "[VALIDATOR] Command from %s - Result: %s", cmd.Source, v.Result)
}

func (c *Console) LogCommandRejected(cmd core.Command, v core.Validation) {
	c.printf(c.out, "[VALIDATOR] Command from %s - Result: %s - Reason: %s",
		cmd.Source, v.Result, v.Reason)
}

func (c *Console) LogPrioritySelection(source core.Source, cmd core.Command) {
	if !c.verbose {
		return
	}
	c.printf(c.out, "[SELECTOR] Selected command from %s (seq: %d)", source, cmd.Sequence)
}

func (c *Console) LogCommandForwarded(cmd core.Command) {
	if !c.verbose {
		return
	}
	c.printf(c.out, "[FORWARDER] Forwarded command from %s - Steering: %.1f deg, Speed: %.2f m/s",
		cmd.Source, cmd.Payload.SteeringAngleDeg, cmd.Payload.SpeedMps)
}

func (c *Console) LogHeartbeat() {
	// Too frequent to print. A counter could log every Nth beat if needed.
}

func (c *Console) LogStateTransition(from, to core.State, reason string) {
	c.printf(c.out, "[STATE] Transition: %s -> %s - Reason: %s", from, to, reason)
}

func (c *Console) LogEmergencyStop(reason string) {
	c.printf(c.errOut, "[ESTOP] EMERGENCY STOP TRIGGERED: %s", reason)
}

func (c *Console) LogError(component, msg string) {
	c.printf(c.errOut, "[ERROR] [%s] %s", component, msg)
}

func (c *Console) LogInfo(component, msg string) {
	c.printf(c.out, "[INFO] [%s] %s", component, msg)
}
