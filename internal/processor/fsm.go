package processor

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"

	"github.com/groundguard-io/groundguard/internal/core"
	"github.com/groundguard-io/groundguard/internal/pkg/metrics"
	fsmutil "github.com/groundguard-io/groundguard/internal/pkg/util/fsm"
)

// State machine events. Transitions happen only through these; there is no
// way to set the state directly.
const (
	// EventInitialized completes startup wiring.
	EventInitialized = "event_initialized"
	// EventEmergency enters the terminal-until-reset emergency stop.
	EventEmergency = "event_emergency"
	// EventDegrade enters degraded operation.
	EventDegrade = "event_degrade"
	// EventReset returns to normal operation after operator intervention.
	EventReset = "event_reset"
	// EventFault marks an unrecoverable condition. There is no exit.
	EventFault = "event_fault"
)

// transitionHook observes every completed state change.
type transitionHook func(from, to core.State, reason string)

// stateMachine wraps the looplab FSM with the system's fixed transition
// table. looplab serializes Event/Current internally, which is exactly the
// single-mutex discipline the shared state requires.
type stateMachine struct {
	*fsm.FSM
	hook transitionHook
}

func newStateMachine(hook transitionHook) *stateMachine {
	sm := &stateMachine{hook: hook}

	events := fsm.Events{
		{Name: EventInitialized, Src: []string{string(core.StateInitializing)}, Dst: string(core.StateNormalOperation)},
		{Name: EventEmergency, Src: []string{string(core.StateNormalOperation), string(core.StateSafeMode)}, Dst: string(core.StateEmergencyStop)},
		{Name: EventDegrade, Src: []string{string(core.StateNormalOperation)}, Dst: string(core.StateSafeMode)},
		{Name: EventReset, Src: []string{string(core.StateEmergencyStop), string(core.StateSafeMode)}, Dst: string(core.StateNormalOperation)},
		{Name: EventFault, Src: []string{
			string(core.StateInitializing),
			string(core.StateNormalOperation),
			string(core.StateSafeMode),
			string(core.StateEmergencyStop),
		}, Dst: string(core.StateFault)},
	}

	callbacks := fsm.Callbacks{
		"enter_state": fsmutil.WrapEvent(sm.onEnterState),
	}

	sm.FSM = fsm.NewFSM(string(core.StateInitializing), events, callbacks)
	return sm
}

// fire runs one transition. The reason travels as the event argument and is
// reported to the hook.
func (sm *stateMachine) fire(event, reason string) error {
	if err := sm.Event(context.Background(), event, reason); err != nil {
		return fmt.Errorf("state transition %s rejected in %s: %w", event, sm.Current(), err)
	}
	return nil
}

// state returns the current state.
func (sm *stateMachine) state() core.State {
	return core.State(sm.Current())
}

func (sm *stateMachine) onEnterState(ctx context.Context, e *fsm.Event) error {
	reason := ""
	if len(e.Args) > 0 {
		if s, ok := e.Args[0].(string); ok {
			reason = s
		}
	}

	metrics.SetSystemState(e.Dst)

	if sm.hook != nil {
		sm.hook(core.State(e.Src), core.State(e.Dst), reason)
	}
	return nil
}
