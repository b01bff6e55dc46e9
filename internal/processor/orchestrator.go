package processor

import (
	"errors"
	"fmt"
	"sync"

	"github.com/groundguard-io/groundguard/internal/core"
	"github.com/groundguard-io/groundguard/internal/logsink"
	"github.com/groundguard-io/groundguard/internal/pipeline"
	"github.com/groundguard-io/groundguard/internal/pkg/metrics"
	"github.com/groundguard-io/groundguard/internal/safety"
)

const componentName = "Orchestrator"

var (
	// ErrNotInitialized is returned by operations that require Initialize.
	ErrNotInitialized = errors.New("orchestrator not initialized")

	// ErrAlreadyInitialized is returned by a second Initialize.
	ErrAlreadyInitialized = errors.New("orchestrator already initialized")

	// ErrRunning is returned when a stopped-only operation is attempted on a
	// running orchestrator.
	ErrRunning = errors.New("orchestrator is running")

	// ErrFaulted is returned by Reset when the system is in the Fault state;
	// manual intervention is required.
	ErrFaulted = errors.New("system is faulted; manual intervention required")
)

// BCMCallback receives the arbitrated command once per forward period. It is
// invoked from the forwarder goroutine and must be non-blocking.
type BCMCallback func(cmd core.Command)

// HeartbeatCallback receives the liveness pulse every heartbeat period.
type HeartbeatCallback func()

// Statistics aggregates the per-component counters plus the current state.
type Statistics struct {
	Intake    pipeline.IntakeStatistics
	Selector  pipeline.SelectorStatistics
	Forwarder pipeline.ForwarderStatistics
	Watchdog  safety.WatchdogStatistics
	State     core.State
}

// Orchestrator owns the wiring: it constructs the pipeline components,
// connects the external callbacks, runs the state machine and exposes the
// operator surface (start/stop, emergency stop, reset). Components stay
// acyclic; the selector borrows the slots, the forwarder borrows the
// selector, and nobody holds a reference back here.
type Orchestrator struct {
	clock core.Clock
	sink  logsink.Sink

	mu          sync.Mutex
	cfg         Config
	initialized bool
	started     bool

	intake    *pipeline.Intake
	validator *pipeline.Validator
	slots     *pipeline.SlotBank
	selector  *pipeline.Selector
	forwarder *pipeline.Forwarder
	watchdog  *safety.Watchdog
	monitor   *safety.Monitor

	sensors  *core.SensorStore
	liveness *safety.Liveness

	sm *stateMachine

	bcm   BCMCallback
	pulse HeartbeatCallback
}

// New creates an orchestrator in the Initializing state. Pass a nil sink to
// use a non-verbose console sink and a nil clock for the system clock.
func New(clock core.Clock, sink logsink.Sink, cfg Config) *Orchestrator {
	if clock == nil {
		clock = core.SystemClock
	}
	if sink == nil {
		sink = logsink.NewConsole(false)
	}

	o := &Orchestrator{
		clock: clock,
		sink:  sink,
		cfg:   cfg,
	}
	o.sm = newStateMachine(func(from, to core.State, reason string) {
		sink.LogStateTransition(from, to, reason)
	})
	metrics.SetSystemState(string(core.StateInitializing))

	sink.LogInfo(componentName, "orchestrator created")
	return o
}

// Initialize constructs and wires all components. The BCM callback receives
// the arbitrated command stream; the heartbeat callback receives the
// liveness pulse. Returns an error if called twice.
func (o *Orchestrator) Initialize(bcm BCMCallback, pulse HeartbeatCallback) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.initialized {
		o.sink.LogError(componentName, "already initialized")
		return ErrAlreadyInitialized
	}

	o.bcm = bcm
	o.pulse = pulse

	o.intake = pipeline.NewIntake(o.clock)
	o.validator = pipeline.NewValidator(o.clock, o.cfg.Validator)
	o.slots = pipeline.NewSlotBank(o.clock, o.cfg.Validator.FreshnessTimeout)
	o.selector = pipeline.NewSelector(o.slots)
	o.forwarder = pipeline.NewForwarder(o.clock, o.selector, o.cfg.Forwarder)
	o.watchdog = safety.NewWatchdog(o.clock, o.cfg.Watchdog)

	o.sensors = core.NewSensorStore(o.clock)
	o.liveness = safety.NewLiveness(o.clock, o.cfg.SensorHeartbeatTimeout, o.cfg.CommandHeartbeatTimeout)
	o.monitor = safety.NewMonitor(o.clock, o.cfg.Monitor, o.liveness, o.sensors, o.onHalt)

	o.intake.SetCallback(o.handleCommand)

	if err := o.sm.fire(EventInitialized, "initialization complete"); err != nil {
		return err
	}

	o.initialized = true
	o.sink.LogInfo(componentName, "initialization successful")
	return nil
}

// Start launches the three long-lived tasks: the forwarder, the heartbeat
// emitter and the safety monitor.
func (o *Orchestrator) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.initialized {
		o.sink.LogError(componentName, "cannot start - not initialized")
		return ErrNotInitialized
	}
	if o.started {
		return nil
	}

	o.forwarder.Start(o.forward)
	o.watchdog.Start(o.emitPulse)
	o.monitor.Start()

	o.started = true
	o.sink.LogInfo(componentName, "command processing started")
	return nil
}

// Stop halts the periodic tasks in reverse start order. Safe to call on a
// stopped orchestrator.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.initialized || !o.started {
		return
	}

	o.monitor.Stop()
	o.watchdog.Stop()
	o.forwarder.Stop()

	o.started = false
	o.sink.LogInfo(componentName, "command processing stopped")
}

// ProcessCommand feeds one raw command into the intake.
func (o *Orchestrator) ProcessCommand(source core.Source, payload core.Payload, sequence uint64) error {
	o.mu.Lock()
	initialized := o.initialized
	intake := o.intake
	o.mu.Unlock()

	if !initialized {
		o.sink.LogError(componentName, "cannot process command - not initialized")
		return ErrNotInitialized
	}

	metrics.CommandsReceived.WithLabelValues(source.String()).Inc()
	intake.Receive(source, payload, sequence)
	return nil
}

// handleCommand validates a normalized command and stores it on success.
// Invalid commands are logged and dropped; the pipeline continues.
func (o *Orchestrator) handleCommand(cmd core.Command) {
	o.sink.LogCommandReceived(cmd)

	v := o.validator.Validate(cmd)
	metrics.ValidationResults.WithLabelValues(cmd.Source.String(), v.Result.String()).Inc()

	if v.Result != core.ResultValid {
		o.sink.LogCommandRejected(cmd, v)
		return
	}

	o.sink.LogCommandValidated(cmd, v)
	o.slots.Store(cmd)
	o.sink.LogPrioritySelection(cmd.Source, cmd)
}

// forward is the forwarder's dispatch callback: gate on system state, hand
// the command to the BCM and mark the pipeline alive.
func (o *Orchestrator) forward(cmd core.Command) {
	switch o.State() {
	case core.StateNormalOperation, core.StateSafeMode:
	default:
		// Emergency stop, fault or startup: nothing reaches the BCM.
		return
	}

	if o.bcm != nil {
		o.bcm(cmd)
	}
	o.sink.LogCommandForwarded(cmd)
	metrics.CommandsForwarded.WithLabelValues(cmd.Source.String()).Inc()

	o.watchdog.Feed()
	o.liveness.UpdateCommandHeartbeat(o.clock.Now())
}

// emitPulse is the heartbeat emitter's callback.
func (o *Orchestrator) emitPulse() {
	if o.pulse != nil {
		o.pulse()
	}
	o.sink.LogHeartbeat()
}

// onHalt is the monitor's halt hook: audit, clear the slots, transition to
// emergency stop. The monitor's guard makes it run at most once per arming.
func (o *Orchestrator) onHalt(reason string) {
	o.sink.LogEmergencyStop(reason)
	o.slots.ClearAll()

	if err := o.sm.fire(EventEmergency, reason); err != nil {
		o.sink.LogError(componentName, err.Error())
	}
}

// TriggerEmergencyStop manually enters the emergency stop state. Idempotent:
// repeated triggers leave identical observable state.
func (o *Orchestrator) TriggerEmergencyStop() {
	o.mu.Lock()
	monitor := o.monitor
	o.mu.Unlock()

	if monitor == nil {
		return
	}
	monitor.ExecuteImmediateHalt("manual emergency stop triggered")
}

// EnterSafeMode transitions to degraded operation.
func (o *Orchestrator) EnterSafeMode(reason string) error {
	return o.sm.fire(EventDegrade, reason)
}

// DeclareFault marks the system unrecoverable. Only a process restart exits
// the Fault state.
func (o *Orchestrator) DeclareFault(reason string) error {
	return o.sm.fire(EventFault, reason)
}

// Reset clears all transient state and returns to normal operation: slots
// emptied, validator sequence tracking dropped, selector statistics zeroed,
// liveness deadlines reprimed, halt path rearmed. Fails in the Fault state.
func (o *Orchestrator) Reset() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.initialized {
		return ErrNotInitialized
	}

	switch o.sm.state() {
	case core.StateFault:
		o.sink.LogError(componentName, "reset refused in Fault state")
		return ErrFaulted
	}

	o.sink.LogInfo(componentName, "resetting to normal operation")

	o.slots.ClearAll()
	o.validator.Reset()
	o.selector.ResetStatistics()
	o.liveness.Reprime()
	o.monitor.RearmHalt()

	if o.sm.state() != core.StateNormalOperation {
		if err := o.sm.fire(EventReset, "operator reset"); err != nil {
			return err
		}
	}

	o.sink.LogInfo(componentName, "reset complete")
	return nil
}

// SetConfig replaces the composite configuration. Only allowed while the
// periodic tasks are stopped. After Initialize, only the validator, forwarder
// and watchdog settings are applied to the running components; the monitor
// thresholds, the task-alive deadlines and the slot freshness timeout keep
// the values they had at Initialize, and Reset does not re-apply them.
func (o *Orchestrator) SetConfig(cfg Config) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.started {
		return ErrRunning
	}

	o.cfg = cfg
	if o.initialized {
		o.validator.SetConfig(cfg.Validator)
		o.forwarder.SetConfig(cfg.Forwarder)
		o.watchdog.SetConfig(cfg.Watchdog)
	}
	return nil
}

// State returns the current system state.
func (o *Orchestrator) State() core.State {
	return o.sm.state()
}

// IsHalted reports whether the emergency halt has fired since the last reset.
func (o *Orchestrator) IsHalted() bool {
	o.mu.Lock()
	monitor := o.monitor
	o.mu.Unlock()
	return monitor != nil && monitor.IsHalted()
}

// Sensors exposes the sensor snapshot store for the subscriber bridge.
func (o *Orchestrator) Sensors() (*core.SensorStore, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.initialized {
		return nil, ErrNotInitialized
	}
	return o.sensors, nil
}

// Liveness exposes the task-alive table for the subscriber bridge.
func (o *Orchestrator) Liveness() (*safety.Liveness, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.initialized {
		return nil, ErrNotInitialized
	}
	return o.liveness, nil
}

// Statistics returns a snapshot of every component's counters.
func (o *Orchestrator) Statistics() (Statistics, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.initialized {
		return Statistics{State: o.sm.state()}, ErrNotInitialized
	}

	return Statistics{
		Intake:    o.intake.Statistics(),
		Selector:  o.selector.Statistics(),
		Forwarder: o.forwarder.Statistics(),
		Watchdog:  o.watchdog.Statistics(),
		State:     o.sm.state(),
	}, nil
}

// String implements fmt.Stringer for diagnostics.
func (o *Orchestrator) String() string {
	return fmt.Sprintf("Orchestrator(state=%s)", o.State())
}
