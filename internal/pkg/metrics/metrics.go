package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry is the process-wide metrics registry. The status server exposes it
// on /metrics.
var Registry = prometheus.NewRegistry()

var (
	// CommandsReceived counts raw commands entering the intake, per source.
	CommandsReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groundguard_commands_received_total",
			Help: "Total number of raw commands received by the intake.",
		},
		[]string{"source"},
	)

	// ValidationResults counts validation outcomes per source and result.
	ValidationResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groundguard_validation_results_total",
			Help: "Total number of command validations by outcome.",
		},
		[]string{"source", "result"},
	)

	// CommandsForwarded counts commands dispatched to the BCM, per source.
	CommandsForwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groundguard_commands_forwarded_total",
			Help: "Total number of commands forwarded to the BCM.",
		},
		[]string{"source"},
	)

	// NoCommandCycles counts forwarder ticks with no fresh command available.
	NoCommandCycles = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "groundguard_no_command_cycles_total",
			Help: "Forwarder ticks on which no fresh command was available.",
		},
	)

	// ForwardLoopSeconds observes the forwarder's per-tick processing time.
	ForwardLoopSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "groundguard_forward_loop_seconds",
			Help:    "Processing time of one forwarder tick (select + dispatch).",
			Buckets: prometheus.ExponentialBuckets(10e-6, 2, 12), // 10us .. ~20ms
		},
	)

	// HeartbeatsSent counts pulses emitted to the external watchdog.
	HeartbeatsSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "groundguard_heartbeats_sent_total",
			Help: "Total number of heartbeats emitted to the external watchdog.",
		},
	)

	// EmergencyStops counts emergency halt executions (idempotent entries
	// count once).
	EmergencyStops = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "groundguard_emergency_stops_total",
			Help: "Total number of emergency halt executions.",
		},
	)

	// SystemState reports the current operating state as a one-hot gauge.
	SystemState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "groundguard_system_state",
			Help: "Current system state (1 for the active state, 0 otherwise).",
		},
		[]string{"state"},
	)
)

func init() {
	Registry.MustRegister(
		CommandsReceived,
		ValidationResults,
		CommandsForwarded,
		NoCommandCycles,
		ForwardLoopSeconds,
		HeartbeatsSent,
		EmergencyStops,
		SystemState,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// SetSystemState flips the one-hot state gauge to the given state.
func SetSystemState(state string) {
	for _, s := range []string{"Initializing", "NormalOperation", "SafeMode", "EmergencyStop", "Fault"} {
		v := 0.0
		if s == state {
			v = 1.0
		}
		SystemState.WithLabelValues(s).Set(v)
	}
}
