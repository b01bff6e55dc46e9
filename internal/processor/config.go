package processor

import (
	"time"

	"github.com/groundguard-io/groundguard/internal/pipeline"
	"github.com/groundguard-io/groundguard/internal/safety"
)

// Config aggregates the tunable parameters of every pipeline stage. It is
// applied via SetConfig before or between start/stop cycles (see
// Orchestrator.SetConfig for which parts take effect after Initialize);
// there is no live re-apply.
type Config struct {
	Validator pipeline.ValidatorConfig `json:"validator" mapstructure:"validator"`
	Forwarder pipeline.ForwarderConfig `json:"forwarder" mapstructure:"forwarder"`
	Watchdog  safety.WatchdogConfig    `json:"watchdog" mapstructure:"watchdog"`
	Monitor   safety.MonitorConfig     `json:"monitor" mapstructure:"monitor"`

	// Task-alive deadlines checked by the safety monitor.
	SensorHeartbeatTimeout  time.Duration `json:"sensor-heartbeat-timeout" mapstructure:"sensor-heartbeat-timeout"`
	CommandHeartbeatTimeout time.Duration `json:"command-heartbeat-timeout" mapstructure:"command-heartbeat-timeout"`
}

// DefaultConfig returns the production parameter set.
func DefaultConfig() Config {
	return Config{
		Validator:               pipeline.DefaultValidatorConfig(),
		Forwarder:               pipeline.DefaultForwarderConfig(),
		Watchdog:                safety.DefaultWatchdogConfig(),
		Monitor:                 safety.DefaultMonitorConfig(),
		SensorHeartbeatTimeout:  safety.DefaultSensorHeartbeatTimeout,
		CommandHeartbeatTimeout: safety.DefaultCommandHeartbeatTimeout,
	}
}
