package daemon

import (
	"fmt"
	"os"

	"github.com/groundguard-io/groundguard/internal/core"
	"github.com/groundguard-io/groundguard/internal/logsink"
	"github.com/groundguard-io/groundguard/internal/processor"
	"github.com/groundguard-io/groundguard/pkg/log"
	"github.com/groundguard-io/groundguard/pkg/mqtt"
	mqtttopic "github.com/groundguard-io/groundguard/pkg/mqtt/topic"
	"github.com/groundguard-io/groundguard/pkg/options"
)

// Config carries everything needed to assemble the safety core daemon.
type Config struct {
	VehicleID string

	MqttOptions *options.MqttOptions
	HttpOptions *options.HttpOptions

	// AuditDir, when non-empty, enables the JSONL audit trail next to the
	// structured log.
	AuditDir string

	Core processor.Config
}

// NewDaemon builds the full process: orchestrator, bridge and status server,
// wired but not yet running.
func (cfg *Config) NewDaemon() (*Daemon, error) {
	vid := cfg.VehicleID
	if vid == "" {
		host, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("unable to derive a vehicle ID: %w", err)
		}
		vid = host
	}

	sink, closer, err := cfg.buildSink()
	if err != nil {
		return nil, err
	}

	orch := processor.New(core.SystemClock, sink, cfg.Core)

	mqttClient, topics, err := cfg.initMqttClientAndTopics(vid)
	if err != nil {
		return nil, fmt.Errorf("failed to init mqtt client: %w", err)
	}

	return &Daemon{
		vehicleID:   vid,
		orch:        orch,
		mqttClient:  mqttClient,
		topics:      topics,
		httpOptions: cfg.HttpOptions,
		sinkCloser:  closer,
	}, nil
}

// buildSink composes the audit sinks: structured logging always, JSONL when
// a directory is configured.
func (cfg *Config) buildSink() (logsink.Sink, func() error, error) {
	zapSink := logsink.NewZap(log.Std())

	if cfg.AuditDir == "" {
		return zapSink, nil, nil
	}

	fileSink, err := logsink.NewJSONL(cfg.AuditDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open audit trail: %w", err)
	}

	return logsink.Tee(zapSink, fileSink), fileSink.Close, nil
}

func (cfg *Config) initMqttClientAndTopics(vid string) (mqtt.Client, *mqtttopic.Builder, error) {
	topics := mqtttopic.NewBuilder(cfg.MqttOptions.TopicRoot)

	clientConfig := cfg.MqttOptions.ToClientConfig()
	if clientConfig.ClientID == "" {
		clientConfig.ClientID = fmt.Sprintf("gguard-core-%s", vid)
	}

	client, err := mqtt.NewClient(clientConfig)
	if err != nil {
		return nil, nil, err
	}

	return client, topics, nil
}
