// Package daemon assembles and runs the full safety core process: the
// orchestrator with its periodic tasks, the MQTT bridge and the HTTP status
// server.
package daemon

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/groundguard-io/groundguard/internal/bridge"
	"github.com/groundguard-io/groundguard/internal/core"
	"github.com/groundguard-io/groundguard/internal/processor"
	"github.com/groundguard-io/groundguard/internal/statusserver"
	"github.com/groundguard-io/groundguard/pkg/log"
	"github.com/groundguard-io/groundguard/pkg/mqtt"
	mqtttopic "github.com/groundguard-io/groundguard/pkg/mqtt/topic"
	"github.com/groundguard-io/groundguard/pkg/options"
)

// server is the common lifecycle of the long-running sub-servers.
type server interface {
	Start(ctx context.Context) error
}

// Daemon ties the orchestrator to its transports.
type Daemon struct {
	vehicleID string

	orch        *processor.Orchestrator
	mqttClient  mqtt.Client
	topics      *mqtttopic.Builder
	httpOptions *options.HttpOptions
	sinkCloser  func() error
}

// Run wires the callbacks, starts the core and serves until ctx is
// canceled.
func (d *Daemon) Run(ctx context.Context) error {
	log.Info("Starting safety core", "vehicleID", d.vehicleID)

	br, err := d.initialize()
	if err != nil {
		return err
	}

	if err := d.orch.Start(); err != nil {
		return err
	}
	defer d.orch.Stop()

	if d.sinkCloser != nil {
		defer func() { _ = d.sinkCloser() }()
	}

	servers := []server{
		br,
		statusserver.NewServer(d.httpOptions, d.orch),
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, s := range servers {
		srv := s
		g.Go(func() error {
			return srv.Start(ctx)
		})
	}

	log.Info("All servers starting...")
	err = g.Wait()
	log.Info("Safety core shutting down...")
	return err
}

// initialize builds the bridge and hands its egress paths to the
// orchestrator as the BCM and heartbeat callbacks. The callbacks close over
// the bridge variable: the orchestrator must be initialized before the
// bridge can exist, and neither task runs until Start.
func (d *Daemon) initialize() (*bridge.Bridge, error) {
	var br *bridge.Bridge

	err := d.orch.Initialize(
		func(cmd core.Command) {
			if br != nil {
				br.PublishBCM(cmd)
			}
		},
		func() {
			if br != nil {
				br.PublishPulse()
			}
		},
	)
	if err != nil {
		return nil, err
	}

	br, err = bridge.New(d.vehicleID, d.mqttClient, d.topics, d.orch)
	if err != nil {
		return nil, err
	}
	return br, nil
}
