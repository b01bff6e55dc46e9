// Package bridge connects the safety core to the vehicle's topic fabric:
// sensor feeds and per-source command topics in, arbitrated BCM commands and
// watchdog pulses out. It is the only component that touches the broker; the
// core itself stays transport-free behind callbacks.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/groundguard-io/groundguard/internal/core"
	"github.com/groundguard-io/groundguard/internal/processor"
	"github.com/groundguard-io/groundguard/internal/safety"
	"github.com/groundguard-io/groundguard/pkg/log"
	"github.com/groundguard-io/groundguard/pkg/mqtt"
	mqtttopic "github.com/groundguard-io/groundguard/pkg/mqtt/topic"
)

// Bridge subscribes the core's ingress topics and publishes its egress. The
// orchestrator must be initialized before New so the sensor store and
// liveness table exist.
type Bridge struct {
	vehicleID string

	mc     mqtt.Client
	topics *mqtttopic.Builder
	orch   *processor.Orchestrator

	sensors  *core.SensorStore
	liveness *safety.Liveness
}

// New creates a bridge over an initialized orchestrator.
func New(vehicleID string, client mqtt.Client, topics *mqtttopic.Builder, orch *processor.Orchestrator) (*Bridge, error) {
	sensors, err := orch.Sensors()
	if err != nil {
		return nil, fmt.Errorf("bridge requires an initialized orchestrator: %w", err)
	}
	liveness, err := orch.Liveness()
	if err != nil {
		return nil, err
	}

	return &Bridge{
		vehicleID: vehicleID,
		mc:        client,
		topics:    topics,
		orch:      orch,
		sensors:   sensors,
		liveness:  liveness,
	}, nil
}

// Start connects to the broker and registers the ingress routes, then blocks
// until ctx is canceled. Message handling runs on client goroutines.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.mc.Start(ctx); err != nil {
		return err
	}

	if err := b.mc.AwaitConnection(ctx); err != nil {
		return err
	}

	for topic, handler := range b.routes() {
		h := handler
		err := b.mc.Subscribe(ctx, topic, 1, func(c context.Context, t string, p []byte) {
			if handleErr := h(c, t, p); handleErr != nil {
				log.Error(handleErr, "Handler execution failed", "topic", t)
			}
		})
		if err != nil {
			return err
		}
	}

	<-ctx.Done()
	b.stop()
	return nil
}

func (b *Bridge) stop() {
	log.Info("Disconnecting MQTT client...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	b.mc.Disconnect(ctx)
}

// PublishBCM is the orchestrator's BCM callback: the arbitrated command goes
// out on the BCM egress topic. Errors are logged, never propagated into the
// forwarder loop.
func (b *Bridge) PublishBCM(cmd core.Command) {
	msg := bcmMessage{
		Source:           cmd.Source.String(),
		Sequence:         cmd.Sequence,
		SteeringAngleDeg: cmd.Payload.SteeringAngleDeg,
		SpeedMps:         cmd.Payload.SpeedMps,
		AccelerationMps2: cmd.Payload.AccelerationMps2,
		BrakeEngaged:     cmd.Payload.BrakeEngaged,
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		log.Error(err, "Failed to encode BCM command")
		return
	}

	// QoS 0 and a short deadline: the next frame is 10 ms away, a retry
	// queue would only deliver stale set-points.
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	if err := b.mc.Publish(ctx, b.topics.BCMCommand(), 0, false, payload); err != nil {
		log.Error(err, "Failed to publish BCM command")
	}
}

// PublishPulse is the orchestrator's heartbeat callback.
func (b *Bridge) PublishPulse() {
	msg := pulseMessage{
		VehicleID: b.vehicleID,
		Timestamp: time.Now().UnixMilli(),
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := b.mc.Publish(ctx, b.topics.WatchdogPulse(), 0, false, payload); err != nil {
		log.Error(err, "Failed to publish watchdog pulse")
	}
}

// handleSpeed feeds the sensor snapshot and marks the sensor task alive.
func (b *Bridge) handleSpeed(_ context.Context, _ string, payload []byte) error {
	value, err := decodeSensorValue(payload)
	if err != nil {
		return fmt.Errorf("bad speed payload: %w", err)
	}

	b.sensors.SetSpeed(value)
	b.liveness.UpdateSensorHeartbeat(time.Now())
	return nil
}

// handleBattery feeds the sensor snapshot and marks the sensor task alive.
func (b *Bridge) handleBattery(_ context.Context, _ string, payload []byte) error {
	value, err := decodeSensorValue(payload)
	if err != nil {
		return fmt.Errorf("bad battery payload: %w", err)
	}

	b.sensors.SetBatteryVoltage(value)
	b.liveness.UpdateSensorHeartbeat(time.Now())
	return nil
}

// handleCommand parses a per-source command message and feeds the intake.
// The source is carried by the topic's last segment.
func (b *Bridge) handleCommand(_ context.Context, topic string, payload []byte) error {
	source, ok := core.ParseSource(lastSegment(topic))
	if !ok {
		return fmt.Errorf("command on unknown source topic %q", topic)
	}

	var msg commandMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("bad command payload on %q: %w", topic, err)
	}

	return b.orch.ProcessCommand(source, msg.payload(), msg.Sequence)
}

// decodeSensorValue accepts either a bare number or {"value": N}, matching
// what the different feeder generations publish.
func decodeSensorValue(payload []byte) (float32, error) {
	trimmed := strings.TrimSpace(string(payload))
	if strings.HasPrefix(trimmed, "{") {
		var msg sensorMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			return 0, err
		}
		return msg.Value, nil
	}

	var value float32
	if err := json.Unmarshal(payload, &value); err != nil {
		return 0, err
	}
	return value, nil
}

func lastSegment(topic string) string {
	if i := strings.LastIndex(topic, "/"); i >= 0 {
		return topic[i+1:]
	}
	return topic
}
