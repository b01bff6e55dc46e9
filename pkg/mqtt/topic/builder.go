package topic

import (
	"fmt"
)

// Constants defining the standard topic segments.
// These act as the protocol contract between the safety core and the
// surrounding vehicle processes (sensor feeders, BCM, external watchdog).
// Changing these values breaks compatibility with deployed vehicles.
const (
	// SegmentSensorSpeed carries the vehicle speed feed (f32 m/s).
	// Structure: {root}/ros_data/speed
	SegmentSensorSpeed = "ros_data/speed"

	// SegmentSensorBattery carries the battery voltage feed (f32 V).
	// Structure: {root}/ros_data/battery/voltage
	SegmentSensorBattery = "ros_data/battery/voltage"

	// SegmentCommand is the per-source command ingress.
	// Structure: {root}/command/{safety|manual|remote|autonomous}
	SegmentCommand = "command"

	// SegmentBCM is the downstream egress for the arbitrated command.
	// Structure: {root}/bcm/command
	SegmentBCM = "bcm/command"

	// SegmentWatchdogPulse is the liveness pulse egress consumed by the
	// external safety processor.
	// Structure: {root}/watchdog/pulse
	SegmentWatchdogPulse = "watchdog/pulse"
)

// Builder encapsulates the logic for constructing MQTT topic strings.
// It keeps the topic topology in one place instead of scattering
// fmt.Sprintf calls across the bridge.
type Builder struct {
	// root is the base namespace for all topics (e.g., "agv/v1").
	root string
}

// NewBuilder creates a new Builder with the specified root namespace.
func NewBuilder(root string) *Builder {
	return &Builder{root: root}
}

// SensorSpeed returns the topic the speed feeder publishes to.
func (b *Builder) SensorSpeed() string {
	return b.join(SegmentSensorSpeed)
}

// SensorBattery returns the topic the battery feeder publishes to.
func (b *Builder) SensorBattery() string {
	return b.join(SegmentSensorBattery)
}

// Command returns the command ingress topic for a single source name.
// Source names are lowercase ("safety", "manual", "remote", "autonomous").
func (b *Builder) Command(source string) string {
	return b.join(SegmentCommand, source)
}

// CommandWildcard returns the filter matching every command source.
// Result: {root}/command/+
func (b *Builder) CommandWildcard() string {
	return b.join(SegmentCommand, Wildcard)
}

// BCMCommand returns the egress topic for the arbitrated command.
func (b *Builder) BCMCommand() string {
	return b.join(SegmentBCM)
}

// WatchdogPulse returns the egress topic for the liveness pulse.
func (b *Builder) WatchdogPulse() string {
	return b.join(SegmentWatchdogPulse)
}

// join constructs the final topic string below the root namespace.
func (b *Builder) join(segments ...string) string {
	topic := b.root
	for _, s := range segments {
		topic = fmt.Sprintf("%s/%s", topic, s)
	}
	return topic
}
