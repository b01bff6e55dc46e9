package bridge

import (
	"github.com/groundguard-io/groundguard/internal/core"
)

// commandMessage is the wire format of the per-source command ingress
// topics.
type commandMessage struct {
	Sequence         uint64  `json:"seq"`
	SteeringAngleDeg float32 `json:"steeringAngleDeg"`
	SpeedMps         float32 `json:"speedMps"`
	AccelerationMps2 float32 `json:"accelerationMps2"`
	BrakeEngaged     bool    `json:"brakeEngaged"`
}

func (m commandMessage) payload() core.Payload {
	return core.Payload{
		SteeringAngleDeg: m.SteeringAngleDeg,
		SpeedMps:         m.SpeedMps,
		AccelerationMps2: m.AccelerationMps2,
		BrakeEngaged:     m.BrakeEngaged,
	}
}

// sensorMessage is the wire format of the sensor feed topics. Feeders
// publish a single numeric value.
type sensorMessage struct {
	Value float32 `json:"value"`
}

// bcmMessage is the wire format of the BCM egress topic.
type bcmMessage struct {
	Source           string  `json:"source"`
	Sequence         uint64  `json:"seq"`
	SteeringAngleDeg float32 `json:"steeringAngleDeg"`
	SpeedMps         float32 `json:"speedMps"`
	AccelerationMps2 float32 `json:"accelerationMps2"`
	BrakeEngaged     bool    `json:"brakeEngaged"`
}

// pulseMessage is the wire format of the watchdog pulse egress topic.
type pulseMessage struct {
	VehicleID string `json:"vehicleId"`
	Timestamp int64  `json:"timestamp"`
}
