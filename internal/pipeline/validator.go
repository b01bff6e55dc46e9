package pipeline

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/groundguard-io/groundguard/internal/core"
)

// ValidatorConfig carries the validation limits.
type ValidatorConfig struct {
	FreshnessTimeout    time.Duration `json:"freshness-timeout" mapstructure:"freshness-timeout"`
	MaxSteeringDeg      float32       `json:"max-steering-deg" mapstructure:"max-steering-deg"`
	MaxSpeedMps         float32       `json:"max-speed-mps" mapstructure:"max-speed-mps"`
	MaxAccelerationMps2 float32       `json:"max-acceleration-mps2" mapstructure:"max-acceleration-mps2"`
}

// DefaultValidatorConfig returns the production limits.
func DefaultValidatorConfig() ValidatorConfig {
	return ValidatorConfig{
		FreshnessTimeout:    DefaultFreshnessTimeout,
		MaxSteeringDeg:      45,
		MaxSpeedMps:         30,
		MaxAccelerationMps2: 5,
	}
}

// Validator applies the fixed check order (structure, freshness, sequence,
// range) and tracks per-source sequence numbers. Safe for concurrent use from
// multiple source callbacks.
type Validator struct {
	clock core.Clock

	mu       sync.Mutex
	cfg      ValidatorConfig
	lastSeqs map[core.Source]uint64
}

// NewValidator creates a validator with the given config.
func NewValidator(clock core.Clock, cfg ValidatorConfig) *Validator {
	if clock == nil {
		clock = core.SystemClock
	}
	if cfg.FreshnessTimeout <= 0 {
		cfg = DefaultValidatorConfig()
	}
	return &Validator{
		clock:    clock,
		cfg:      cfg,
		lastSeqs: make(map[core.Source]uint64),
	}
}

// Validate runs the checks in fixed order and returns the first failure.
// The sequence mapping is consumed at sequence-check time: a command that
// later fails the range check has still claimed its sequence number.
func (v *Validator) Validate(cmd core.Command) core.Validation {
	now := v.clock.Now()

	v.mu.Lock()
	defer v.mu.Unlock()

	if !cmd.Source.Valid() {
		return core.Validation{
			Result: core.ResultInvalidStructure,
			Reason: fmt.Sprintf("unknown command source %d", cmd.Source),
			At:     now,
		}
	}

	if age := cmd.Age(now); age > v.cfg.FreshnessTimeout {
		return core.Validation{
			Result: core.ResultStaleTimestamp,
			Reason: fmt.Sprintf("command is %d ms old, limit %d ms", age.Milliseconds(), v.cfg.FreshnessTimeout.Milliseconds()),
			At:     now,
		}
	}

	if !v.sequenceValidLocked(cmd.Source, cmd.Sequence) {
		return core.Validation{
			Result: core.ResultInvalidSequence,
			Reason: "sequence number not strictly increasing",
			At:     now,
		}
	}

	if reason, ok := v.payloadInRange(cmd.Payload); !ok {
		return core.Validation{
			Result: core.ResultOutOfRange,
			Reason: reason,
			At:     now,
		}
	}

	return core.Validation{Result: core.ResultValid, Reason: "valid", At: now}
}

// SetConfig replaces the limits. Takes effect for subsequent validations.
func (v *Validator) SetConfig(cfg ValidatorConfig) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cfg = cfg
}

// Config returns the current limits.
func (v *Validator) Config() ValidatorConfig {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cfg
}

// Reset clears the per-source sequence mapping. Used after fault recovery;
// the next command from each source is accepted regardless of its sequence.
func (v *Validator) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.lastSeqs = make(map[core.Source]uint64)
}

func (v *Validator) sequenceValidLocked(source core.Source, seq uint64) bool {
	last, seen := v.lastSeqs[source]
	if seen && seq <= last {
		return false
	}
	v.lastSeqs[source] = seq
	return true
}

func (v *Validator) payloadInRange(p core.Payload) (string, bool) {
	if abs32(p.SteeringAngleDeg) > v.cfg.MaxSteeringDeg {
		return fmt.Sprintf("steering angle %.1f deg exceeds limit %.1f deg", p.SteeringAngleDeg, v.cfg.MaxSteeringDeg), false
	}
	if p.SpeedMps < 0 || p.SpeedMps > v.cfg.MaxSpeedMps {
		return fmt.Sprintf("speed %.2f m/s outside [0, %.2f]", p.SpeedMps, v.cfg.MaxSpeedMps), false
	}
	if abs32(p.AccelerationMps2) > v.cfg.MaxAccelerationMps2 {
		return fmt.Sprintf("acceleration %.2f m/s^2 exceeds limit %.2f m/s^2", p.AccelerationMps2, v.cfg.MaxAccelerationMps2), false
	}
	return "", true
}

func abs32(f float32) float32 {
	return float32(math.Abs(float64(f)))
}
