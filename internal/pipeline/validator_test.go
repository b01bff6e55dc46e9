package pipeline

import (
	"sync"
	"testing"
	"time"

	"github.com/groundguard-io/groundguard/internal/core"
)

func TestValidatorAcceptsFirstCommand(t *testing.T) {
	clock := newFakeClock()
	v := NewValidator(clock, DefaultValidatorConfig())

	out := v.Validate(testCommand(clock, core.SourceRemote, 42))
	if out.Result != core.ResultValid {
		t.Fatalf("first command rejected: %s (%s)", out.Result, out.Reason)
	}
}

func TestValidatorCheckOrder(t *testing.T) {
	clock := newFakeClock()
	v := NewValidator(clock, DefaultValidatorConfig())

	// A command that is stale AND out of range must report staleness: the
	// check order is fixed and the first failure wins.
	cmd := testCommand(clock, core.SourceRemote, 1)
	cmd.Payload.SteeringAngleDeg = 100
	clock.advance(300 * time.Millisecond)

	if out := v.Validate(cmd); out.Result != core.ResultStaleTimestamp {
		t.Errorf("got %s, want STALE_TIMESTAMP", out.Result)
	}
}

func TestValidatorSequenceReplay(t *testing.T) {
	clock := newFakeClock()
	v := NewValidator(clock, DefaultValidatorConfig())

	if out := v.Validate(testCommand(clock, core.SourceRemote, 5)); out.Result != core.ResultValid {
		t.Fatalf("seq 5 rejected: %s", out.Result)
	}

	// Exact replay.
	if out := v.Validate(testCommand(clock, core.SourceRemote, 5)); out.Result != core.ResultInvalidSequence {
		t.Errorf("replayed seq 5: got %s, want INVALID_SEQUENCE", out.Result)
	}

	// Regression.
	if out := v.Validate(testCommand(clock, core.SourceRemote, 4)); out.Result != core.ResultInvalidSequence {
		t.Errorf("seq 4 after 5: got %s, want INVALID_SEQUENCE", out.Result)
	}

	// Strictly greater is accepted; gaps are fine.
	if out := v.Validate(testCommand(clock, core.SourceRemote, 100)); out.Result != core.ResultValid {
		t.Errorf("seq 100 rejected: %s", out.Result)
	}

	// Sequences are tracked per source.
	if out := v.Validate(testCommand(clock, core.SourceManual, 5)); out.Result != core.ResultValid {
		t.Errorf("manual seq 5 rejected: %s", out.Result)
	}
}

func TestValidatorRangeChecks(t *testing.T) {
	clock := newFakeClock()
	v := NewValidator(clock, DefaultValidatorConfig())

	tests := []struct {
		name   string
		mutate func(*core.Payload)
		want   core.Result
	}{
		{"nominal", func(p *core.Payload) {}, core.ResultValid},
		{"steering high", func(p *core.Payload) { p.SteeringAngleDeg = 100 }, core.ResultOutOfRange},
		{"steering low", func(p *core.Payload) { p.SteeringAngleDeg = -46 }, core.ResultOutOfRange},
		{"steering at limit", func(p *core.Payload) { p.SteeringAngleDeg = 45 }, core.ResultValid},
		{"speed negative", func(p *core.Payload) { p.SpeedMps = -0.1 }, core.ResultOutOfRange},
		{"speed high", func(p *core.Payload) { p.SpeedMps = 30.5 }, core.ResultOutOfRange},
		{"speed at limit", func(p *core.Payload) { p.SpeedMps = 30 }, core.ResultValid},
		{"accel high", func(p *core.Payload) { p.AccelerationMps2 = 5.5 }, core.ResultOutOfRange},
		{"accel negative at limit", func(p *core.Payload) { p.AccelerationMps2 = -5 }, core.ResultValid},
	}

	seq := uint64(0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq++
			cmd := testCommand(clock, core.SourceAutonomous, seq)
			tt.mutate(&cmd.Payload)
			if out := v.Validate(cmd); out.Result != tt.want {
				t.Errorf("got %s (%s), want %s", out.Result, out.Reason, tt.want)
			}
		})
	}
}

func TestValidatorUnknownSource(t *testing.T) {
	clock := newFakeClock()
	v := NewValidator(clock, DefaultValidatorConfig())

	cmd := core.Command{Source: core.SourceNone, Timestamp: clock.Now()}
	if out := v.Validate(cmd); out.Result != core.ResultInvalidStructure {
		t.Errorf("got %s, want INVALID_STRUCTURE", out.Result)
	}
}

func TestValidatorReset(t *testing.T) {
	clock := newFakeClock()
	v := NewValidator(clock, DefaultValidatorConfig())

	if out := v.Validate(testCommand(clock, core.SourceRemote, 9)); out.Result != core.ResultValid {
		t.Fatalf("seq 9 rejected: %s", out.Result)
	}
	if out := v.Validate(testCommand(clock, core.SourceRemote, 9)); out.Result != core.ResultInvalidSequence {
		t.Fatalf("replay accepted before reset")
	}

	v.Reset()

	// After reset the previously rejected sequence is accepted again.
	if out := v.Validate(testCommand(clock, core.SourceRemote, 9)); out.Result != core.ResultValid {
		t.Errorf("seq 9 rejected after reset: %s", out.Result)
	}
}

func TestValidatorConcurrentSequenceChecks(t *testing.T) {
	clock := newFakeClock()
	v := NewValidator(clock, DefaultValidatorConfig())

	var wg sync.WaitGroup
	accepted := make([]uint64, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			var count uint64
			for seq := uint64(1); seq <= 1000; seq++ {
				out := v.Validate(testCommand(clock, core.SourceRemote, seq))
				if out.Result == core.ResultValid {
					count++
				}
			}
			accepted[worker] = count
		}(i)
	}
	wg.Wait()

	// Each sequence number can be accepted at most once across all workers.
	var total uint64
	for _, c := range accepted {
		total += c
	}
	if total > 1000 {
		t.Errorf("accepted %d commands for 1000 distinct sequence numbers", total)
	}
}
