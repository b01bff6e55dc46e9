package pipeline

import (
	"testing"
	"time"

	"github.com/groundguard-io/groundguard/internal/core"
)

func TestSelectorPriorityOrder(t *testing.T) {
	clock := newFakeClock()
	bank := NewSlotBank(clock, 0)
	sel := NewSelector(bank)

	// Lowest priority only.
	bank.Store(testCommand(clock, core.SourceAutonomous, 1))
	if cmd, ok := sel.Select(); !ok || cmd.Source != core.SourceAutonomous {
		t.Fatalf("expected autonomous, got %+v ok=%v", cmd, ok)
	}

	// A higher-priority source preempts.
	bank.Store(testCommand(clock, core.SourceRemote, 1))
	if cmd, _ := sel.Select(); cmd.Source != core.SourceRemote {
		t.Errorf("remote should win over autonomous, got %s", cmd.Source)
	}

	bank.Store(testCommand(clock, core.SourceManual, 1))
	if cmd, _ := sel.Select(); cmd.Source != core.SourceManual {
		t.Errorf("manual should win over remote, got %s", cmd.Source)
	}

	bank.Store(testCommand(clock, core.SourceSafety, 1))
	if cmd, _ := sel.Select(); cmd.Source != core.SourceSafety {
		t.Errorf("safety should win over everything, got %s", cmd.Source)
	}
}

func TestSelectorDoesNotConsume(t *testing.T) {
	clock := newFakeClock()
	bank := NewSlotBank(clock, 0)
	sel := NewSelector(bank)

	bank.Store(testCommand(clock, core.SourceRemote, 1))

	// The same fresh command is returned on every probe until it goes stale.
	for i := 0; i < 3; i++ {
		if cmd, ok := sel.Select(); !ok || cmd.Sequence != 1 {
			t.Fatalf("probe %d: got %+v ok=%v", i, cmd, ok)
		}
	}

	stats := sel.Statistics()
	if stats.SelectionsMade != 3 || stats.SelectionsBySource[core.SourceRemote] != 3 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestSelectorStaleFallthrough(t *testing.T) {
	clock := newFakeClock()
	bank := NewSlotBank(clock, 0)
	sel := NewSelector(bank)

	bank.Store(testCommand(clock, core.SourceManual, 1))
	clock.advance(150 * time.Millisecond)
	bank.Store(testCommand(clock, core.SourceRemote, 1))
	clock.advance(100 * time.Millisecond)

	// Manual is now 250 ms old (stale); remote is 100 ms old (fresh).
	cmd, ok := sel.Select()
	if !ok || cmd.Source != core.SourceRemote {
		t.Errorf("expected fallthrough to remote, got %+v ok=%v", cmd, ok)
	}

	clock.advance(150 * time.Millisecond)
	if _, ok := sel.Select(); ok {
		t.Error("everything stale, selection should be empty")
	}

	stats := sel.Statistics()
	if stats.NoValidCommand != 1 {
		t.Errorf("NoValidCommand = %d, want 1", stats.NoValidCommand)
	}
	if stats.LastSelected != core.SourceNone {
		t.Errorf("LastSelected = %s, want NONE", stats.LastSelected)
	}
	if sel.ActiveSource() != core.SourceNone {
		t.Errorf("ActiveSource = %s, want NONE", sel.ActiveSource())
	}
}

func TestSelectorResetStatistics(t *testing.T) {
	clock := newFakeClock()
	bank := NewSlotBank(clock, 0)
	sel := NewSelector(bank)

	bank.Store(testCommand(clock, core.SourceSafety, 1))
	sel.Select()
	sel.ResetStatistics()

	stats := sel.Statistics()
	if stats.SelectionsMade != 0 || stats.SelectionsBySource[core.SourceSafety] != 0 {
		t.Errorf("stats not reset: %+v", stats)
	}
	if stats.LastSelected != core.SourceNone {
		t.Errorf("LastSelected = %s, want NONE", stats.LastSelected)
	}
}
