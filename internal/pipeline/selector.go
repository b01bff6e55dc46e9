package pipeline

import (
	"sync"

	"github.com/groundguard-io/groundguard/internal/core"
)

// SelectorStatistics is a snapshot of the selection counters.
type SelectorStatistics struct {
	SelectionsMade     uint64
	SelectionsBySource [core.NumSources]uint64
	NoValidCommand     uint64
	LastSelected       core.Source
}

// Selector probes the slots in fixed priority order and returns the first
// fresh command. A successful selection does not consume the slot: the BCM
// expects a command every period, so repeating a fresh command is the
// correct behavior until a newer one arrives or it goes stale.
type Selector struct {
	slots *SlotBank

	mu     sync.Mutex
	active core.Source
	stats  SelectorStatistics
}

// NewSelector creates a selector borrowing the given slot bank.
func NewSelector(slots *SlotBank) *Selector {
	return &Selector{
		slots:  slots,
		active: core.SourceNone,
		stats:  SelectorStatistics{LastSelected: core.SourceNone},
	}
}

// Select returns the highest-priority fresh command, if any.
func (s *Selector) Select() (core.Command, bool) {
	var selected core.Command
	found := false
	for _, src := range core.SourcesByPriority {
		if cmd, ok := s.slots.Get(src); ok {
			selected, found = cmd, true
			break
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.SelectionsMade++

	if !found {
		s.stats.NoValidCommand++
		s.active = core.SourceNone
		s.stats.LastSelected = core.SourceNone
		return core.Command{}, false
	}

	s.active = selected.Source
	s.stats.LastSelected = selected.Source
	s.stats.SelectionsBySource[selected.Source]++
	return selected, true
}

// ActiveSource returns the source of the most recent selection, or
// SourceNone if the last probe found nothing.
func (s *Selector) ActiveSource() core.Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Statistics returns a copy of the selection counters.
func (s *Selector) Statistics() SelectorStatistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// ResetStatistics zeroes the counters.
func (s *Selector) ResetStatistics() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = SelectorStatistics{LastSelected: core.SourceNone}
}
