package pipeline

import (
	"sync"
	"time"

	"github.com/groundguard-io/groundguard/internal/core"
)

// DefaultFreshnessTimeout is the maximum age at which a stored command is
// still handed out.
const DefaultFreshnessTimeout = 200 * time.Millisecond

// SlotBank holds the latest accepted command per source, gated by freshness
// on read. A stale entry is NOT cleared by the read that observes it: a
// concurrent fresh store may be about to land, and overwriting is the only
// mutation a tombstoned entry ever needs.
type SlotBank struct {
	clock     core.Clock
	freshness time.Duration

	slots [core.NumSources]slot
}

type slot struct {
	mu  sync.Mutex
	cmd *core.Command
}

// NewSlotBank creates an empty bank. A zero freshness falls back to the
// default 200 ms.
func NewSlotBank(clock core.Clock, freshness time.Duration) *SlotBank {
	if clock == nil {
		clock = core.SystemClock
	}
	if freshness <= 0 {
		freshness = DefaultFreshnessTimeout
	}
	return &SlotBank{clock: clock, freshness: freshness}
}

// Store replaces the slot for the command's source. Commands with an invalid
// source are dropped.
func (b *SlotBank) Store(cmd core.Command) {
	if !cmd.Source.Valid() {
		return
	}

	s := &b.slots[cmd.Source]
	s.mu.Lock()
	defer s.mu.Unlock()
	c := cmd
	s.cmd = &c
}

// Get returns the stored command for source if present and fresh.
func (b *SlotBank) Get(source core.Source) (core.Command, bool) {
	if !source.Valid() {
		return core.Command{}, false
	}

	s := &b.slots[source]
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd == nil {
		return core.Command{}, false
	}
	if s.cmd.Age(b.clock.Now()) > b.freshness {
		return core.Command{}, false
	}
	return *s.cmd, true
}

// HasFresh reports whether a fresh command is stored for source.
func (b *SlotBank) HasFresh(source core.Source) bool {
	_, ok := b.Get(source)
	return ok
}

// Clear empties the slot for one source.
func (b *SlotBank) Clear(source core.Source) {
	if !source.Valid() {
		return
	}
	s := &b.slots[source]
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cmd = nil
}

// ClearAll empties every slot.
func (b *SlotBank) ClearAll() {
	for i := range b.slots {
		s := &b.slots[i]
		s.mu.Lock()
		s.cmd = nil
		s.mu.Unlock()
	}
}

// Age returns how old the stored command for source is. The second return is
// false when the slot is empty.
func (b *SlotBank) Age(source core.Source) (time.Duration, bool) {
	if !source.Valid() {
		return 0, false
	}

	s := &b.slots[source]
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd == nil {
		return 0, false
	}
	return s.cmd.Age(b.clock.Now()), true
}
