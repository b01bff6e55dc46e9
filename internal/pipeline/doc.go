// Package pipeline implements the priority-arbitrated command path: intake
// normalization, validation, per-source latest-value slots, the priority
// selector and the periodic forwarder. Components are wired by the processor
// package; each one is independently testable.
package pipeline
