// Package mailbox implements the single-slot trigger channel between the
// detection loop (producer) and the capture loop (consumer).
//
// Semantics:
//   - Publish overwrites the slot unconditionally and never blocks.
//   - TryConsume is a non-blocking read that does NOT remove the content.
//   - ClearIf resets the slot to the empty placeholder only while it still
//     holds the event the consumer read, so a newer event published in
//     between survives for the next poll.
//
// A pending event that is overwritten before anyone read it is counted as
// dropped; it is never delivered separately.
package mailbox

import "doorman/internal/models"

// Mailbox is the producer/consumer contract shared by both implementations.
type Mailbox interface {
	Publish(ev models.DetectionEvent) error
	TryConsume() (models.DetectionEvent, error)
	// ClearIf empties the slot if it still holds filename and reports
	// whether it did.
	ClearIf(filename string) (bool, error)
	Clear() error
	Stats() Stats
}

// Stats are per-process counters. Dropped is exact when producer and
// consumer share a process; across processes the producer cannot see reads,
// so every overwrite of a pending slot counts.
type Stats struct {
	Published  uint64 `json:"published"`
	Dropped    uint64 `json:"dropped"`
	Cleared    uint64 `json:"cleared"`
	Superseded uint64 `json:"superseded"` // ClearIf found a newer event
}
