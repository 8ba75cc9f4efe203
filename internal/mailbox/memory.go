package mailbox

import (
	"sync"

	"doorman/internal/models"
)

// Memory is a mutex-protected cell used when both loops run in one process.
type Memory struct {
	mu    sync.Mutex
	slot  models.DetectionEvent
	read  string // filename last returned by TryConsume
	stats Stats
}

// NewMemory returns a mailbox holding the empty placeholder.
func NewMemory() *Memory {
	return &Memory{slot: models.EmptyEvent()}
}

// Publish overwrites the slot.
func (m *Memory) Publish(ev models.DetectionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.slot.Pending() && m.slot.Filename != m.read {
		m.stats.Dropped++
	}
	m.slot = ev
	m.stats.Published++
	return nil
}

// TryConsume returns the slot content, or the placeholder when empty.
func (m *Memory) TryConsume() (models.DetectionEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.slot.Pending() {
		m.read = m.slot.Filename
	}
	return m.slot, nil
}

// ClearIf resets the slot when it still holds filename.
func (m *Memory) ClearIf(filename string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.slot.Filename != filename {
		m.stats.Superseded++
		return false, nil
	}
	m.slot = models.EmptyEvent()
	m.stats.Cleared++
	return true, nil
}

// Clear resets the slot to the placeholder whatever it holds.
func (m *Memory) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.slot = models.EmptyEvent()
	m.stats.Cleared++
	return nil
}

// Stats returns a snapshot of the counters.
func (m *Memory) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}
