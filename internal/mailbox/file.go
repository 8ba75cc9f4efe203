package mailbox

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"doorman/internal/atomicfile"
	"doorman/internal/models"
)

// File keeps the slot in a small JSON document so the detection and capture
// loops can run as separate processes. Every write replaces the whole
// document with a rename, so a reader sees either the old or the new event.
type File struct {
	path string

	mu    sync.Mutex
	read  string // filename last returned by TryConsume in this process
	stats Stats
}

// NewFile opens the slot at path, creating it with the placeholder if absent.
// An existing slot is left untouched so a pending event survives a restart
// of either process.
func NewFile(path string) (*File, error) {
	if path == "" {
		return nil, errors.New("mailbox path is empty")
	}
	f := &File{path: path}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := atomicfile.WriteJSON(path, models.EmptyEvent()); err != nil {
			return nil, fmt.Errorf("init mailbox: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat mailbox %q: %w", path, err)
	}
	return f, nil
}

// Path returns the slot file location.
func (f *File) Path() string { return f.path }

// Publish overwrites the slot file.
func (f *File) Publish(ev models.DetectionEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if prev, err := f.load(); err == nil && prev.Pending() && prev.Filename != f.read {
		f.stats.Dropped++
	}
	if err := atomicfile.WriteJSON(f.path, ev); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	f.stats.Published++
	return nil
}

// TryConsume reads the slot without modifying it. A missing file reads as empty.
func (f *File) TryConsume() (models.DetectionEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ev, err := f.load()
	if errors.Is(err, os.ErrNotExist) {
		return models.EmptyEvent(), nil
	}
	if err != nil {
		return models.EmptyEvent(), fmt.Errorf("try consume: %w", err)
	}
	if ev.Pending() {
		f.read = ev.Filename
	}
	return ev, nil
}

// ClearIf rewrites the slot with the placeholder when it still holds
// filename. The compare and the rename are serialized within this process
// only; a publish from another process between them is lost.
func (f *File) ClearIf(filename string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	cur, err := f.load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("clear: %w", err)
	}
	if cur.Filename != filename {
		f.stats.Superseded++
		return false, nil
	}
	if err := atomicfile.WriteJSON(f.path, models.EmptyEvent()); err != nil {
		return false, fmt.Errorf("clear: %w", err)
	}
	f.stats.Cleared++
	return true, nil
}

// Clear writes the placeholder into the slot file whatever it holds.
func (f *File) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := atomicfile.WriteJSON(f.path, models.EmptyEvent()); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	f.stats.Cleared++
	return nil
}

// Stats returns this process's counters.
func (f *File) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats
}

func (f *File) load() (models.DetectionEvent, error) {
	var ev models.DetectionEvent
	if err := atomicfile.ReadJSON(f.path, &ev); err != nil {
		return models.EmptyEvent(), err
	}
	return ev, nil
}
