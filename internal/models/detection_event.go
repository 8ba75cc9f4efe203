package models

import (
	"fmt"
	"time"
)

// filenameLayout is the seconds part of an event filename; microseconds are appended.
const filenameLayout = "20060102-150405"

// DetectionEvent is the unit of coordination between the detection and capture loops.
type DetectionEvent struct {
	Filename    string  `json:"filename"`    // UTC stamp, doubles as storage key stem
	Temperature float64 `json:"temperature"` // peak reading that caused the trigger
	Uploaded    bool    `json:"uploaded"`    // set once the capture loop handed it off
}

// EmptyEvent is the placeholder the mailbox holds when nothing is pending.
func EmptyEvent() DetectionEvent {
	return DetectionEvent{}
}

// NewDetectionEvent stamps a fresh, unconsumed event at the given instant.
func NewDetectionEvent(at time.Time, temperature float64) DetectionEvent {
	return DetectionEvent{
		Filename:    FilenameFor(at),
		Temperature: temperature,
		Uploaded:    false,
	}
}

// FilenameFor renders t in UTC as YYYYMMDD-HHMMSS-ffffff.
func FilenameFor(t time.Time) string {
	u := t.UTC()
	return fmt.Sprintf("%s-%06d", u.Format(filenameLayout), u.Nanosecond()/int(time.Microsecond))
}

// IsEmpty reports whether e is the placeholder.
func (e DetectionEvent) IsEmpty() bool {
	return e.Filename == ""
}

// Pending reports whether e still waits for the capture loop.
func (e DetectionEvent) Pending() bool {
	return !e.IsEmpty() && !e.Uploaded
}
