package service

import (
	"time"

	"doorman/internal/mailbox"
	"doorman/internal/models"
)

// StatusReader loads the last consumed event.
type StatusReader interface {
	Load() (models.PersistedStatus, error)
}

// DetectorView is the read side of the detection loop.
type DetectorView interface {
	Snapshot() DetectionSnapshot
}

type MonitoringService struct {
	status   StatusReader
	detector DetectorView // nil in capture-only processes
	mbox     mailbox.Mailbox
	now      func() time.Time
}

func NewMonitoringService(status StatusReader, detector DetectorView, mbox mailbox.Mailbox) *MonitoringService {
	return &MonitoringService{status: status, detector: detector, mbox: mbox, now: time.Now}
}

// GetStatus combines the status file, the detector snapshot and mailbox counters.
// Before the first capture the status file reads as the empty placeholder.
func (s *MonitoringService) GetStatus() (Status, error) {
	st, err := s.status.Load()
	if err != nil {
		return Status{}, err
	}
	out := Status{
		LastConsumed: st,
		UpdatedAt:    s.now().UTC(),
	}
	if s.detector != nil {
		out.Detector = s.detector.Snapshot()
	}
	if s.mbox != nil {
		out.Mailbox = s.mbox.Stats()
	}
	return out, nil
}
