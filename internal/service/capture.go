package service

import (
	"context"
	"time"

	"doorman/internal/camera"
	"doorman/internal/logger"
	"doorman/internal/mailbox"
	"doorman/internal/models"
	"doorman/internal/repository"
)

// StatusWriter persists the last consumed event.
type StatusWriter interface {
	Save(st models.PersistedStatus) error
}

// Publisher turns a frame into archived artifacts.
type Publisher interface {
	Handle(ctx context.Context, frame camera.Frame, temperature float64, filename string) Result
}

// CaptureService polls frames and, when a detection event is pending,
// archives the current frame for it.
type CaptureService struct {
	frames    camera.Source
	mbox      mailbox.Mailbox
	status    StatusWriter
	journal   repository.CaptureRepo // optional
	publisher Publisher
	metrics   *Metrics
	log       *logger.Logger

	tick time.Duration
	now  func() time.Time
}

func NewCaptureService(frames camera.Source, mbox mailbox.Mailbox, status StatusWriter, journal repository.CaptureRepo, publisher Publisher, tick time.Duration, metrics *Metrics, log *logger.Logger) *CaptureService {
	if tick <= 0 {
		tick = time.Second / DefaultRateHz
	}
	if log == nil {
		log = logger.Nop()
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &CaptureService{
		frames:    frames,
		mbox:      mbox,
		status:    status,
		journal:   journal,
		publisher: publisher,
		metrics:   metrics,
		log:       log,
		tick:      tick,
		now:       time.Now,
	}
}

// Run polls at frame cadence until ctx is canceled.
func (s *CaptureService) Run(ctx context.Context) {
	t := time.NewTicker(s.tick)
	defer t.Stop()

	s.log.Infow("capture_started", "tick", s.tick)
	for {
		select {
		case <-ctx.Done():
			s.log.Infow("capture_stopped")
			return
		case <-t.C:
			if ctx.Err() != nil {
				continue
			}
			s.iterate(ctx)
		}
	}
}

// iterate runs one poll and reports whether an event was consumed.
func (s *CaptureService) iterate(ctx context.Context) bool {
	frame, err := s.frames.Read(ctx)
	if err != nil {
		s.metrics.FrameErrors.Inc()
		s.log.Warnw("frame_read_failed", "err", err)
		return false
	}
	s.metrics.Frames.Inc()

	ev, err := s.mbox.TryConsume()
	if err != nil {
		s.log.Errorw("mailbox_read_failed", "err", err)
		return false
	}
	if !ev.Pending() {
		return false
	}

	ev.Uploaded = true
	if err := s.status.Save(models.StatusOf(ev)); err != nil {
		s.log.Errorw("status_write_failed", "filename", ev.Filename, "err", err)
	}
	// An event that cannot be cleared stays pending and is retried next poll.
	cleared, err := s.mbox.ClearIf(ev.Filename)
	if err != nil {
		s.log.Errorw("mailbox_clear_failed", "filename", ev.Filename, "err", err)
		return false
	}
	if !cleared {
		s.log.Infow("mailbox_superseded", "filename", ev.Filename)
	}
	s.metrics.Captures.Inc()
	s.log.Infow("capture_consumed", "filename", ev.Filename, "temperature", ev.Temperature, "frame", frame.Seq)

	rec, journaled := s.journalConsumed(ctx, ev)

	res := s.publisher.Handle(ctx, frame, ev.Temperature, ev.Filename)
	state := res.UploadState()
	s.metrics.ArtifactOutcomes.WithLabelValues(string(state)).Inc()
	if err := res.Err(); err != nil {
		s.log.Errorw("capture_publish_failed", "filename", res.Filename, "state", state, "err", err)
	} else {
		s.log.Infow("capture_published", "filename", res.Filename, "state", state, "image", res.ImagePath)
	}

	if journaled {
		rec.LocalImage = res.ImagePath
		rec.LocalMeta = res.MetaPath
		rec.UploadState = state
		rec.UploadError = errString(res.Err())
		rec.UpdatedAt = s.now().UTC()
		if err := s.journal.UpdateUpload(ctx, rec); err != nil {
			s.log.Errorw("journal_update_failed", "filename", rec.Filename, "err", err)
		}
	}
	return true
}

func (s *CaptureService) journalConsumed(ctx context.Context, ev models.DetectionEvent) (models.Capture, bool) {
	if s.journal == nil {
		return models.Capture{}, false
	}
	rec, err := s.journal.Append(ctx, models.Capture{
		Filename:    ev.Filename,
		Temperature: ev.Temperature,
		ConsumedAt:  s.now().UTC(),
		UploadState: models.UploadPending,
	})
	if err != nil {
		s.log.Errorw("journal_append_failed", "filename", ev.Filename, "err", err)
		return models.Capture{}, false
	}
	return rec, true
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
