package service

import (
	"context"
	"time"

	"doorman/internal/connectivity"
	"doorman/internal/logger"
	"doorman/internal/models"
	"doorman/internal/repository"
)

const resyncBatch = 1000

// Redriver uploads artifacts that are already archived locally.
type Redriver interface {
	Redrive(ctx context.Context, filename string) error
}

// ResyncService re-drives captures whose remote copy is missing.
type ResyncService struct {
	captures repository.CaptureRepo
	redriver Redriver
	prober   connectivity.Prober
	log      *logger.Logger
	now      func() time.Time
}

func NewResyncService(captures repository.CaptureRepo, redriver Redriver, prober connectivity.Prober, log *logger.Logger) *ResyncService {
	if log == nil {
		log = logger.Nop()
	}
	return &ResyncService{
		captures: captures,
		redriver: redriver,
		prober:   prober,
		log:      log,
		now:      time.Now,
	}
}

// Resync uploads every LOCAL_ONLY or FAILED capture. It returns ErrOffline
// without touching the journal when the probe fails.
func (s *ResyncService) Resync(ctx context.Context) (ResyncReport, error) {
	var rep ResyncReport
	if s.prober != nil && !s.prober.IsOnline(ctx) {
		return rep, ErrOffline
	}

	rows, err := s.captures.List(ctx, time.Time{}, time.Time{},
		[]models.UploadState{models.UploadLocalOnly, models.UploadFailed}, resyncBatch)
	if err != nil {
		return rep, err
	}

	for _, c := range rows {
		if ctx.Err() != nil {
			return rep, ctx.Err()
		}
		rep.Attempted++
		if err := s.redriver.Redrive(ctx, c.Filename); err != nil {
			rep.Failed++
			c.UploadState = models.UploadFailed
			c.UploadError = err.Error()
			s.log.Warnw("resync_failed", "filename", c.Filename, "err", err)
		} else {
			rep.Uploaded++
			c.UploadState = models.UploadDone
			c.UploadError = ""
			s.log.Infow("resync_uploaded", "filename", c.Filename)
		}
		c.UpdatedAt = s.now().UTC()
		if err := s.captures.UpdateUpload(ctx, c); err != nil {
			return rep, err
		}
	}
	return rep, nil
}
