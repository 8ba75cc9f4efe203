package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"doorman/internal/camera"
	"doorman/internal/connectivity"
	"doorman/internal/logger"
	"doorman/internal/models"
	"doorman/internal/storage"
)

// DefaultUploadTimeout bounds each object upload.
const DefaultUploadTimeout = 30 * time.Second

// ErrOffline is returned when an upload is requested while the probe fails.
var ErrOffline = errors.New("device is offline")

// ArtifactStore is the local half of the publisher.
type ArtifactStore interface {
	SaveImage(filename string, jpg []byte) (string, error)
	SaveMeta(filename string, meta []byte) (string, error)
	Load(filename string) (jpg, meta []byte, err error)
}

// Result is the outcome of one Handle call, step by step.
type Result struct {
	Filename  string
	ImagePath string
	MetaPath  string

	LocalErr  error // encode or local write
	Online    bool  // probe result; false when no probe ran
	Uploaded  bool  // both objects accepted by remote storage
	UploadErr error
}

// Err joins the step errors, nil when every attempted step succeeded.
func (r Result) Err() error {
	return errors.Join(r.LocalErr, r.UploadErr)
}

// UploadState maps the result onto the journal state.
func (r Result) UploadState() models.UploadState {
	switch {
	case r.Uploaded:
		return models.UploadDone
	case r.UploadErr != nil:
		return models.UploadFailed
	case r.LocalErr != nil && r.ImagePath == "":
		return models.UploadFailed
	default:
		return models.UploadLocalOnly
	}
}

// ArtifactPublisher archives a frame locally and mirrors it to remote storage when online.
type ArtifactPublisher struct {
	local    ArtifactStore
	uploader storage.Uploader // nil keeps everything local
	prober   connectivity.Prober
	metrics  *Metrics
	log      *logger.Logger

	quality       int
	uploadTimeout time.Duration
	now           func() time.Time
}

func NewArtifactPublisher(local ArtifactStore, uploader storage.Uploader, prober connectivity.Prober, metrics *Metrics, log *logger.Logger) *ArtifactPublisher {
	if log == nil {
		log = logger.Nop()
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &ArtifactPublisher{
		local:    local,
		uploader: uploader,
		prober:   prober,
		metrics:  metrics,
		log:      log,
		quality:       camera.DefaultJPEGQuality,
		uploadTimeout: DefaultUploadTimeout,
		now:           time.Now,
	}
}

// Handle writes incoming/<filename>.jpg and meta/<filename>.json locally, then
// uploads meta first and image second if the probe says the device is online.
func (p *ArtifactPublisher) Handle(ctx context.Context, frame camera.Frame, temperature float64, filename string) Result {
	at := p.now()
	if filename == "" {
		filename = models.FilenameFor(at)
	}
	res := Result{Filename: filename}

	jpg, err := camera.EncodeJPEG(frame, p.quality)
	if err != nil {
		res.LocalErr = err
		return res
	}
	meta, err := json.Marshal(models.NewArtifactMeta(temperature, at))
	if err != nil {
		res.LocalErr = fmt.Errorf("marshal meta: %w", err)
		return res
	}

	// Local write failures do not stop the upload; the bytes are still in memory.
	var localErrs []error
	if res.ImagePath, err = p.local.SaveImage(filename, jpg); err != nil {
		localErrs = append(localErrs, err)
	}
	if res.MetaPath, err = p.local.SaveMeta(filename, meta); err != nil {
		localErrs = append(localErrs, err)
	}
	res.LocalErr = errors.Join(localErrs...)

	if p.uploader == nil {
		return res
	}
	res.Online = p.isOnline(ctx)
	if !res.Online {
		p.log.Infow("upload_skipped_offline", "filename", filename)
		return res
	}

	if err := p.upload(ctx, filename, jpg, meta); err != nil {
		res.UploadErr = err
		return res
	}
	res.Uploaded = true
	return res
}

// Redrive uploads artifacts already on disk. Used by resync.
func (p *ArtifactPublisher) Redrive(ctx context.Context, filename string) error {
	if p.uploader == nil {
		return errors.New("no remote storage configured")
	}
	jpg, meta, err := p.local.Load(filename)
	if err != nil {
		return err
	}
	return p.upload(ctx, filename, jpg, meta)
}

// isOnline runs the one-shot probe and records the outcome.
func (p *ArtifactPublisher) isOnline(ctx context.Context) bool {
	if p.prober == nil {
		return true
	}
	online := p.prober.IsOnline(ctx)
	result := "offline"
	if online {
		result = "online"
	}
	p.metrics.ConnectivityProbe.WithLabelValues(result).Inc()
	return online
}

// SetUploadTimeout changes the per-object deadline; d <= 0 keeps the default.
func (p *ArtifactPublisher) SetUploadTimeout(d time.Duration) {
	if d > 0 {
		p.uploadTimeout = d
	}
}

func (p *ArtifactPublisher) upload(ctx context.Context, filename string, jpg, meta []byte) error {
	if err := p.put(ctx, storage.MetaKey(filename), meta, storage.ContentTypeJSON); err != nil {
		return err
	}
	return p.put(ctx, storage.ImageKey(filename), jpg, storage.ContentTypeJPEG)
}

func (p *ArtifactPublisher) put(ctx context.Context, key string, body []byte, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, p.uploadTimeout)
	defer cancel()

	if err := p.uploader.Upload(ctx, key, body, contentType); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}
