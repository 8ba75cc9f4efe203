package service

import (
	"context"
	"time"

	"doorman/internal/camera"
	"doorman/internal/connectivity"
	"doorman/internal/logger"
	"doorman/internal/mailbox"
	"doorman/internal/models"
	"doorman/internal/repository"
	"doorman/internal/sensor"
	"doorman/internal/storage"
)

type Authorization interface {
	SignUp(ctx context.Context, username, password string) (int, error)
	GenerateToken(ctx context.Context, username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Monitoring exposes the read-only operator view.
type Monitoring interface {
	GetStatus() (Status, error)
}

// Journal lists consumed detection events and their upload outcome.
type Journal interface {
	List(ctx context.Context, f CaptureFilter) ([]models.Capture, error)
}

// ManualTrigger requests a capture regardless of temperature.
type ManualTrigger interface {
	Trigger() bool
}

// Resyncer re-drives uploads that never reached remote storage.
type Resyncer interface {
	Resync(ctx context.Context) (ResyncReport, error)
}

// Dependencies are the collaborators built by main. Sensor and Camera may be
// nil when the process runs only one of the loops.
type Dependencies struct {
	Repos    *repository.Repository
	Mailbox  mailbox.Mailbox
	Status   *StatusFile
	Sensor   sensor.Source
	Camera   camera.Source
	Local    ArtifactStore
	Uploader storage.Uploader
	Prober   connectivity.Prober
	Metrics  *Metrics
	Log      *logger.Logger
}

type Options struct {
	Detection     DetectionConfig
	FrameTick     time.Duration
	UploadTimeout time.Duration
	SigningKey    string
}

// Service aggregates all sub-services.
type Service struct {
	Monitoring
	Journal
	ManualTrigger
	Resyncer
	Authorization

	Detector  *DetectionService // nil without a sensor
	Capturer  *CaptureService   // nil without a camera
	Publisher *ArtifactPublisher
	Metrics   *Metrics
}

func NewService(deps Dependencies, opts Options) *Service {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}

	publisher := NewArtifactPublisher(deps.Local, deps.Uploader, deps.Prober, metrics, log.Named("publisher"))
	publisher.SetUploadTimeout(opts.UploadTimeout)

	svc := &Service{
		Journal:       NewJournalService(deps.Repos.Captures),
		Resyncer:      NewResyncService(deps.Repos.Captures, publisher, deps.Prober, log.Named("resync")),
		Authorization: NewAuthService(deps.Repos.Auth, opts.SigningKey),
		ManualTrigger: noTrigger{},
		Publisher:     publisher,
		Metrics:       metrics,
	}

	var view DetectorView
	if deps.Sensor != nil {
		svc.Detector = NewDetectionService(opts.Detection, deps.Sensor, deps.Mailbox, metrics, log.Named("detection"))
		svc.ManualTrigger = svc.Detector
		view = svc.Detector
	}
	if deps.Camera != nil {
		svc.Capturer = NewCaptureService(deps.Camera, deps.Mailbox, deps.Status, deps.Repos.Captures, publisher, opts.FrameTick, metrics, log.Named("capture"))
	}
	svc.Monitoring = NewMonitoringService(deps.Status, view, deps.Mailbox)
	return svc
}

// noTrigger is used by processes that do not run the detection loop.
type noTrigger struct{}

func (noTrigger) Trigger() bool { return false }
