package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"doorman/internal/logger"
	"doorman/internal/mailbox"
	"doorman/internal/models"
	"doorman/internal/sensor"
)

// Detector states.
const (
	StateSensing  = "SENSING"
	StateCooldown = "COOLDOWN"
)

// Defaults for the detection loop.
const (
	DefaultUpperC   = 32.0
	DefaultLowerC   = 18.0
	DefaultCooldown = 10 * time.Second
	DefaultRateHz   = 15
)

// ErrSensor wraps every temperature source failure. It stops the loop.
var ErrSensor = errors.New("temperature sensor failure")

// DetectionConfig tunes the loop. LowerC only bounds the display range.
// Thresholds are used as given, 0 °C included; start from
// DefaultDetectionConfig for the stock values.
type DetectionConfig struct {
	UpperC   float64
	LowerC   float64
	Tick     time.Duration
	Cooldown time.Duration
}

func DefaultDetectionConfig() DetectionConfig {
	return DetectionConfig{
		UpperC:   DefaultUpperC,
		LowerC:   DefaultLowerC,
		Tick:     time.Second / DefaultRateHz,
		Cooldown: DefaultCooldown,
	}
}

// withDefaults fills in the timing fields, which have no meaningful zero.
func (c DetectionConfig) withDefaults() DetectionConfig {
	if c.Tick <= 0 {
		c.Tick = time.Second / DefaultRateHz
	}
	if c.Cooldown <= 0 {
		c.Cooldown = DefaultCooldown
	}
	return c
}

// DetectionSnapshot is what the operator API shows about the detector.
type DetectionSnapshot struct {
	State         string                `json:"state"`
	PeakC         float64               `json:"peak_c"`
	MinC          float64               `json:"min_c"`
	UpperC        float64               `json:"upper_c"`
	CooldownUntil time.Time             `json:"cooldown_until"`
	LastEvent     models.DetectionEvent `json:"last_event"`
}

// DetectionService samples the temperature source and publishes a detection
// event when the peak crosses the threshold or a manual trigger is pending.
type DetectionService struct {
	cfg     DetectionConfig
	source  sensor.Source
	mbox    mailbox.Mailbox
	metrics *Metrics
	log     *logger.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	mu            sync.Mutex
	state         string
	manual        bool
	reading       sensor.Reading
	cooldownUntil time.Time
	last          models.DetectionEvent
}

func NewDetectionService(cfg DetectionConfig, source sensor.Source, mbox mailbox.Mailbox, metrics *Metrics, log *logger.Logger) *DetectionService {
	if log == nil {
		log = logger.Nop()
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &DetectionService{
		cfg:     cfg.withDefaults(),
		source:  source,
		mbox:    mbox,
		metrics: metrics,
		log:     log,
		now:     time.Now,
		sleep:   sleepCtx,
		state:   StateSensing,
	}
}

// Trigger asks for a capture on the next tick. It is refused during cooldown.
func (s *DetectionService) Trigger() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateCooldown {
		return false
	}
	s.manual = true
	return true
}

// Snapshot returns the latest reading, state and published event.
func (s *DetectionService) Snapshot() DetectionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return DetectionSnapshot{
		State:         s.state,
		PeakC:         s.reading.Max,
		MinC:          s.reading.Min,
		UpperC:        s.cfg.UpperC,
		CooldownUntil: s.cooldownUntil,
		LastEvent:     s.last,
	}
}

// Run ticks until ctx is canceled. It returns nil on cancellation and a
// wrapped ErrSensor when the source fails.
func (s *DetectionService) Run(ctx context.Context) error {
	t := time.NewTicker(s.cfg.Tick)
	defer t.Stop()

	s.log.Infow("detection_started", "upper_c", s.cfg.UpperC, "tick", s.cfg.Tick, "cooldown", s.cfg.Cooldown)
	for {
		select {
		case <-ctx.Done():
			s.log.Infow("detection_stopped")
			return nil
		case <-t.C:
			if ctx.Err() != nil {
				continue
			}
			if err := s.step(ctx); err != nil {
				s.log.Errorw("detection_failed", "err", err)
				return err
			}
		}
	}
}

// step performs one sensing iteration, including the cooldown when it publishes.
func (s *DetectionService) step(ctx context.Context) error {
	r, err := s.source.Read(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSensor, err)
	}
	s.metrics.SensorReadings.Inc()
	s.metrics.PeakTemperature.Set(r.Max)
	s.log.Debugw("sensor_reading", "min", r.Min, "max", r.Max)

	s.mu.Lock()
	s.reading = r
	manual := s.manual
	s.manual = false
	s.mu.Unlock()

	over := r.Max > s.cfg.UpperC
	if !over && !manual {
		return nil
	}

	ev := models.NewDetectionEvent(s.now(), r.Max)
	if err := s.mbox.Publish(ev); err != nil {
		s.log.Errorw("detection_publish_failed", "filename", ev.Filename, "err", err)
		return nil
	}
	reason := "threshold"
	if !over {
		reason = "manual"
	}
	s.metrics.Detections.WithLabelValues(reason).Inc()
	s.log.Infow("detection_published", "filename", ev.Filename, "temperature", ev.Temperature, "reason", reason)

	s.mu.Lock()
	s.last = ev
	s.state = StateCooldown
	s.cooldownUntil = s.now().Add(s.cfg.Cooldown)
	s.mu.Unlock()

	_ = s.sleep(ctx, s.cfg.Cooldown)

	s.mu.Lock()
	s.state = StateSensing
	s.cooldownUntil = time.Time{}
	s.manual = false
	s.mu.Unlock()
	return nil
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
