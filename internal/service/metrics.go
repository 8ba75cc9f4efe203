package service

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "doorman"

// Metrics groups the appliance counters. Each instance owns its registry so
// tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	SensorReadings    prometheus.Counter
	PeakTemperature   prometheus.Gauge
	Detections        *prometheus.CounterVec // reason: threshold | manual
	Frames            prometheus.Counter
	FrameErrors       prometheus.Counter
	Captures          prometheus.Counter
	ArtifactOutcomes  *prometheus.CounterVec // state: UPLOADED | LOCAL_ONLY | FAILED
	ConnectivityProbe *prometheus.CounterVec // result: online | offline
}

// NewMetrics registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SensorReadings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sensor_readings_total",
			Help:      "Temperature grids sampled by the detection loop.",
		}),
		PeakTemperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "peak_temperature_celsius",
			Help:      "Peak pixel of the most recent temperature grid.",
		}),
		Detections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "detections_published_total",
			Help:      "Detection events published to the trigger mailbox.",
		}, []string{"reason"}),
		Frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "frames_total",
			Help:      "Frames acquired by the capture loop.",
		}),
		FrameErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "frame_errors_total",
			Help:      "Failed frame acquisitions.",
		}),
		Captures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "captures_total",
			Help:      "Detection events consumed by the capture loop.",
		}),
		ArtifactOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "artifact_outcomes_total",
			Help:      "Artifact publication outcomes by upload state.",
		}, []string{"state"}),
		ConnectivityProbe: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "connectivity_checks_total",
			Help:      "Pre-upload connectivity checks by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		m.SensorReadings,
		m.PeakTemperature,
		m.Detections,
		m.Frames,
		m.FrameErrors,
		m.Captures,
		m.ArtifactOutcomes,
		m.ConnectivityProbe,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
