package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"doorman/internal/models"
	"doorman/internal/service"
)

func TestStatusHandlers_HealthAndMetrics(t *testing.T) {
	metrics := service.NewMetrics()
	metrics.Captures.Inc()
	r := newTestRouter(&service.Service{Metrics: metrics})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), statusOK) {
		t.Fatalf("health status=%d body=%s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status=%d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "doorman_captures_total 1") {
		t.Fatalf("metrics body missing counter:\n%s", w.Body.String())
	}
}

func TestStatusHandlers_GetStatus(t *testing.T) {
	mon := &mockMonitoring{status: service.Status{
		LastConsumed: models.PersistedStatus{Filename: "20240101-000000-000000", Temperature: 35, Uploaded: true},
		Detector:     service.DetectionSnapshot{State: service.StateSensing, PeakC: 24.5, UpperC: 32},
		UpdatedAt:    fixedNow,
	}}
	r := newTestRouter(&service.Service{Authorization: &mockAuth{parseID: 1}, Monitoring: mon})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without auth, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, withAuth(httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var got service.Status
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.LastConsumed.Filename != "20240101-000000-000000" || !got.LastConsumed.Uploaded {
		t.Fatalf("unexpected last consumed: %+v", got.LastConsumed)
	}
	if got.Detector.PeakC != 24.5 {
		t.Fatalf("unexpected detector: %+v", got.Detector)
	}

	mon.err = errors.New("permission denied")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, withAuth(httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestStatusHandlers_Trigger(t *testing.T) {
	trig := &mockTrigger{accept: true}
	r := newTestRouter(&service.Service{Authorization: &mockAuth{parseID: 1}, ManualTrigger: trig})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, withAuth(httptest.NewRequest(http.MethodPost, "/api/v1/trigger", nil)))
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d body=%s", w.Code, w.Body.String())
	}

	trig.accept = false
	w = httptest.NewRecorder()
	r.ServeHTTP(w, withAuth(httptest.NewRequest(http.MethodPost, "/api/v1/trigger", nil)))
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 during cooldown, got %d", w.Code)
	}
	if trig.calls != 2 {
		t.Fatalf("Trigger calls=%d, want 2", trig.calls)
	}
}

func TestStatusHandlers_Resync(t *testing.T) {
	rs := &mockResync{report: service.ResyncReport{Attempted: 3, Uploaded: 2, Failed: 1}}
	r := newTestRouter(&service.Service{Authorization: &mockAuth{parseID: 1}, Resyncer: rs})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, withAuth(httptest.NewRequest(http.MethodPost, "/api/v1/resync", nil)))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var rep service.ResyncReport
	_ = json.Unmarshal(w.Body.Bytes(), &rep)
	if rep != rs.report {
		t.Fatalf("report = %+v, want %+v", rep, rs.report)
	}

	rs.err = service.ErrOffline
	w = httptest.NewRecorder()
	r.ServeHTTP(w, withAuth(httptest.NewRequest(http.MethodPost, "/api/v1/resync", nil)))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 offline, got %d", w.Code)
	}

	rs.err = errors.New("db locked")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, withAuth(httptest.NewRequest(http.MethodPost, "/api/v1/resync", nil)))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}
