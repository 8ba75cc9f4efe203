package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"doorman/internal/models"
	"doorman/internal/service"
)

func TestCapturesHandler_ListAndValidation(t *testing.T) {
	captures := []models.Capture{
		{ID: "c1", Filename: "20250801-115900-000001", Temperature: 35, ConsumedAt: fixedNow, UploadState: models.UploadLocalOnly},
		{ID: "c2", Filename: "20250801-115800-000002", Temperature: 33, ConsumedAt: fixedNow.Add(-time.Minute), UploadState: models.UploadDone},
	}
	journal := &mockJournal{resp: captures}
	r := newTestRouter(&service.Service{Authorization: &mockAuth{parseID: 99}, Journal: journal})

	for _, q := range []string{"?from=notatime", "?to=yesterday", "?limit=-1", "?limit=ten"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, withAuth(httptest.NewRequest(http.MethodGet, "/api/v1/captures"+q, nil)))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", q, w.Code)
		}
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, withAuth(httptest.NewRequest(http.MethodGet, "/api/v1/captures?from=2025-08-02&to=2025-08-01", nil)))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for inverted range, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, withAuth(httptest.NewRequest(http.MethodGet, "/api/v1/captures?from=2025-08-01&to=2025-08-01&state=local_only,failed&limit=10", nil)))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var out struct {
		Count    int              `json:"count"`
		Captures []models.Capture `json:"captures"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out.Count != 2 || len(out.Captures) != 2 {
		t.Fatalf("unexpected response: %+v", out)
	}
	if journal.last.States != "local_only,failed" || journal.last.Limit != 10 {
		t.Fatalf("unexpected filter: %+v", journal.last)
	}
	wantTo := time.Date(2025, time.August, 1, 23, 59, 59, 999999999, time.UTC)
	if !journal.last.To.Equal(wantTo) {
		t.Fatalf("date-only 'to' should be end of day, got %v", journal.last.To)
	}
}

func TestCapturesHandler_InvalidStateIsBadRequest(t *testing.T) {
	journal := &mockJournal{err: fmt.Errorf("%w: unknown upload state %q", service.ErrInvalidFilter, "LOST")}
	r := newTestRouter(&service.Service{Authorization: &mockAuth{parseID: 1}, Journal: journal})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, withAuth(httptest.NewRequest(http.MethodGet, "/api/v1/captures?state=lost", nil)))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	journal.err = fmt.Errorf("db down")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, withAuth(httptest.NewRequest(http.MethodGet, "/api/v1/captures", nil)))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}
