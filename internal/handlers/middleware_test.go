package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"doorman/internal/service"

	"github.com/gin-gonic/gin"
)

// operatorServices wires every protected endpoint to a mock that records calls.
type operatorServices struct {
	auth    *mockAuth
	trigger *mockTrigger
	resync  *mockResync
	journal *mockJournal
	mon     *mockMonitoring
}

func newOperatorServices(auth *mockAuth) (*operatorServices, *service.Service) {
	o := &operatorServices{
		auth:    auth,
		trigger: &mockTrigger{accept: true},
		resync:  &mockResync{},
		journal: &mockJournal{},
		mon:     &mockMonitoring{},
	}
	return o, &service.Service{
		Authorization: o.auth,
		ManualTrigger: o.trigger,
		Resyncer:      o.resync,
		Journal:       o.journal,
		Monitoring:    o.mon,
	}
}

func (o *operatorServices) touched() bool {
	return o.trigger.calls > 0 || o.resync.calls > 0 || o.journal.calls > 0
}

func TestUserIDMiddleware_RejectsBeforeReachingOperatorActions(t *testing.T) {
	routes := []struct{ method, path string }{
		{http.MethodGet, "/api/v1/status"},
		{http.MethodPost, "/api/v1/trigger"},
		{http.MethodPost, "/api/v1/resync"},
		{http.MethodGet, "/api/v1/captures?state=FAILED"},
	}
	headers := []struct {
		name    string
		header  string
		parse   error
		wantMsg string
	}{
		{"missing header", "", nil, "missing Authorization header"},
		{"basic scheme", "Basic b3A6cHc=", nil, "invalid Authorization header format"},
		{"bearer without token", "Bearer ", nil, "invalid Authorization header format"},
		{"rejected token", "Bearer stale", errors.New("token is expired"), "invalid or expired token"},
	}

	for _, rt := range routes {
		for _, hc := range headers {
			t.Run(rt.method+" "+rt.path+"/"+hc.name, func(t *testing.T) {
				ops, svc := newOperatorServices(&mockAuth{parseErr: hc.parse})
				r := newTestRouter(svc)

				req := httptest.NewRequest(rt.method, rt.path, nil)
				if hc.header != "" {
					req.Header.Set(authorizationHeader, hc.header)
				}
				w := httptest.NewRecorder()
				r.ServeHTTP(w, req)

				if w.Code != http.StatusUnauthorized {
					t.Fatalf("status = %d, want 401 (body=%s)", w.Code, w.Body.String())
				}
				var out struct {
					Error string `json:"error"`
				}
				_ = json.Unmarshal(w.Body.Bytes(), &out)
				if out.Error != hc.wantMsg {
					t.Fatalf("error = %q, want %q", out.Error, hc.wantMsg)
				}
				if ops.touched() {
					t.Fatal("operator action ran without a valid token")
				}
			})
		}
	}
}

func TestUserIDMiddleware_TriggerWithValidToken(t *testing.T) {
	for _, scheme := range []string{"Bearer", "bearer", "BEARER"} {
		t.Run(scheme, func(t *testing.T) {
			ops, svc := newOperatorServices(&mockAuth{parseID: 7})
			r := newTestRouter(svc)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/trigger", nil)
			req.Header.Set(authorizationHeader, scheme+" operator-token")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != http.StatusAccepted {
				t.Fatalf("status = %d, want 202 (body=%s)", w.Code, w.Body.String())
			}
			if ops.trigger.calls != 1 {
				t.Fatalf("trigger calls = %d, want 1", ops.trigger.calls)
			}
			if ops.auth.lastParseToken != "operator-token" {
				t.Fatalf("ParseToken got %q", ops.auth.lastParseToken)
			}
		})
	}
}

func TestOperatorID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if got := operatorID(c); got != 0 {
		t.Fatalf("unauthenticated operator = %d, want 0", got)
	}
	c.Set(userCtx, 42)
	if got := operatorID(c); got != 42 {
		t.Fatalf("operator = %d, want 42", got)
	}
}
