package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"doorman/internal/models"
	"doorman/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(ctx context.Context, username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(ctx context.Context, username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockMonitoring struct {
	mu     sync.Mutex
	status service.Status
	err    error
}

func (m *mockMonitoring) GetStatus() (service.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status, m.err
}

func (m *mockMonitoring) set(st service.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = st
}

type mockTrigger struct {
	accept bool
	calls  int
}

func (m *mockTrigger) Trigger() bool {
	m.calls++
	return m.accept
}

type mockResync struct {
	report service.ResyncReport
	err    error
	calls  int
}

func (m *mockResync) Resync(ctx context.Context) (service.ResyncReport, error) {
	m.calls++
	return m.report, m.err
}

type mockJournal struct {
	resp  []models.Capture
	err   error
	last  service.CaptureFilter
	calls int
}

func (m *mockJournal) List(ctx context.Context, f service.CaptureFilter) ([]models.Capture, error) {
	m.calls++
	m.last = f
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

func withAuth(req *http.Request) *http.Request {
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	return req
}

var fixedNow = time.Date(2025, time.August, 1, 12, 0, 0, 0, time.UTC)
