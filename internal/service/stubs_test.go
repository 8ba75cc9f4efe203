package service

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"time"

	"doorman/internal/camera"
	"doorman/internal/models"
	"doorman/internal/sensor"
)

// ---- Test doubles shared by the service tests ----

// scriptedSensor returns readings in order, then repeats the last one.
type scriptedSensor struct {
	mu       sync.Mutex
	readings []sensor.Reading
	err      error
	calls    int
}

func (s *scriptedSensor) Read(ctx context.Context) (sensor.Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return sensor.Reading{}, s.err
	}
	if len(s.readings) == 0 {
		return sensor.Reading{Min: 20, Max: 22}, nil
	}
	r := s.readings[0]
	if len(s.readings) > 1 {
		s.readings = s.readings[1:]
	}
	return r, nil
}

// stubCamera hands out a small solid frame, or err.
type stubCamera struct {
	seq uint64
	err error
}

func (c *stubCamera) Read(ctx context.Context) (camera.Frame, error) {
	if c.err != nil {
		return camera.Frame{}, c.err
	}
	c.seq++
	return testFrame(c.seq), nil
}

func (c *stubCamera) Close() error { return nil }

func testFrame(seq uint64) camera.Frame {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	return camera.Frame{Seq: seq, CapturedAt: time.Now(), Image: img}
}

// memStore is an in-memory ArtifactStore.
type memStore struct {
	images   map[string][]byte
	metas    map[string][]byte
	imageErr error
	metaErr  error
}

func newMemStore() *memStore {
	return &memStore{images: map[string][]byte{}, metas: map[string][]byte{}}
}

func (m *memStore) SaveImage(filename string, jpg []byte) (string, error) {
	if m.imageErr != nil {
		return "", m.imageErr
	}
	m.images[filename] = jpg
	return "incoming/" + filename + ".jpg", nil
}

func (m *memStore) SaveMeta(filename string, meta []byte) (string, error) {
	if m.metaErr != nil {
		return "", m.metaErr
	}
	m.metas[filename] = meta
	return "meta/" + filename + ".json", nil
}

func (m *memStore) Load(filename string) ([]byte, []byte, error) {
	jpg, ok := m.images[filename]
	if !ok {
		return nil, nil, errors.New("image not found")
	}
	meta, ok := m.metas[filename]
	if !ok {
		return nil, nil, errors.New("meta not found")
	}
	return jpg, meta, nil
}

// recordingUploader remembers keys in upload order.
type recordingUploader struct {
	keys  []string
	types []string
	err   error
	hang  bool // block until the caller's deadline
}

func (u *recordingUploader) Upload(ctx context.Context, key string, body []byte, contentType string) error {
	if u.hang {
		<-ctx.Done()
		return ctx.Err()
	}
	if u.err != nil {
		return u.err
	}
	u.keys = append(u.keys, key)
	u.types = append(u.types, contentType)
	return nil
}

// fixedProber always answers online.
type fixedProber struct {
	online bool
	calls  int
}

func (p *fixedProber) IsOnline(ctx context.Context) bool {
	p.calls++
	return p.online
}

// fakeCaptureRepo stands in for repository.CaptureRepo.
type fakeCaptureRepo struct {
	mu        sync.Mutex
	appended  []models.Capture
	updated   []models.Capture
	listed    []models.Capture
	appendErr error
	updateErr error
	listErr   error

	gotFrom   time.Time
	gotTo     time.Time
	gotStates []models.UploadState
	gotLimit  int
}

func (f *fakeCaptureRepo) Append(ctx context.Context, c models.Capture) (models.Capture, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return models.Capture{}, f.appendErr
	}
	if c.ID == "" {
		c.ID = "cap-" + c.Filename
	}
	f.appended = append(f.appended, c)
	return c, nil
}

func (f *fakeCaptureRepo) UpdateUpload(ctx context.Context, c models.Capture) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated = append(f.updated, c)
	return nil
}

func (f *fakeCaptureRepo) List(ctx context.Context, from, to time.Time, states []models.UploadState, limit int) ([]models.Capture, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotFrom, f.gotTo, f.gotStates, f.gotLimit = from, to, states, limit
	return f.listed, f.listErr
}

// recordingStatus stands in for the status file.
type recordingStatus struct {
	saved []models.PersistedStatus
	err   error
}

func (s *recordingStatus) Save(st models.PersistedStatus) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, st)
	return nil
}

func (s *recordingStatus) Load() (models.PersistedStatus, error) {
	if s.err != nil {
		return models.PersistedStatus{}, s.err
	}
	if len(s.saved) == 0 {
		return models.PersistedStatus{}, nil
	}
	return s.saved[len(s.saved)-1], nil
}

// recordingPublisher captures Handle calls.
type recordingPublisher struct {
	calls  []string
	temps  []float64
	result Result
}

func (p *recordingPublisher) Handle(ctx context.Context, frame camera.Frame, temperature float64, filename string) Result {
	p.calls = append(p.calls, filename)
	p.temps = append(p.temps, temperature)
	res := p.result
	res.Filename = filename
	return res
}
