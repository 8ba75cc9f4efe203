package service

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"doorman/internal/atomicfile"
	"doorman/internal/models"
)

// StatusFile persists the most recently consumed event as a single JSON object.
type StatusFile struct {
	path string
	mu   sync.Mutex
}

func NewStatusFile(path string) *StatusFile {
	return &StatusFile{path: path}
}

// Path is the status file location.
func (s *StatusFile) Path() string { return s.path }

// Save replaces the file with st.
func (s *StatusFile) Save(st models.PersistedStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := atomicfile.WriteJSON(s.path, st); err != nil {
		return fmt.Errorf("save status: %w", err)
	}
	return nil
}

// Load reads the file. A missing file yields the empty placeholder.
func (s *StatusFile) Load() (models.PersistedStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st models.PersistedStatus
	err := atomicfile.ReadJSON(s.path, &st)
	if errors.Is(err, os.ErrNotExist) {
		return models.PersistedStatus{}, nil
	}
	if err != nil {
		return models.PersistedStatus{}, fmt.Errorf("load status: %w", err)
	}
	return st, nil
}
