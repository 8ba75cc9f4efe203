package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"doorman/internal/models"
)

// ErrCaptureNotFound is returned when an update targets an unknown journal row.
var ErrCaptureNotFound = errors.New("capture not found")

type Authorization interface {
	Create(ctx context.Context, username, hash string) (int, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Count(ctx context.Context) (int, error)
}

// CaptureRepo is the append-mostly journal of consumed detection events.
type CaptureRepo interface {
	Append(ctx context.Context, c models.Capture) (models.Capture, error)
	UpdateUpload(ctx context.Context, c models.Capture) error
	List(ctx context.Context, from, to time.Time, states []models.UploadState, limit int) ([]models.Capture, error)
}

type Repository struct {
	Captures CaptureRepo
	Auth     Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Captures: NewCaptureSQLite(db),
		Auth:     NewUserRepository(db),
	}
}
