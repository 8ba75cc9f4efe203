package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"doorman/internal/models"

	"github.com/google/uuid"
)

type CaptureSQLite struct {
	db *sql.DB
}

func NewCaptureSQLite(db *sql.DB) *CaptureSQLite { return &CaptureSQLite{db: db} }

const (
	insertCaptureSQL = `
		INSERT INTO captures (id, filename, temperature, consumed_at, local_image, local_meta, upload_state, upload_error, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	updateCaptureUploadSQL = `
		UPDATE captures SET
			local_image=?,
			local_meta=?,
			upload_state=?,
			upload_error=?,
			updated_at=?
		WHERE id=?
	`

	selectCapturesSQL = `SELECT id, filename, temperature, consumed_at, local_image, local_meta, upload_state, upload_error, updated_at FROM captures`

	defaultListLimit = 100
	maxListLimit     = 1000
)

// Append inserts a capture. Missing ID, timestamps and state are filled in
// and the stored row is returned.
func (r *CaptureSQLite) Append(ctx context.Context, c models.Capture) (models.Capture, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.ConsumedAt.IsZero() {
		c.ConsumedAt = time.Now().UTC()
	} else {
		c.ConsumedAt = c.ConsumedAt.UTC()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.ConsumedAt
	}
	if c.UploadState == "" {
		c.UploadState = models.UploadPending
	}

	_, err := r.db.ExecContext(ctx, insertCaptureSQL,
		c.ID,
		c.Filename,
		c.Temperature,
		c.ConsumedAt,
		c.LocalImage,
		c.LocalMeta,
		string(c.UploadState),
		c.UploadError,
		c.UpdatedAt.UTC(),
	)
	if err != nil {
		return models.Capture{}, fmt.Errorf("insert capture %q: %w", c.Filename, err)
	}
	return c, nil
}

// UpdateUpload records the publisher outcome for an existing row.
func (r *CaptureSQLite) UpdateUpload(ctx context.Context, c models.Capture) error {
	ts := c.UpdatedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	res, err := r.db.ExecContext(ctx, updateCaptureUploadSQL,
		c.LocalImage,
		c.LocalMeta,
		string(c.UploadState),
		c.UploadError,
		ts.UTC(),
		c.ID,
	)
	if err != nil {
		return fmt.Errorf("update capture %q: %w", c.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for capture %q: %w", c.ID, err)
	}
	if n == 0 {
		return ErrCaptureNotFound
	}
	return nil
}

// List returns captures filtered by [from, to] (inclusive) and/or upload
// state, newest first. limit <= 0 uses the default page size.
func (r *CaptureSQLite) List(ctx context.Context, from, to time.Time, states []models.UploadState, limit int) ([]models.Capture, error) {
	var (
		conds []string
		args  []any
	)

	if !from.IsZero() {
		conds = append(conds, "consumed_at >= ?")
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		conds = append(conds, "consumed_at <= ?")
		args = append(args, to.UTC())
	}
	if len(states) > 0 {
		marks := make([]string, len(states))
		for i, s := range states {
			marks[i] = "?"
			args = append(args, string(s))
		}
		conds = append(conds, "upload_state IN ("+strings.Join(marks, ", ")+")")
	}

	switch {
	case limit <= 0:
		limit = defaultListLimit
	case limit > maxListLimit:
		limit = maxListLimit
	}

	q := selectCapturesSQL
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY consumed_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query captures: %w", err)
	}
	defer rows.Close()

	out := make([]models.Capture, 0, 16)
	for rows.Next() {
		var (
			c     models.Capture
			state string
		)
		if err := rows.Scan(
			&c.ID,
			&c.Filename,
			&c.Temperature,
			&c.ConsumedAt,
			&c.LocalImage,
			&c.LocalMeta,
			&state,
			&c.UploadError,
			&c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan capture: %w", err)
		}
		c.UploadState = models.UploadState(state)
		c.ConsumedAt = c.ConsumedAt.UTC()
		c.UpdatedAt = c.UpdatedAt.UTC()
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
