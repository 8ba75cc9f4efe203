package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"doorman/internal/models"
	"doorman/internal/repository"
)

type JournalService struct {
	captures repository.CaptureRepo
}

func NewJournalService(captures repository.CaptureRepo) *JournalService {
	return &JournalService{captures: captures}
}

// ErrInvalidFilter marks caller mistakes in a CaptureFilter.
var ErrInvalidFilter = errors.New("invalid capture filter")

var (
	errInvalidTimeRange = fmt.Errorf("%w: From must be <= To", ErrInvalidFilter)
	errInvalidLimit     = fmt.Errorf("%w: limit must be >= 0", ErrInvalidFilter)
)

var knownUploadStates = map[models.UploadState]struct{}{
	models.UploadPending:   {},
	models.UploadDone:      {},
	models.UploadLocalOnly: {},
	models.UploadFailed:    {},
}

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// parseUploadStates splits a comma separated list, uppercases and validates each entry.
func parseUploadStates(s string) ([]models.UploadState, error) {
	var out []models.UploadState
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(strings.ToUpper(part))
		if part == "" {
			continue
		}
		st := models.UploadState(part)
		if _, ok := knownUploadStates[st]; !ok {
			return nil, fmt.Errorf("%w: unknown upload state %q", ErrInvalidFilter, part)
		}
		out = append(out, st)
	}
	return out, nil
}

func (s *JournalService) List(ctx context.Context, f CaptureFilter) ([]models.Capture, error) {
	from := normalizeToUTC(f.From)
	to := normalizeToUTC(f.To)
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return nil, errInvalidTimeRange
	}
	if f.Limit < 0 {
		return nil, errInvalidLimit
	}
	states, err := parseUploadStates(f.States)
	if err != nil {
		return nil, err
	}
	return s.captures.List(ctx, from, to, states, f.Limit)
}
