package models

import "time"

// UploadState tracks what happened to the remote copy of a capture.
type UploadState string

const (
	UploadPending   UploadState = "PENDING"    // consumed, publisher not finished yet
	UploadDone      UploadState = "UPLOADED"   // both objects confirmed by remote storage
	UploadLocalOnly UploadState = "LOCAL_ONLY" // device was offline, nothing attempted
	UploadFailed    UploadState = "FAILED"     // local write or remote upload returned an error
)

// Capture is one journaled consumption of a DetectionEvent.
type Capture struct {
	ID          string      `json:"id"`
	Filename    string      `json:"filename"`
	Temperature float64     `json:"temperature"`
	ConsumedAt  time.Time   `json:"consumed_at"`
	LocalImage  string      `json:"local_image,omitempty"`
	LocalMeta   string      `json:"local_meta,omitempty"`
	UploadState UploadState `json:"upload_state"`
	UploadError string      `json:"upload_error,omitempty"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// NeedsResync reports whether the remote copy is still missing.
func (c Capture) NeedsResync() bool {
	return c.UploadState == UploadLocalOnly || c.UploadState == UploadFailed
}
