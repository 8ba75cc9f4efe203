package service

import (
	"time"

	"doorman/internal/mailbox"
	"doorman/internal/models"
)

// CaptureFilter narrows the journal listing.
type CaptureFilter struct {
	From   time.Time // inclusive; zero means no lower bound
	To     time.Time // inclusive; zero means no upper bound
	States string    // comma separated upload states, "" for all
	Limit  int       // 0 uses the repository default
}

// ResyncReport summarizes one resync pass.
type ResyncReport struct {
	Attempted int `json:"attempted"`
	Uploaded  int `json:"uploaded"`
	Failed    int `json:"failed"`
}

// Status is the combined operator view served by the API and the stream.
type Status struct {
	LastConsumed models.PersistedStatus `json:"last_consumed"`
	Detector     DetectionSnapshot      `json:"detector"`
	Mailbox      mailbox.Stats          `json:"mailbox"`
	UpdatedAt    time.Time              `json:"updated_at"`
}
