package models

// PersistedStatus mirrors the most recently consumed DetectionEvent on disk.
type PersistedStatus struct {
	Filename    string  `json:"filename"`
	Temperature float64 `json:"temperature"`
	Uploaded    bool    `json:"uploaded"`
}

// StatusOf copies a consumed event into its on-disk form.
func StatusOf(e DetectionEvent) PersistedStatus {
	return PersistedStatus{
		Filename:    e.Filename,
		Temperature: e.Temperature,
		Uploaded:    e.Uploaded,
	}
}

// Event converts the record back into a DetectionEvent.
func (s PersistedStatus) Event() DetectionEvent {
	return DetectionEvent{
		Filename:    s.Filename,
		Temperature: s.Temperature,
		Uploaded:    s.Uploaded,
	}
}
