package models

import "time"

// MetaTimeLayout is DD/MM/YYYY HH:MM:SS in local wall-clock time.
const MetaTimeLayout = "02/01/2006 15:04:05"

// ArtifactMeta is the JSON object stored next to every captured image.
type ArtifactMeta struct {
	Temperature float64 `json:"temperature"`
	Time        string  `json:"time"`
}

// NewArtifactMeta formats at in the local zone.
func NewArtifactMeta(temperature float64, at time.Time) ArtifactMeta {
	return ArtifactMeta{
		Temperature: temperature,
		Time:        at.Local().Format(MetaTimeLayout),
	}
}
