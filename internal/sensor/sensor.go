// Package sensor defines the temperature-field source the detection loop samples.
// Real hardware drivers live outside this module; they only need to
// satisfy Source.
package sensor

import (
	"context"
	"errors"
)

// GridWidth and GridHeight match an 8x8 thermopile array.
const (
	GridWidth  = 8
	GridHeight = 8
)

// ErrEmptyGrid is returned when a source produced no pixels.
var ErrEmptyGrid = errors.New("sensor returned an empty grid")

// Reading is the reduced view of one sampled grid.
type Reading struct {
	Min float64
	Max float64
}

// Source returns one reduced reading per call.
type Source interface {
	Read(ctx context.Context) (Reading, error)
}

// Reduce folds a pixel grid into its min and max.
func Reduce(grid [][]float64) (Reading, error) {
	var (
		r    Reading
		seen bool
	)
	for _, row := range grid {
		for _, v := range row {
			if !seen {
				r = Reading{Min: v, Max: v}
				seen = true
				continue
			}
			if v < r.Min {
				r.Min = v
			}
			if v > r.Max {
				r.Max = v
			}
		}
	}
	if !seen {
		return Reading{}, ErrEmptyGrid
	}
	return r, nil
}
