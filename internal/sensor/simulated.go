package sensor

import (
	"context"
	"math"
	"sync"
	"time"
)

// Simulation constants.
const (
	AmbientC        = 22.0 // empty hallway
	BodyC           = 36.0 // peak pixel when someone stands in front of the sensor
	RampUpCPerSec   = 8.0  // approach speed
	RampDownCPerSec = 4.0  // walk-away speed
	NoiseC          = 0.4  // pixel-to-pixel spread
)

// Simulated produces a thermal grid with a visitor who shows up every
// Period and stays for Dwell. It lets the appliance run without hardware.
type Simulated struct {
	period time.Duration
	dwell  time.Duration
	now    func() time.Time

	mu      sync.Mutex
	start   time.Time
	last    time.Time
	bodyC   float64
	counter uint64
}

// NewSimulated returns a source whose visitor arrives every period.
func NewSimulated(period, dwell time.Duration) *Simulated {
	if period <= 0 {
		period = 45 * time.Second
	}
	if dwell <= 0 || dwell >= period {
		dwell = period / 5
	}
	return &Simulated{
		period: period,
		dwell:  dwell,
		now:    time.Now,
		bodyC:  AmbientC,
	}
}

// Read advances the simulation to now and reduces the grid.
func (s *Simulated) Read(ctx context.Context) (Reading, error) {
	if err := ctx.Err(); err != nil {
		return Reading{}, err
	}
	return Reduce(s.Grid())
}

// Grid renders the current 8x8 field.
func (s *Simulated) Grid() [][]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.start.IsZero() {
		s.start, s.last = now, now
	}
	elapsed := now.Sub(s.last).Seconds()
	s.last = now
	s.counter++

	present := now.Sub(s.start)%s.period < s.dwell
	if present {
		s.bodyC = math.Min(s.bodyC+RampUpCPerSec*elapsed, BodyC)
	} else {
		s.bodyC = math.Max(s.bodyC-RampDownCPerSec*elapsed, AmbientC)
	}

	grid := make([][]float64, GridHeight)
	for y := range grid {
		grid[y] = make([]float64, GridWidth)
		for x := range grid[y] {
			grid[y][x] = s.pixel(x, y)
		}
	}
	return grid
}

// pixel falls off from the body temperature at the grid centre to ambient at the edges.
func (s *Simulated) pixel(x, y int) float64 {
	cx, cy := float64(GridWidth-1)/2, float64(GridHeight-1)/2
	dist := math.Hypot(float64(x)-cx, float64(y)-cy) / math.Hypot(cx, cy)
	v := AmbientC + (s.bodyC-AmbientC)*(1-dist)
	noise := NoiseC * math.Sin(float64(s.counter)+float64(x*GridWidth+y))
	return v + noise
}
