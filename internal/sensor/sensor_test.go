package sensor

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestReduce_MinMax(t *testing.T) {
	grid := [][]float64{
		{20, 21, 22},
		{25, 35.5, 19.5},
	}
	r, err := Reduce(grid)
	if err != nil {
		t.Fatalf("Reduce() error = %v", err)
	}
	if r.Min != 19.5 || r.Max != 35.5 {
		t.Fatalf("got %+v", r)
	}
}

func TestReduce_Empty(t *testing.T) {
	if _, err := Reduce([][]float64{{}, {}}); !errors.Is(err, ErrEmptyGrid) {
		t.Fatalf("expected ErrEmptyGrid, got %v", err)
	}
}

func TestSimulated_VisitorRaisesPeakAboveThreshold(t *testing.T) {
	s := NewSimulated(60*time.Second, 20*time.Second)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	// First read anchors the cycle; visitor is present from t=0.
	if _, err := s.Read(context.Background()); err != nil {
		t.Fatal(err)
	}
	clock = clock.Add(5 * time.Second)
	r, err := s.Read(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if r.Max < 32 {
		t.Fatalf("expected visitor peak above 32, got %.2f", r.Max)
	}

	// After the dwell the visitor walks away and the field cools back down.
	clock = clock.Add(30 * time.Second)
	r, _ = s.Read(context.Background())
	if r.Max > AmbientC+NoiseC {
		t.Fatalf("expected ambient after visitor left, got %.2f", r.Max)
	}
}

func TestSimulated_ReadHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewSimulated(0, 0).Read(ctx); err == nil {
		t.Fatalf("expected context error")
	}
}
