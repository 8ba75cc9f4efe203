package camera

import (
	"context"
	"image"
	"image/color"
	"sync"
	"time"
)

// Default frame size when the configuration leaves width/height at zero.
const (
	DefaultWidth  = 640
	DefaultHeight = 480
)

// Synthetic renders a moving test pattern. It stands in for a webcam on
// hosts without one.
type Synthetic struct {
	width, height int
	now           func() time.Time

	mu     sync.Mutex
	seq    uint64
	closed bool
}

// NewSynthetic returns a pattern source of the given size. Frames are
// produced as captured; mirroring is a preview concern.
func NewSynthetic(width, height int) *Synthetic {
	if width <= 0 || height <= 0 {
		width, height = DefaultWidth, DefaultHeight
	}
	return &Synthetic{width: width, height: height, now: time.Now}
}

// Size returns the frame dimensions.
func (s *Synthetic) Size() (int, int) { return s.width, s.height }

// Read renders the next frame.
func (s *Synthetic) Read(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Frame{}, ErrClosed
	}
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	img := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	shift := int(seq % 256)
	for y := 0; y < s.height; y++ {
		for x := 0; x < s.width; x++ {
			img.Pix[img.PixOffset(x, y)+0] = uint8((x*255/s.width + shift) % 256)
			img.Pix[img.PixOffset(x, y)+1] = uint8(y * 255 / s.height)
			img.Pix[img.PixOffset(x, y)+2] = 128
			img.Pix[img.PixOffset(x, y)+3] = 255
		}
	}
	// frame counter bar along the top edge
	bar := int(seq % uint64(s.width))
	for x := 0; x < bar; x++ {
		img.Set(x, 0, color.White)
	}

	return Frame{Seq: seq, CapturedAt: s.now(), Image: img}, nil
}

// Close stops the source; later reads fail with ErrClosed.
func (s *Synthetic) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
