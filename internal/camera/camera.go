// Package camera defines the frame source feeding the capture loop and the
// JPEG encoding used for archived artifacts.
package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"time"
)

// DefaultJPEGQuality matches what most webcams produce.
const DefaultJPEGQuality = 90

// ErrNoImage is returned when a frame carries no pixels.
var ErrNoImage = errors.New("frame has no image")

// Frame is one acquired image.
type Frame struct {
	Seq        uint64
	CapturedAt time.Time
	Image      image.Image
}

// Source hands out frames at whatever rate the caller polls.
type Source interface {
	Read(ctx context.Context) (Frame, error)
	Close() error
}

// EncodeJPEG encodes the frame image. Quality outside 1..100 uses the default.
func EncodeJPEG(f Frame, quality int) ([]byte, error) {
	if f.Image == nil {
		return nil, ErrNoImage
	}
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, f.Image, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("jpeg encode frame %d: %w", f.Seq, err)
	}
	return buf.Bytes(), nil
}
