package camera

import "errors"

// ErrClosed is returned by Read after Close.
var ErrClosed = errors.New("camera source closed")
