package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"doorman/internal/atomicfile"
)

// Local writes artifacts under a root directory using the same layout as the remote keys.
type Local struct {
	root string
}

// NewLocal returns a store rooted at dir ("." when empty).
func NewLocal(dir string) *Local {
	if dir == "" {
		dir = "."
	}
	return &Local{root: dir}
}

// Root is the base directory.
func (l *Local) Root() string { return l.root }

// Paths of the two artifacts for filename.
func (l *Local) Paths(filename string) (image, meta string) {
	return filepath.Join(l.root, filepath.FromSlash(ImageKey(filename))),
		filepath.Join(l.root, filepath.FromSlash(MetaKey(filename)))
}

// SaveImage writes the JPEG and returns its path.
func (l *Local) SaveImage(filename string, jpg []byte) (string, error) {
	if filename == "" {
		return "", errors.New("save image: empty filename")
	}
	p, _ := l.Paths(filename)
	if err := atomicfile.Write(p, jpg, 0o644); err != nil {
		return "", fmt.Errorf("save image %s: %w", filename, err)
	}
	return p, nil
}

// SaveMeta writes the metadata JSON and returns its path.
func (l *Local) SaveMeta(filename string, meta []byte) (string, error) {
	if filename == "" {
		return "", errors.New("save meta: empty filename")
	}
	_, p := l.Paths(filename)
	if err := atomicfile.Write(p, meta, 0o644); err != nil {
		return "", fmt.Errorf("save meta %s: %w", filename, err)
	}
	return p, nil
}

// Load reads both artifacts back, used when re-driving uploads.
func (l *Local) Load(filename string) (jpg, meta []byte, err error) {
	ip, mp := l.Paths(filename)
	if jpg, err = os.ReadFile(ip); err != nil {
		return nil, nil, fmt.Errorf("read image %s: %w", filename, err)
	}
	if meta, err = os.ReadFile(mp); err != nil {
		return nil, nil, fmt.Errorf("read meta %s: %w", filename, err)
	}
	return jpg, meta, nil
}
