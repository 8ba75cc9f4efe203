// Package storage persists capture artifacts locally and uploads them to
// remote object storage.
package storage

import (
	"context"
	"path"
)

// Collections, shared by local paths and remote keys.
const (
	ImageCollection = "incoming"
	MetaCollection  = "meta"

	ContentTypeJPEG = "image/jpeg"
	ContentTypeJSON = "application/json"
)

// Uploader stores one object under key. Implementations make the object publicly readable.
type Uploader interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) error
}

// ImageKey is incoming/<filename>.jpg.
func ImageKey(filename string) string {
	return path.Join(ImageCollection, filename+".jpg")
}

// MetaKey is meta/<filename>.json.
func MetaKey(filename string) string {
	return path.Join(MetaCollection, filename+".json")
}
