// Package storage keeps uploaded prize thumbnails.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrNotImage is returned for uploads whose content type is not an image.
var ErrNotImage = errors.New("only image uploads are accepted")

// Uploader stores a file and returns the URL it can be fetched from.
type Uploader interface {
	Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error)
}

// objectKey builds a collision-free key that keeps the original extension.
func objectKey(prefix, name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	if len(ext) > 6 || strings.ContainsAny(ext, `/\ `) {
		ext = ""
	}
	return path.Join(prefix, uuid.New().String()+ext)
}

func checkImage(contentType string) error {
	if !strings.HasPrefix(contentType, "image/") {
		return ErrNotImage
	}
	return nil
}
