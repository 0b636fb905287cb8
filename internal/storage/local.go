package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// LocalUploader writes files under Dir and serves them from BaseURL.
type LocalUploader struct {
	Dir     string
	BaseURL string
}

func NewLocalUploader(dir, baseURL string) (*LocalUploader, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating upload dir: %w", err)
	}
	return &LocalUploader{Dir: dir, BaseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

func (u *LocalUploader) Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	if err := checkImage(contentType); err != nil {
		return "", err
	}

	key := objectKey("", name)
	dst := filepath.Join(u.Dir, key)

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("error creating upload file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dst)
		return "", fmt.Errorf("error writing upload file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("error closing upload file: %w", err)
	}

	log.Printf("Stored upload %s as %s", name, dst)
	return u.BaseURL + "/" + key, nil
}
