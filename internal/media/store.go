// Package media implements the "store bytes, get back a URL" boundary used
// by incident creation.
package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/citywatch/incident_reporting_system/internal/models"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// MaxMediaBytes caps a single upload at 10 MB.
const MaxMediaBytes = 10 << 20

type StoredMedia struct {
	URL string `json:"url"`
	ID  string `json:"id"`
}

// Store persists incident media. Implementations fail on oversized or
// unaccepted content; a failure aborts the surrounding creation.
type Store interface {
	Store(ctx context.Context, data []byte, folder string) (*StoredMedia, error)
}

// acceptedTypes maps the allowed sniffed MIME types to file extensions.
var acceptedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"video/mp4":  ".mp4",
	"video/webm": ".webm",
}

// LocalStore writes media to a directory served under a base URL.
type LocalStore struct {
	baseDir string
	baseURL string
}

func NewLocalStore(baseDir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &LocalStore{
		baseDir: baseDir,
		baseURL: baseURL,
	}, nil
}

func (s *LocalStore) Store(ctx context.Context, data []byte, folder string) (*StoredMedia, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", models.ErrMediaRejected)
	}
	if len(data) > MaxMediaBytes {
		return nil, fmt.Errorf("%w: payload exceeds %d bytes", models.ErrMediaRejected, MaxMediaBytes)
	}

	// Sniff the real content type; client-supplied names are not trusted.
	mtype := mimetype.Detect(data)
	ext, ok := acceptedTypes[mtype.String()]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported type %s", models.ErrMediaRejected, mtype.String())
	}

	id := uuid.New().String()
	dir := filepath.Join(s.baseDir, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media folder: %w", err)
	}

	name := id + ext
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write media file: %w", err)
	}

	return &StoredMedia{
		URL: fmt.Sprintf("%s/%s/%s", s.baseURL, folder, name),
		ID:  id,
	}, nil
}
