// Package storage keeps maintenance attachment blobs in an object store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/itparc/inventory/config"
)

// ErrObjectNotFound is returned by Get when no blob exists under the key.
var ErrObjectNotFound = errors.New("object not found")

// Backend is the set of object operations an attachment store needs.
type Backend interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
	Close() error
}

// Storage stores attachment blobs under keys it derives from the owning record.
type Storage struct {
	backend Backend
}

// NewStorage wraps backend.
func NewStorage(backend Backend) *Storage {
	return &Storage{backend: backend}
}

// Open builds the backend selected by cfg and makes sure its bucket exists.
// It returns nil when no backend is configured.
func Open(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	var (
		backend Backend
		err     error
	)
	switch cfg.Backend {
	case "":
		return nil, nil
	case config.StorageBackendMinio:
		backend, err = NewMinioClient(cfg.Minio)
	case config.StorageBackendGCS:
		backend, err = NewGCSClient(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("%s storage: %w", cfg.Backend, err)
	}
	if err := backend.EnsureBucket(ctx); err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("%s storage: ensure bucket %q: %w", cfg.Backend, backend.Bucket(), err)
	}
	return NewStorage(backend), nil
}

// AttachmentKey returns a fresh object key for a file attached to recordID.
// The original extension is kept so downloads stay recognisable.
func AttachmentKey(recordID int, filename string) string {
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(filename, "\\", "/"))))
	return path.Join("maintenance", strconv.Itoa(recordID), uuid.NewString()+ext)
}

// PutAttachment uploads r under key.
func (s *Storage) PutAttachment(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return s.backend.Put(ctx, key, r, size, contentType)
}

// OpenAttachment returns a reader for the blob stored under key.
func (s *Storage) OpenAttachment(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.backend.Get(ctx, key)
}

// RemoveAttachment deletes the blob stored under key.
func (s *Storage) RemoveAttachment(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, key)
}

// Bucket returns the configured bucket name.
func (s *Storage) Bucket() string {
	return s.backend.Bucket()
}

// Close releases the backend client.
func (s *Storage) Close() error {
	return s.backend.Close()
}
