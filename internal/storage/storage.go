// Package storage keeps uploaded book covers in an object store.
package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/talent-hunters/bookportal/config"
)

// PublicPrefix is the key prefix of objects served to anonymous clients.
const PublicPrefix = "images/"

// Backend defines the object operations the cover store needs.
type Backend interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// Storage wraps a Backend with a stable API.
type Storage struct {
	backend Backend
}

// New constructs a Storage wrapper for the provided backend.
func New(backend Backend) *Storage {
	return &Storage{backend: backend}
}

// Open builds the backend named by cfg.Backend. It returns nil when no
// backend is configured, which disables cover uploads.
func Open(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	switch cfg.Backend {
	case "":
		return nil, nil
	case config.StorageBackendMinio:
		client, err := NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, fmt.Errorf("minio: %w", err)
		}
		return New(client), nil
	case config.StorageBackendGCS:
		client, err := NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, fmt.Errorf("gcs: %w", err)
		}
		return New(client), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// EnsureBucket creates the configured bucket if it does not exist.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	return s.backend.EnsureBucket(ctx)
}

// Put uploads an object. A negative size means the length is unknown.
func (s *Storage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	return s.backend.Put(ctx, key, r, size, contentType)
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, key)
}

func (s *Storage) Bucket() string {
	return s.backend.Bucket()
}
