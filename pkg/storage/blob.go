package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/noah-isme/content-vault-api/pkg/config"
)

var (
	// ErrBlobNotFound is returned when a key has no stored bytes.
	ErrBlobNotFound = errors.New("blob not found")
	// ErrInvalidKey is returned for keys that could escape the storage root.
	ErrInvalidKey = errors.New("invalid storage key")
)

// BlobStore stores write-once byte blobs addressed by generated keys.
type BlobStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
}

// NewFromConfig creates the BlobStore selected by cfg.Backend.
func NewFromConfig(ctx context.Context, cfg config.StorageConfig) (BlobStore, error) {
	switch cfg.Backend {
	case "", config.StorageLocal:
		return NewLocalStorage(cfg.Dir)
	case config.StorageS3:
		return NewS3Storage(ctx, cfg.S3)
	case config.StorageMemory:
		return NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}

// ValidateKey rejects empty, absolute or traversing keys. Keys always use
// forward slashes regardless of backend.
func ValidateKey(key string) error {
	if key == "" || strings.ContainsAny(key, "\\\x00") || strings.HasPrefix(key, "/") {
		return ErrInvalidKey
	}
	cleaned := path.Clean(key)
	if cleaned != key || cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return ErrInvalidKey
	}
	return nil
}
