package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const tempPrefix = ".tmp-"

// LocalStorage persists blobs on disk under a base directory.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./media"
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve storage directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStorage{baseDir: abs}, nil
}

// Exists reports whether the key has stored bytes.
func (s *LocalStorage) Exists(_ context.Context, key string) (bool, error) {
	path, err := s.resolve(key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat blob: %w", err)
	}
	return info.Mode().IsRegular(), nil
}

// Open returns a read-only handle for the stored blob.
func (s *LocalStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return file, nil
}

// Put writes r to a temp file next to the target, syncs it and renames it in
// place so readers never observe a partial blob. A negative size skips the
// length check.
func (s *LocalStorage) Put(ctx context.Context, key string, r io.Reader, size int64, _ string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("prepare blob directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("create temp blob: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmp, r)
	if err != nil {
		return fmt.Errorf("write blob: %w", err)
	}
	if size >= 0 && written != size {
		return fmt.Errorf("blob size mismatch: expected %d bytes, wrote %d", size, written)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close blob: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("commit blob: %w", err)
	}
	committed = true
	return nil
}

// Delete removes a stored blob if present.
func (s *LocalStorage) Delete(_ context.Context, key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

// SweepStaleTemp removes temp files left behind by interrupted writes and
// returns their paths relative to the base directory.
func (s *LocalStorage) SweepStaleTemp(olderThan time.Duration) ([]string, error) {
	cutoff := time.Now().Add(-olderThan)
	deleted := make([]string, 0)
	err := filepath.WalkDir(s.baseDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasPrefix(d.Name(), tempPrefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		rel, err := filepath.Rel(s.baseDir, path)
		if err != nil {
			rel = path
		}
		deleted = append(deleted, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sweep temp blobs: %w", err)
	}
	return deleted, nil
}

// resolve maps a key onto the filesystem, refusing anything that would land
// outside the base directory.
func (s *LocalStorage) resolve(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	path := filepath.Join(s.baseDir, filepath.FromSlash(key))
	rel, err := filepath.Rel(s.baseDir, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", ErrInvalidKey
	}
	return path, nil
}
