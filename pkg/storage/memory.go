package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// MemoryStorage keeps blobs in memory. It is safe for concurrent use and is
// meant for tests and local development.
type MemoryStorage struct {
	mu    sync.RWMutex
	blobs map[string][]byte
	types map[string]string
}

// NewMemoryStorage returns an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		blobs: make(map[string][]byte),
		types: make(map[string]string),
	}
}

// Exists reports whether key has stored bytes.
func (m *MemoryStorage) Exists(_ context.Context, key string) (bool, error) {
	if err := ValidateKey(key); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.blobs[key]
	return ok, nil
}

// Open returns a reader over a copy-free view of the blob.
func (m *MemoryStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.blobs[key]
	if !ok {
		return nil, ErrBlobNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Put stores the content of r under key.
func (m *MemoryStorage) Put(_ context.Context, key string, r io.Reader, size int64, contentType string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read blob: %w", err)
	}
	if size >= 0 && int64(len(data)) != size {
		return fmt.Errorf("blob size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = data
	m.types[key] = contentType
	return nil
}

// Delete removes key; missing keys are ignored.
func (m *MemoryStorage) Delete(_ context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, key)
	delete(m.types, key)
	return nil
}

// Len returns the number of stored blobs.
func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}
