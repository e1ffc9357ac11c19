package service

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/content-vault-api/internal/models"
	"github.com/noah-isme/content-vault-api/pkg/jobs"
	"github.com/noah-isme/content-vault-api/pkg/storage"
)

type flakyDeleter struct {
	*storage.MemoryStorage
	mu       sync.Mutex
	failures int
	calls    int
}

func (d *flakyDeleter) Delete(ctx context.Context, key string) error {
	d.mu.Lock()
	d.calls++
	fail := d.calls <= d.failures
	d.mu.Unlock()
	if fail {
		return errors.New("transient")
	}
	return d.MemoryStorage.Delete(ctx, key)
}

type fakeLedger struct {
	files []models.StoredFile
}

func (l *fakeLedger) ListAll(ctx context.Context, limit, offset int) ([]models.StoredFile, error) {
	if offset >= len(l.files) {
		return nil, nil
	}
	end := offset + limit
	if end > len(l.files) {
		end = len(l.files)
	}
	return l.files[offset:end], nil
}

func TestBlobJanitorRetriesDeletes(t *testing.T) {
	store := &flakyDeleter{MemoryStorage: storage.NewMemoryStorage(), failures: 2}
	require.NoError(t, store.Put(context.Background(), "batches/b1/f1", bytes.NewReader(pdfBody), int64(len(pdfBody)), "application/pdf"))

	janitor := NewBlobJanitor(store, &fakeLedger{}, nil, nil, jobs.QueueConfig{Workers: 1, MaxRetries: 5, RetryDelay: 5 * time.Millisecond})
	janitor.Start(context.Background())
	defer janitor.Stop()

	janitor.ScheduleDelete("batches/b1/f1")
	require.Eventually(t, func() bool { return store.Len() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestBlobJanitorMissingBlobIsDone(t *testing.T) {
	store := &flakyDeleter{MemoryStorage: storage.NewMemoryStorage()}
	janitor := NewBlobJanitor(store, &fakeLedger{}, nil, nil, jobs.QueueConfig{Workers: 1, RetryDelay: time.Millisecond})
	janitor.Start(context.Background())

	janitor.ScheduleDelete("gone")
	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return store.calls == 1
	}, time.Second, 2*time.Millisecond)
	janitor.Stop()

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, 1, store.calls)
}

func TestBlobJanitorVerifyLedger(t *testing.T) {
	store := storage.NewMemoryStorage()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "k1", bytes.NewReader(pdfBody), int64(len(pdfBody)), "application/pdf"))
	require.NoError(t, store.Put(ctx, "k3", bytes.NewReader(pdfBody), int64(len(pdfBody)), "application/pdf"))
	ledger := &fakeLedger{files: []models.StoredFile{
		{ID: "f1", BatchID: "b", StorageKey: "k1"},
		{ID: "f2", BatchID: "b", StorageKey: "k2"},
		{ID: "f3", BatchID: "b", StorageKey: "k3"},
	}}

	janitor := NewBlobJanitor(store, ledger, nil, nil, jobs.QueueConfig{})
	missing, checked, err := janitor.VerifyLedger(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, checked)
	assert.Equal(t, []MissingBlob{{FileID: "f2", BatchID: "b", StorageKey: "k2"}}, missing)
}
