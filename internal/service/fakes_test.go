package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"path"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/content-vault-api/internal/models"
	"github.com/noah-isme/content-vault-api/internal/repository"
	"github.com/noah-isme/content-vault-api/pkg/config"
	appErrors "github.com/noah-isme/content-vault-api/pkg/errors"
)

var pdfBody = []byte("%PDF-1.4\n1 0 obj << /Type /Catalog >> endobj\ntrailer\n%%EOF\n")

var pngBody = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), bytes.Repeat([]byte{0}, 32)...)

func testUploadsConfig() config.UploadsConfig {
	return config.UploadsConfig{
		MaxFilesPerBatch:       10,
		MaxBatchFileSize:       15 * 1024 * 1024,
		MaxContentFileSize:     25 * 1024 * 1024,
		MaxMemeFileSize:        10 * 1024 * 1024,
		MaxArchiveEntries:      200,
		MaxArchiveUncompressed: 150 * 1024 * 1024,
	}
}

type fakeBatchRepo struct {
	mu        sync.Mutex
	batches   map[string]*models.Batch
	downloads map[string]*int64
	createErr error
	lastID    string
}

func newFakeBatchRepo() *fakeBatchRepo {
	return &fakeBatchRepo{batches: map[string]*models.Batch{}, downloads: map[string]*int64{}}
}

func (r *fakeBatchRepo) Create(ctx context.Context, batch *models.Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if batch.ID == "" {
		batch.ID = uuid.NewString()
	}
	r.lastID = batch.ID
	if r.createErr != nil {
		return r.createErr
	}
	batch.CreatedAt = time.Now().UTC()
	copied := *batch
	r.batches[batch.ID] = &copied
	r.downloads[batch.ID] = new(int64)
	return nil
}

func (r *fakeBatchRepo) GetByID(ctx context.Context, id string) (*models.Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	batch, ok := r.batches[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *batch
	copied.DownloadCount = atomic.LoadInt64(r.downloads[id])
	return &copied, nil
}

func (r *fakeBatchRepo) IncrementDownloadCount(ctx context.Context, id string) error {
	r.mu.Lock()
	counter, ok := r.downloads[id]
	r.mu.Unlock()
	if !ok {
		return sql.ErrNoRows
	}
	atomic.AddInt64(counter, 1)
	return nil
}

func (r *fakeBatchRepo) setStatus(id string, status models.SubmissionStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches[id].Status = status
}

type fakeFileRepo struct {
	mu      sync.Mutex
	batches *fakeBatchRepo
	files   map[string][]models.StoredFile
	attachs int
}

func newFakeFileRepo(batches *fakeBatchRepo) *fakeFileRepo {
	return &fakeFileRepo{batches: batches, files: map[string][]models.StoredFile{}}
}

func (r *fakeFileRepo) ListByBatch(ctx context.Context, batchID string) ([]models.StoredFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	files := append([]models.StoredFile(nil), r.files[batchID]...)
	sort.SliceStable(files, func(i, j int) bool { return files[i].CreatedAt.Before(files[j].CreatedAt) })
	return files, nil
}

func (r *fakeFileRepo) GetByID(ctx context.Context, batchID, fileID string) (*models.StoredFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, file := range r.files[batchID] {
		if file.ID == fileID {
			copied := file
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *fakeFileRepo) CountByBatch(ctx context.Context, batchID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.files[batchID]), nil
}

func (r *fakeFileRepo) Attach(ctx context.Context, batchID string, files []models.StoredFile, maxFiles int) error {
	batch, err := r.batches.GetByID(ctx, batchID)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attachs++
	if batch.Status == models.StatusApproved {
		return repository.ErrBatchApproved
	}
	if len(r.files[batchID])+len(files) > maxFiles {
		return repository.ErrBatchFull
	}
	now := time.Now().UTC()
	for i := range files {
		files[i].BatchID = batchID
		files[i].CreatedAt = now.Add(time.Duration(i) * time.Microsecond)
		r.files[batchID] = append(r.files[batchID], files[i])
	}
	return nil
}

func (r *fakeFileRepo) Delete(ctx context.Context, batchID, fileID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	files := r.files[batchID]
	for i, file := range files {
		if file.ID == fileID {
			r.files[batchID] = append(files[:i], files[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

type recordingScheduler struct {
	mu   sync.Mutex
	keys []string
}

func (s *recordingScheduler) ScheduleDelete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, key)
}

// bufferSink is a DownloadSink that records what it was told.
type bufferSink struct {
	bytes.Buffer
	filename    string
	contentType string
	size        int64
	described   bool
}

func (s *bufferSink) Describe(filename, contentType string, size int64) {
	s.filename, s.contentType, s.size, s.described = filename, contentType, size, true
}

type fakeCacheRepo struct {
	mu          sync.Mutex
	entries     map[string]interface{}
	invalidated []string
}

func newFakeCacheRepo() *fakeCacheRepo {
	return &fakeCacheRepo{entries: map[string]interface{}{}}
}

func (r *fakeCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	r.mu.Lock()
	value, ok := r.entries[key]
	r.mu.Unlock()
	if !ok {
		return appErrors.ErrCacheMiss
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, dest)
}

func (r *fakeCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[key] = value
	return nil
}

func (r *fakeCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidated = append(r.invalidated, pattern)
	for key := range r.entries {
		if ok, _ := path.Match(pattern, key); ok {
			delete(r.entries, key)
		}
	}
	return nil
}

type fakeAuditRepo struct {
	mu   sync.Mutex
	logs []models.AuditLog
}

func (r *fakeAuditRepo) Create(ctx context.Context, log *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, *log)
	return nil
}

type fakeStatusUpdater struct {
	ids    []string
	status models.SubmissionStatus
	known  map[string]bool
}

func (u *fakeStatusUpdater) UpdateStatus(ctx context.Context, ids []string, status models.SubmissionStatus) (int64, error) {
	u.ids, u.status = ids, status
	var n int64
	for _, id := range ids {
		if u.known[id] {
			n++
		}
	}
	return n, nil
}
