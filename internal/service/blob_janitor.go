package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/content-vault-api/internal/models"
	"github.com/noah-isme/content-vault-api/pkg/jobs"
	"github.com/noah-isme/content-vault-api/pkg/storage"
)

const jobTypeBlobDelete = "blob.delete"

type blobDeleter interface {
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

type ledgerFileLister interface {
	ListAll(ctx context.Context, limit, offset int) ([]models.StoredFile, error)
}

// BlobJanitor retries blob deletions that failed inline and audits the ledger
// for rows whose bytes are gone.
type BlobJanitor struct {
	store   blobDeleter
	files   ledgerFileLister
	queue   *jobs.Queue
	metrics *MetricsService
	logger  *zap.Logger
}

// NewBlobJanitor wires a janitor around its own job queue. Call Start before
// scheduling work.
func NewBlobJanitor(store blobDeleter, files ledgerFileLister, metrics *MetricsService, logger *zap.Logger, cfg jobs.QueueConfig) *BlobJanitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	j := &BlobJanitor{store: store, files: files, metrics: metrics, logger: logger}
	cfg.Logger = logger
	cfg.OnGiveUp = j.abandon
	j.queue = jobs.NewQueue("blob-janitor", j.handle, cfg)
	return j
}

// Start launches the workers.
func (j *BlobJanitor) Start(ctx context.Context) {
	j.queue.Start(ctx)
}

// Stop waits for in-flight deletions.
func (j *BlobJanitor) Stop() {
	j.queue.Stop()
}

// ScheduleDelete queues key for deletion without blocking the caller.
func (j *BlobJanitor) ScheduleDelete(key string) {
	if key == "" {
		return
	}
	if err := j.queue.TryEnqueue(jobs.Job{ID: uuid.NewString(), Type: jobTypeBlobDelete, Payload: key}); err != nil {
		j.logger.Error("blob cleanup not scheduled", zap.String("key", key), zap.Error(err))
		j.metrics.RecordBlobCleanup("dropped")
		return
	}
	j.metrics.RecordBlobCleanup("scheduled")
}

func (j *BlobJanitor) handle(ctx context.Context, job jobs.Job) error {
	key, ok := job.Payload.(string)
	if !ok {
		return nil
	}
	if err := j.store.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrBlobNotFound) {
		j.metrics.RecordBlobCleanup("failed")
		return fmt.Errorf("delete blob %s: %w", key, err)
	}
	j.metrics.RecordBlobCleanup("deleted")
	j.logger.Info("orphan blob removed", zap.String("key", key), zap.Int("attempt", job.Attempt))
	return nil
}

func (j *BlobJanitor) abandon(job jobs.Job, err error) {
	j.metrics.RecordBlobCleanup("abandoned")
	j.logger.Error("blob cleanup abandoned", zap.Any("key", job.Payload), zap.Error(err))
}

// MissingBlob is a ledger row without stored bytes.
type MissingBlob struct {
	FileID     string `json:"fileId"`
	BatchID    string `json:"batchId"`
	StorageKey string `json:"storageKey"`
}

// VerifyLedger walks every stored file and reports rows whose blob is gone.
func (j *BlobJanitor) VerifyLedger(ctx context.Context, pageSize int) ([]MissingBlob, int, error) {
	if pageSize <= 0 {
		pageSize = 500
	}
	var (
		missing []MissingBlob
		checked int
	)
	for offset := 0; ; offset += pageSize {
		files, err := j.files.ListAll(ctx, pageSize, offset)
		if err != nil {
			return nil, checked, err
		}
		for _, file := range files {
			exists, err := j.store.Exists(ctx, file.StorageKey)
			if err != nil {
				return nil, checked, fmt.Errorf("check blob %s: %w", file.StorageKey, err)
			}
			checked++
			if !exists {
				missing = append(missing, MissingBlob{FileID: file.ID, BatchID: file.BatchID, StorageKey: file.StorageKey})
			}
		}
		if len(files) < pageSize {
			return missing, checked, nil
		}
	}
}
