package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/content-vault-api/internal/models"
	"github.com/noah-isme/content-vault-api/internal/repository"
	"github.com/noah-isme/content-vault-api/pkg/archive"
	appErrors "github.com/noah-isme/content-vault-api/pkg/errors"
	"github.com/noah-isme/content-vault-api/pkg/upload"
)

type batchRepository interface {
	Create(ctx context.Context, batch *models.Batch) error
	GetByID(ctx context.Context, id string) (*models.Batch, error)
	IncrementDownloadCount(ctx context.Context, id string) error
}

type batchFileRepository interface {
	ListByBatch(ctx context.Context, batchID string) ([]models.StoredFile, error)
	GetByID(ctx context.Context, batchID, fileID string) (*models.StoredFile, error)
	CountByBatch(ctx context.Context, batchID string) (int, error)
	Attach(ctx context.Context, batchID string, files []models.StoredFile, maxFiles int) error
	Delete(ctx context.Context, batchID, fileID string) error
}

type reviewVerifier interface {
	Verify(batchID, token string) error
}

type blobScheduler interface {
	ScheduleDelete(key string)
}

// BatchService runs the submission batch lifecycle: create, attach, list,
// delete and archive.
type BatchService struct {
	batches   batchRepository
	files     batchFileRepository
	store     blobStore
	gate      *AccessGate
	validator *upload.Validator
	streamer  archiveStreamer
	review    reviewVerifier
	janitor   blobScheduler
	validate  *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
}

// BatchServiceDeps groups BatchService collaborators.
type BatchServiceDeps struct {
	Batches   batchRepository
	Files     batchFileRepository
	Store     blobStore
	Gate      *AccessGate
	Validator *upload.Validator
	Streamer  archiveStreamer
	Review    reviewVerifier
	Janitor   blobScheduler
	Validate  *validator.Validate
	Metrics   *MetricsService
	Logger    *zap.Logger
}

// NewBatchService constructs the service.
func NewBatchService(deps BatchServiceDeps) *BatchService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Validate == nil {
		deps.Validate = validator.New()
	}
	return &BatchService{
		batches:   deps.Batches,
		files:     deps.Files,
		store:     deps.Store,
		gate:      deps.Gate,
		validator: deps.Validator,
		streamer:  deps.Streamer,
		review:    deps.Review,
		janitor:   deps.Janitor,
		validate:  deps.Validate,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
	}
}

// CreateBatch opens an empty pending batch, mints its access token and binds
// the token to the caller's session.
func (s *BatchService) CreateBatch(ctx context.Context, req models.CreateBatchRequest, sessionID string) (*models.CreateBatchResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid batch payload")
	}
	if sessionID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "session required")
	}
	token, err := newAccessToken()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mint access token")
	}

	batch := &models.Batch{
		ID:          uuid.NewString(),
		AccessToken: token,
		Status:      models.StatusPending,
		Context:     req.Context,
		TypeOption:  req.TypeOption,
		Subject:     req.Subject,
		Teacher:     req.Teacher,
		Program:     req.Program,
		Year:        req.Year,
	}
	// No batch row may exist without a session holding its token.
	if err := s.gate.Remember(ctx, sessionID, batch.ID, token); err != nil {
		s.logger.Error("remember batch token failed", zap.String("batch_id", batch.ID), zap.Error(err))
		return nil, err
	}
	if err := s.batches.Create(ctx, batch); err != nil {
		s.logger.Error("create batch failed", zap.String("batch_id", batch.ID), zap.Error(err))
		if forgetErr := s.gate.Forget(ctx, sessionID, batch.ID); forgetErr != nil {
			s.logger.Warn("forget batch token failed", zap.String("batch_id", batch.ID), zap.Error(forgetErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create batch")
	}

	s.logger.Info("batch created", zap.String("batch_id", batch.ID))
	return &models.CreateBatchResponse{ID: batch.ID, AccessToken: token, Status: batch.Status, CreatedAt: batch.CreatedAt}, nil
}

// AddFiles validates every incoming file and, only if all pass, stores and
// records them together. Any rejection refuses the whole submission and
// nothing is persisted.
func (s *BatchService) AddFiles(ctx context.Context, batchID string, creds Credentials, inputs []upload.FileInput) ([]models.FileView, error) {
	batch, err := s.loadBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Authorize(ctx, batch, creds, AccessWrite); err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no files submitted")
	}

	existing, err := s.files.CountByBatch(ctx, batchID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count files")
	}
	if rejection := s.validator.CheckCount(existing, len(inputs)); rejection != nil {
		return nil, s.rejected([]*upload.Rejection{rejection})
	}

	accepted := make([]*upload.Accepted, len(inputs))
	var rejections []*upload.Rejection
	for i, in := range inputs {
		ok, rejection := s.validator.Validate(in)
		if rejection != nil {
			rejections = append(rejections, rejection)
			continue
		}
		accepted[i] = ok
	}
	if len(rejections) > 0 {
		return nil, s.rejected(rejections)
	}

	records := make([]models.StoredFile, 0, len(inputs))
	written := make([]string, 0, len(inputs))
	for i, in := range inputs {
		fileID := uuid.NewString()
		key := "batches/" + batchID + "/" + fileID
		if err := putUpload(ctx, s.store, key, in.Content, accepted[i].Size, accepted[i].ContentType); err != nil {
			s.discard(written)
			s.logger.Error("store upload failed", zap.String("batch_id", batchID), zap.Error(err))
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
		}
		written = append(written, key)
		records = append(records, models.StoredFile{
			ID:           fileID,
			OriginalName: in.Name,
			Size:         accepted[i].Size,
			ContentType:  accepted[i].ContentType,
			SniffedType:  accepted[i].Sniffed,
			StorageKey:   key,
		})
	}

	if err := s.files.Attach(ctx, batchID, records, s.validator.Policy().MaxFiles); err != nil {
		s.discard(written)
		switch {
		case errors.Is(err, repository.ErrBatchFull):
			limit := s.validator.Policy().MaxFiles
			return nil, s.rejected([]*upload.Rejection{s.validator.CheckCount(limit, len(inputs))})
		case errors.Is(err, repository.ErrBatchApproved):
			return nil, appErrors.ErrBatchLocked
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		s.logger.Error("attach files failed", zap.String("batch_id", batchID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record files")
	}

	views := make([]models.FileView, len(records))
	for i, record := range records {
		views[i] = record.View()
		s.metrics.RecordUploadAccepted(models.TargetBatch, record.Size)
	}
	s.logger.Info("files attached", zap.String("batch_id", batchID), zap.Int("count", len(records)))
	return views, nil
}

// ListFiles returns the batch's files in upload order.
func (s *BatchService) ListFiles(ctx context.Context, batchID string, creds Credentials) ([]models.FileView, error) {
	batch, err := s.loadBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Authorize(ctx, batch, creds, AccessRead); err != nil {
		return nil, err
	}
	files, err := s.files.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list files")
	}
	views := make([]models.FileView, len(files))
	for i, file := range files {
		views[i] = file.View()
	}
	return views, nil
}

// DownloadFile streams one file of the batch.
func (s *BatchService) DownloadFile(ctx context.Context, batchID, fileID string, creds Credentials, sink DownloadSink) error {
	batch, err := s.loadBatch(ctx, batchID)
	if err != nil {
		return err
	}
	if err := s.gate.Authorize(ctx, batch, creds, AccessRead); err != nil {
		return err
	}
	file, err := s.loadFile(ctx, batchID, fileID)
	if err != nil {
		return err
	}
	if err := copyBlob(ctx, s.store, file.StorageKey, sink, file.DisplayName(), file.ContentType, file.Size); err != nil {
		return err
	}
	s.metrics.RecordDownload(models.TargetBatch)
	return nil
}

// DeleteFile removes one file while the batch is not approved. The blob goes
// first; a failed blob delete is handed to the janitor and the row is still
// removed.
func (s *BatchService) DeleteFile(ctx context.Context, batchID, fileID string, creds Credentials) error {
	batch, err := s.loadBatch(ctx, batchID)
	if err != nil {
		return err
	}
	if err := s.gate.Authorize(ctx, batch, creds, AccessWrite); err != nil {
		return err
	}
	file, err := s.loadFile(ctx, batchID, fileID)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, file.StorageKey); err != nil {
		s.logger.Warn("blob delete failed, scheduling retry", zap.String("key", file.StorageKey), zap.Error(err))
		if s.janitor != nil {
			s.janitor.ScheduleDelete(file.StorageKey)
		}
	}
	if err := s.files.Delete(ctx, batchID, fileID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete file")
	}
	s.logger.Info("file deleted", zap.String("batch_id", batchID), zap.String("file_id", fileID))
	return nil
}

// StreamArchive sends the batch as one ZIP and counts the download once the
// archive completed.
func (s *BatchService) StreamArchive(ctx context.Context, batchID string, creds Credentials, sink DownloadSink) (archive.Result, error) {
	batch, err := s.loadBatch(ctx, batchID)
	if err != nil {
		return archive.Result{}, err
	}
	if err := s.gate.Authorize(ctx, batch, creds, AccessRead); err != nil {
		return archive.Result{}, err
	}
	return s.streamBatch(ctx, batch, sink)
}

// ReviewArchive serves any batch to staff holding a valid signed review link.
func (s *BatchService) ReviewArchive(ctx context.Context, batchID, signature string, sink DownloadSink) (archive.Result, error) {
	if s.review == nil || s.review.Verify(batchID, signature) != nil {
		return archive.Result{}, errAccessDenied
	}
	batch, err := s.loadBatch(ctx, batchID)
	if err != nil {
		return archive.Result{}, err
	}
	return s.streamBatch(ctx, batch, sink)
}

func (s *BatchService) streamBatch(ctx context.Context, batch *models.Batch, sink DownloadSink) (archive.Result, error) {
	files, err := s.files.ListByBatch(ctx, batch.ID)
	if err != nil {
		return archive.Result{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list files")
	}
	entries := make([]archive.Entry, len(files))
	for i, file := range files {
		entries[i] = archive.Entry{Name: file.OriginalName, Key: file.StorageKey, Modified: file.CreatedAt}
	}

	start := time.Now()
	result, err := streamArchive(ctx, s.streamer, sink, "batch-"+batch.ID+".zip", entries)
	if err != nil {
		return result, err
	}
	s.metrics.ObserveArchive(result.Bytes, len(result.Skipped), time.Since(start))
	s.metrics.RecordDownload(models.TargetBatch)
	if err := s.batches.IncrementDownloadCount(ctx, batch.ID); err != nil {
		s.logger.Error("increment batch download count failed", zap.String("batch_id", batch.ID), zap.Error(err))
	}
	return result, nil
}

func (s *BatchService) loadBatch(ctx context.Context, batchID string) (*models.Batch, error) {
	if !isUUID(batchID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
	}
	batch, err := s.batches.GetByID(ctx, batchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch")
	}
	return batch, nil
}

func (s *BatchService) loadFile(ctx context.Context, batchID, fileID string) (*models.StoredFile, error) {
	if !isUUID(fileID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}
	file, err := s.files.GetByID(ctx, batchID, fileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load file")
	}
	return file, nil
}

func (s *BatchService) rejected(rejections []*upload.Rejection) error {
	for _, r := range rejections {
		s.metrics.RecordUploadRejected(models.TargetBatch, string(r.Reason))
	}
	return appErrors.WithDetails(appErrors.ErrUploadRejected, rejections)
}

// discard removes blobs written for a submission that did not commit.
func (s *BatchService) discard(keys []string) {
	for _, key := range keys {
		if err := s.store.Delete(context.Background(), key); err != nil {
			s.logger.Warn("discard blob failed", zap.String("key", key), zap.Error(err))
			if s.janitor != nil {
				s.janitor.ScheduleDelete(key)
			}
		}
	}
}

func newAccessToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
