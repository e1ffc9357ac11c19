package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/content-vault-api/internal/models"
)

var (
	// ErrBatchFull is returned when attaching would exceed the file cap.
	ErrBatchFull = errors.New("batch file limit reached")
	// ErrBatchApproved is returned when files are attached to an approved batch.
	ErrBatchApproved = errors.New("batch already approved")
)

const fileColumns = `id, batch_id, original_name, size, content_type, sniffed_type, storage_key, created_at`

// UploadFileRepository persists the files attached to batches.
type UploadFileRepository struct {
	db *sqlx.DB
}

// NewUploadFileRepository constructs the repository.
func NewUploadFileRepository(db *sqlx.DB) *UploadFileRepository {
	return &UploadFileRepository{db: db}
}

// ListByBatch returns the batch's files in upload order.
func (r *UploadFileRepository) ListByBatch(ctx context.Context, batchID string) ([]models.StoredFile, error) {
	query := `SELECT ` + fileColumns + ` FROM upload_files WHERE batch_id = $1 ORDER BY created_at, id`
	var files []models.StoredFile
	if err := r.db.SelectContext(ctx, &files, query, batchID); err != nil {
		return nil, fmt.Errorf("list upload files: %w", err)
	}
	return files, nil
}

// GetByID returns one file of a batch or sql.ErrNoRows.
func (r *UploadFileRepository) GetByID(ctx context.Context, batchID, fileID string) (*models.StoredFile, error) {
	query := `SELECT ` + fileColumns + ` FROM upload_files WHERE batch_id = $1 AND id = $2`
	var file models.StoredFile
	if err := r.db.GetContext(ctx, &file, query, batchID, fileID); err != nil {
		return nil, err
	}
	return &file, nil
}

// CountByBatch returns how many files a batch holds.
func (r *UploadFileRepository) CountByBatch(ctx context.Context, batchID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM upload_files WHERE batch_id = $1`, batchID); err != nil {
		return 0, fmt.Errorf("count upload files: %w", err)
	}
	return count, nil
}

// Attach records files against a batch atomically. The batch row is locked
// for the duration so concurrent uploads cannot exceed maxFiles together.
func (r *UploadFileRepository) Attach(ctx context.Context, batchID string, files []models.StoredFile, maxFiles int) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin attach upload files: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var status models.SubmissionStatus
	if err = tx.GetContext(ctx, &status, `SELECT status FROM upload_batches WHERE id = $1 FOR UPDATE`, batchID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("lock upload batch: %w", err)
	}
	if status == models.StatusApproved {
		err = ErrBatchApproved
		return err
	}

	var existing int
	if err = tx.GetContext(ctx, &existing, `SELECT COUNT(*) FROM upload_files WHERE batch_id = $1`, batchID); err != nil {
		return fmt.Errorf("count upload files: %w", err)
	}
	if maxFiles > 0 && existing+len(files) > maxFiles {
		err = ErrBatchFull
		return err
	}

	now := time.Now().UTC()
	const query = `INSERT INTO upload_files (id, batch_id, original_name, size, content_type, sniffed_type, storage_key, created_at)
	VALUES (:id, :batch_id, :original_name, :size, :content_type, :sniffed_type, :storage_key, :created_at)`
	for i := range files {
		file := &files[i]
		if file.ID == "" {
			file.ID = uuid.NewString()
		}
		if file.CreatedAt.IsZero() {
			// keep submission order stable under (created_at, id) ordering
			file.CreatedAt = now.Add(time.Duration(i) * time.Microsecond)
		}
		file.BatchID = batchID
		if _, err = tx.NamedExecContext(ctx, query, file); err != nil {
			return fmt.Errorf("insert upload file: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit attach upload files: %w", err)
	}
	return nil
}

// Delete removes one file row; sql.ErrNoRows when nothing matched.
func (r *UploadFileRepository) Delete(ctx context.Context, batchID, fileID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM upload_files WHERE batch_id = $1 AND id = $2`, batchID, fileID)
	if err != nil {
		return fmt.Errorf("delete upload file: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete upload file rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListAll pages through every stored file, oldest first.
func (r *UploadFileRepository) ListAll(ctx context.Context, limit, offset int) ([]models.StoredFile, error) {
	if limit <= 0 {
		limit = 500
	}
	query := `SELECT ` + fileColumns + ` FROM upload_files ORDER BY created_at, id LIMIT $1 OFFSET $2`
	var files []models.StoredFile
	if err := r.db.SelectContext(ctx, &files, query, limit, offset); err != nil {
		return nil, fmt.Errorf("list all upload files: %w", err)
	}
	return files, nil
}
