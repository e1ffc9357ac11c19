package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/content-vault-api/internal/models"
)

const batchColumns = `id, owner_id, access_token, status, context, type_option, subject, teacher, program, year, download_count, created_at`

// BatchRepository persists submission batches.
type BatchRepository struct {
	db *sqlx.DB
}

// NewBatchRepository constructs the repository.
func NewBatchRepository(db *sqlx.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// Create inserts an empty batch.
func (r *BatchRepository) Create(ctx context.Context, batch *models.Batch) error {
	if batch.ID == "" {
		batch.ID = uuid.NewString()
	}
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = time.Now().UTC()
	}
	if batch.Status == "" {
		batch.Status = models.StatusPending
	}
	const query = `INSERT INTO upload_batches
	(id, owner_id, access_token, status, context, type_option, subject, teacher, program, year, download_count, created_at)
	VALUES (:id, :owner_id, :access_token, :status, :context, :type_option, :subject, :teacher, :program, :year, 0, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, batch); err != nil {
		return fmt.Errorf("create upload batch: %w", err)
	}
	return nil
}

// GetByID returns one batch or sql.ErrNoRows.
func (r *BatchRepository) GetByID(ctx context.Context, id string) (*models.Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM upload_batches WHERE id = $1`
	var batch models.Batch
	if err := r.db.GetContext(ctx, &batch, query, id); err != nil {
		return nil, err
	}
	return &batch, nil
}

// ListSummaries returns the moderation queue with per-batch file totals.
func (r *BatchRepository) ListSummaries(ctx context.Context, filter models.BatchFilter) ([]models.BatchSummary, int, error) {
	args := make([]interface{}, 0, 3)
	where := ""
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = fmt.Sprintf(" WHERE b.status = $%d", len(args))
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM upload_batches b`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count upload batches: %w", err)
	}

	builder := strings.Builder{}
	builder.WriteString(`SELECT b.id, b.owner_id, b.access_token, b.status, b.context, b.type_option, b.subject, b.teacher,
       b.program, b.year, b.download_count, b.created_at,
       COUNT(f.id) AS file_count, COALESCE(SUM(f.size), 0) AS total_bytes
	FROM upload_batches b
	LEFT JOIN upload_files f ON f.batch_id = b.id`)
	builder.WriteString(where)
	builder.WriteString(` GROUP BY b.id ORDER BY b.created_at DESC, b.id`)
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		builder.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		builder.WriteString(fmt.Sprintf(" OFFSET $%d", len(args)))
	}

	var summaries []models.BatchSummary
	if err := r.db.SelectContext(ctx, &summaries, builder.String(), args...); err != nil {
		return nil, 0, fmt.Errorf("list upload batches: %w", err)
	}
	return summaries, total, nil
}

// UpdateStatus moves every listed batch to status in one statement.
func (r *BatchRepository) UpdateStatus(ctx context.Context, ids []string, status models.SubmissionStatus) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx, `UPDATE upload_batches SET status = $1 WHERE id = ANY($2)`, status, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("update upload batch status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update upload batch status rows: %w", err)
	}
	return affected, nil
}

// IncrementDownloadCount bumps the counter in the database so concurrent
// downloads never lose an increment.
func (r *BatchRepository) IncrementDownloadCount(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE upload_batches SET download_count = download_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment batch download count: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment batch download count rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
