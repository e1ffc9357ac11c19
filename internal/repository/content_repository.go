package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/content-vault-api/internal/models"
)

const contentColumns = `id, title, content_type, year, subject, teacher, program, storage_key, original_name, mime_type, size_bytes, status, download_count, created_at, approved_at`

// ContentRepository persists single-file content items.
type ContentRepository struct {
	db *sqlx.DB
}

// NewContentRepository constructs the repository.
func NewContentRepository(db *sqlx.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

// Create inserts a pending content item.
func (r *ContentRepository) Create(ctx context.Context, item *models.ContentItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	if item.Status == "" {
		item.Status = models.StatusPending
	}
	const query = `INSERT INTO content_items
	(id, title, content_type, year, subject, teacher, program, storage_key, original_name, mime_type, size_bytes, status, download_count, created_at)
	VALUES (:id, :title, :content_type, :year, :subject, :teacher, :program, :storage_key, :original_name, :mime_type, :size_bytes, :status, 0, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create content item: %w", err)
	}
	return nil
}

// GetByID returns one content item or sql.ErrNoRows.
func (r *ContentRepository) GetByID(ctx context.Context, id string) (*models.ContentItem, error) {
	query := `SELECT ` + contentColumns + ` FROM content_items WHERE id = $1`
	var item models.ContentItem
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		return nil, err
	}
	return &item, nil
}

// ListApproved returns a page of approved items matching filter plus the
// unpaged total.
func (r *ContentRepository) ListApproved(ctx context.Context, filter models.ContentFilter) ([]models.ContentItem, int, error) {
	conditions := []string{"status = $1"}
	args := []interface{}{models.StatusApproved}

	if filter.Year != nil {
		args = append(args, *filter.Year)
		conditions = append(conditions, fmt.Sprintf("year = $%d", len(args)))
	}
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		conditions = append(conditions, fmt.Sprintf("content_type = $%d", len(args)))
	}
	if filter.Subject != "" {
		args = append(args, filter.Subject)
		conditions = append(conditions, fmt.Sprintf("subject = $%d", len(args)))
	}
	if filter.Teacher != "" {
		args = append(args, filter.Teacher)
		conditions = append(conditions, fmt.Sprintf("teacher = $%d", len(args)))
	}
	if filter.Program != "" {
		args = append(args, filter.Program)
		conditions = append(conditions, fmt.Sprintf("program = $%d", len(args)))
	}
	where := " WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM content_items`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count content items: %w", err)
	}

	orderBy := " ORDER BY created_at DESC, id"
	if filter.Sort == models.SortMostDownloaded {
		orderBy = " ORDER BY download_count DESC, created_at DESC, id"
	}

	page, size := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	args = append(args, size, (page-1)*size)
	query := `SELECT ` + contentColumns + ` FROM content_items` + where + orderBy +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	var items []models.ContentItem
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list content items: %w", err)
	}
	return items, total, nil
}

// Facets returns the distinct filter values across approved items.
func (r *ContentRepository) Facets(ctx context.Context) (*models.ContentFacets, error) {
	facets := &models.ContentFacets{Years: []int{}, Subjects: []string{}, Teachers: []string{}, Programs: []string{}}
	if err := r.db.SelectContext(ctx, &facets.Years,
		`SELECT DISTINCT year FROM content_items WHERE status = $1 AND year IS NOT NULL ORDER BY year DESC`, models.StatusApproved); err != nil {
		return nil, fmt.Errorf("list content years: %w", err)
	}
	columns := []struct {
		name string
		dest *[]string
	}{
		{"subject", &facets.Subjects},
		{"teacher", &facets.Teachers},
		{"program", &facets.Programs},
	}
	for _, column := range columns {
		query := fmt.Sprintf(`SELECT DISTINCT %[1]s FROM content_items WHERE status = $1 AND %[1]s <> '' ORDER BY %[1]s`, column.name)
		if err := r.db.SelectContext(ctx, column.dest, query, models.StatusApproved); err != nil {
			return nil, fmt.Errorf("list content %ss: %w", column.name, err)
		}
	}
	return facets, nil
}

// IncrementDownloadCount bumps the counter in a single statement.
func (r *ContentRepository) IncrementDownloadCount(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE content_items SET download_count = download_count + 1 WHERE id = $1`, id); err != nil {
		return fmt.Errorf("increment content download count: %w", err)
	}
	return nil
}

// UpdateStatus moves the listed items to status. Approval stamps approved_at
// the first time only.
func (r *ContentRepository) UpdateStatus(ctx context.Context, ids []string, status models.SubmissionStatus) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	const query = `UPDATE content_items
	SET status = $1,
	    approved_at = CASE WHEN $1 = 'APPROVED' THEN COALESCE(approved_at, NOW()) ELSE approved_at END
	WHERE id = ANY($2)`
	res, err := r.db.ExecContext(ctx, query, status, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("update content status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update content status rows: %w", err)
	}
	return affected, nil
}

// GetApprovedByIDs returns the approved items among ids in request order.
// Unknown or unapproved ids are dropped.
func (r *ContentRepository) GetApprovedByIDs(ctx context.Context, ids []string) ([]models.ContentItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + contentColumns + ` FROM content_items WHERE status = $1 AND id = ANY($2)`
	var items []models.ContentItem
	if err := r.db.SelectContext(ctx, &items, query, models.StatusApproved, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list content by ids: %w", err)
	}
	position := make(map[string]int, len(ids))
	for i, id := range ids {
		if _, ok := position[id]; !ok {
			position[id] = i
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return position[items[i].ID] < position[items[j].ID]
	})
	return items, nil
}
