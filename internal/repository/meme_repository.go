package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/content-vault-api/internal/models"
)

const memeColumns = `id, title, storage_key, original_name, mime_type, size_bytes, status, like_count, created_at, approved_at`

// MemeRepository persists meme submissions and their likes.
type MemeRepository struct {
	db *sqlx.DB
}

// NewMemeRepository constructs the repository.
func NewMemeRepository(db *sqlx.DB) *MemeRepository {
	return &MemeRepository{db: db}
}

// Create inserts a pending meme.
func (r *MemeRepository) Create(ctx context.Context, meme *models.Meme) error {
	if meme.ID == "" {
		meme.ID = uuid.NewString()
	}
	if meme.CreatedAt.IsZero() {
		meme.CreatedAt = time.Now().UTC()
	}
	if meme.Status == "" {
		meme.Status = models.StatusPending
	}
	const query = `INSERT INTO memes (id, title, storage_key, original_name, mime_type, size_bytes, status, like_count, created_at)
	VALUES (:id, :title, :storage_key, :original_name, :mime_type, :size_bytes, :status, 0, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, meme); err != nil {
		return fmt.Errorf("create meme: %w", err)
	}
	return nil
}

// GetByID returns one meme or sql.ErrNoRows.
func (r *MemeRepository) GetByID(ctx context.Context, id string) (*models.Meme, error) {
	query := `SELECT ` + memeColumns + ` FROM memes WHERE id = $1`
	var meme models.Meme
	if err := r.db.GetContext(ctx, &meme, query, id); err != nil {
		return nil, err
	}
	return &meme, nil
}

// ListApproved returns a page of approved memes, most liked first when
// byLikes is set, newest first otherwise.
func (r *MemeRepository) ListApproved(ctx context.Context, byLikes bool, limit, offset int) ([]models.Meme, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM memes WHERE status = $1`, models.StatusApproved); err != nil {
		return nil, 0, fmt.Errorf("count memes: %w", err)
	}
	orderBy := "created_at DESC, id"
	if byLikes {
		orderBy = "like_count DESC, created_at DESC, id"
	}
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + memeColumns + ` FROM memes WHERE status = $1 ORDER BY ` + orderBy + ` LIMIT $2 OFFSET $3`
	var memes []models.Meme
	if err := r.db.SelectContext(ctx, &memes, query, models.StatusApproved, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("list memes: %w", err)
	}
	return memes, total, nil
}

// UpdateStatus moves the listed memes to status.
func (r *MemeRepository) UpdateStatus(ctx context.Context, ids []string, status models.SubmissionStatus) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	const query = `UPDATE memes
	SET status = $1,
	    approved_at = CASE WHEN $1 = 'APPROVED' THEN COALESCE(approved_at, NOW()) ELSE approved_at END
	WHERE id = ANY($2)`
	res, err := r.db.ExecContext(ctx, query, status, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("update meme status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update meme status rows: %w", err)
	}
	return affected, nil
}

// Like records one like per anonymous visitor. The counter only moves when
// the like row is new, so repeated or concurrent likes count once.
func (r *MemeRepository) Like(ctx context.Context, memeID, anonID string) (result *models.MemeLikeResult, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin meme like: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO meme_likes (meme_id, anon_id, created_at) VALUES ($1, $2, NOW()) ON CONFLICT (meme_id, anon_id) DO NOTHING`,
		memeID, anonID)
	if err != nil {
		return nil, fmt.Errorf("insert meme like: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("insert meme like rows: %w", err)
	}

	result = &models.MemeLikeResult{MemeID: memeID, AlreadyLiked: inserted == 0}
	if inserted > 0 {
		err = tx.GetContext(ctx, &result.LikeCount,
			`UPDATE memes SET like_count = like_count + 1 WHERE id = $1 RETURNING like_count`, memeID)
	} else {
		err = tx.GetContext(ctx, &result.LikeCount, `SELECT like_count FROM memes WHERE id = $1`, memeID)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("update meme like count: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit meme like: %w", err)
	}
	return result, nil
}
