package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/content-vault-api/internal/models"
)

const categoryColumns = `id, slug, title, description, sort_order`

// RankingRepository reads ranking categories and candidates and records votes.
type RankingRepository struct {
	db *sqlx.DB
}

// NewRankingRepository constructs the repository.
func NewRankingRepository(db *sqlx.DB) *RankingRepository {
	return &RankingRepository{db: db}
}

// ListCategories returns all categories in survey order.
func (r *RankingRepository) ListCategories(ctx context.Context) ([]models.RankingCategory, error) {
	query := `SELECT ` + categoryColumns + ` FROM ranking_categories ORDER BY sort_order, title`
	var categories []models.RankingCategory
	if err := r.db.SelectContext(ctx, &categories, query); err != nil {
		return nil, fmt.Errorf("list ranking categories: %w", err)
	}
	return categories, nil
}

// GetCategory returns one category or sql.ErrNoRows.
func (r *RankingRepository) GetCategory(ctx context.Context, id string) (*models.RankingCategory, error) {
	query := `SELECT ` + categoryColumns + ` FROM ranking_categories WHERE id = $1`
	var category models.RankingCategory
	if err := r.db.GetContext(ctx, &category, query, id); err != nil {
		return nil, err
	}
	return &category, nil
}

// ListTeachers returns every candidate, active or not.
func (r *RankingRepository) ListTeachers(ctx context.Context) ([]models.Teacher, error) {
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, `SELECT id, name, active FROM teachers ORDER BY name, id`); err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	return teachers, nil
}

// ListActiveTeachers returns the candidates shown on the ballot.
func (r *RankingRepository) ListActiveTeachers(ctx context.Context) ([]models.Teacher, error) {
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, `SELECT id, name, active FROM teachers WHERE active = TRUE ORDER BY name, id`); err != nil {
		return nil, fmt.Errorf("list active teachers: %w", err)
	}
	return teachers, nil
}

// GetActiveTeacher returns an active candidate or sql.ErrNoRows.
func (r *RankingRepository) GetActiveTeacher(ctx context.Context, id string) (*models.Teacher, error) {
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, `SELECT id, name, active FROM teachers WHERE id = $1 AND active = TRUE`, id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// NextCategory returns the first category the voter has not answered, or
// sql.ErrNoRows when every category has a vote.
func (r *RankingRepository) NextCategory(ctx context.Context, tokenHash string) (*models.RankingCategory, error) {
	const query = `SELECT c.id, c.slug, c.title, c.description, c.sort_order
	FROM ranking_categories c
	WHERE NOT EXISTS (
		SELECT 1 FROM ranking_votes v WHERE v.category_id = c.id AND v.token_hash = $1
	)
	ORDER BY c.sort_order, c.title
	LIMIT 1`
	var category models.RankingCategory
	if err := r.db.GetContext(ctx, &category, query, tokenHash); err != nil {
		return nil, err
	}
	return &category, nil
}

// CastVote stores a vote unless the voter already answered the category.
// It reports whether a new row was written.
func (r *RankingRepository) CastVote(ctx context.Context, vote *models.RankingVote) (bool, error) {
	if vote.ID == "" {
		vote.ID = uuid.NewString()
	}
	if vote.CreatedAt.IsZero() {
		vote.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO ranking_votes (id, category_id, teacher_id, token_hash, created_at)
	VALUES (:id, :category_id, :teacher_id, :token_hash, :created_at)
	ON CONFLICT (category_id, token_hash) DO NOTHING`
	res, err := r.db.NamedExecContext(ctx, query, vote)
	if err != nil {
		return false, fmt.Errorf("cast ranking vote: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("cast ranking vote rows: %w", err)
	}
	return affected > 0, nil
}

// Tallies returns vote counts grouped by category and teacher.
func (r *RankingRepository) Tallies(ctx context.Context) ([]models.RankingTally, error) {
	const query = `SELECT category_id, teacher_id, COUNT(*) AS votes
	FROM ranking_votes
	GROUP BY category_id, teacher_id`
	var tallies []models.RankingTally
	if err := r.db.SelectContext(ctx, &tallies, query); err != nil {
		return nil, fmt.Errorf("tally ranking votes: %w", err)
	}
	return tallies, nil
}
