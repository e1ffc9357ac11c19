package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/content-vault-api/internal/models"
)

func TestRankingRepositoryNextCategory(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRankingRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE NOT EXISTS")).
		WithArgs("hash-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "slug", "title", "description", "sort_order"}).
			AddRow("cat-2", "kindest", "Kindest", "", 2))

	category, err := repo.NextCategory(context.Background(), "hash-1")
	require.NoError(t, err)
	require.Equal(t, "cat-2", category.ID)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE NOT EXISTS")).
		WithArgs("hash-done").
		WillReturnError(sql.ErrNoRows)
	_, err = repo.NextCategory(context.Background(), "hash-done")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRankingRepositoryCastVote(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRankingRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (category_id, token_hash) DO NOTHING")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	recorded, err := repo.CastVote(context.Background(), &models.RankingVote{CategoryID: "cat-1", TeacherID: "t-1", TokenHash: "h"})
	require.NoError(t, err)
	require.True(t, recorded)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (category_id, token_hash) DO NOTHING")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	recorded, err = repo.CastVote(context.Background(), &models.RankingVote{CategoryID: "cat-1", TeacherID: "t-2", TokenHash: "h"})
	require.NoError(t, err)
	require.False(t, recorded)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRankingRepositoryTallies(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRankingRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY category_id, teacher_id")).
		WillReturnRows(sqlmock.NewRows([]string{"category_id", "teacher_id", "votes"}).
			AddRow("cat-1", "t-1", 4).
			AddRow("cat-1", "t-2", 2))

	tallies, err := repo.Tallies(context.Background())
	require.NoError(t, err)
	require.Len(t, tallies, 2)
	require.Equal(t, 4, tallies[0].Votes)
	require.NoError(t, mock.ExpectationsWereMet())
}
