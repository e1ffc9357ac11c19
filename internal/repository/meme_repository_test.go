package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestMemeRepositoryLikeCountsOnce(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewMemeRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO meme_likes")).
		WithArgs("m-1", "anon-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE memes SET like_count = like_count + 1 WHERE id = $1 RETURNING like_count")).
		WithArgs("m-1").
		WillReturnRows(sqlmock.NewRows([]string{"like_count"}).AddRow(1))
	mock.ExpectCommit()

	result, err := repo.Like(context.Background(), "m-1", "anon-1")
	require.NoError(t, err)
	require.False(t, result.AlreadyLiked)
	require.Equal(t, int64(1), result.LikeCount)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO meme_likes")).
		WithArgs("m-1", "anon-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT like_count FROM memes WHERE id = $1")).
		WithArgs("m-1").
		WillReturnRows(sqlmock.NewRows([]string{"like_count"}).AddRow(1))
	mock.ExpectCommit()

	result, err = repo.Like(context.Background(), "m-1", "anon-1")
	require.NoError(t, err)
	require.True(t, result.AlreadyLiked)
	require.Equal(t, int64(1), result.LikeCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMemeRepositoryLikeMissingMeme(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewMemeRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO meme_likes")).
		WithArgs("m-404", "anon-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT like_count FROM memes")).
		WithArgs("m-404").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.Like(context.Background(), "m-404", "anon-1")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
