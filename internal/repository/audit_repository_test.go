package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/content-vault-api/internal/models"
)

func TestAuditRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAuditRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &models.AuditLog{Action: models.AuditActionApprove, Resource: "CONTENT", NewValues: []byte(`{"ids":["a"]}`)}
	require.NoError(t, repo.Create(context.Background(), entry))
	require.NotEmpty(t, entry.ID)
	require.False(t, entry.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepositoryCreateWrapsError(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WillReturnError(errors.New("disk full"))

	err := NewAuditRepository(db).Create(context.Background(), &models.AuditLog{Action: models.AuditActionExport, Resource: "BATCH"})
	require.ErrorContains(t, err, "create audit log")
}
