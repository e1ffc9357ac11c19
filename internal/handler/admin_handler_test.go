package handler

import (
	"bytes"
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/content-vault-api/internal/middleware"
	"github.com/noah-isme/content-vault-api/internal/models"
	"github.com/noah-isme/content-vault-api/internal/service"
)

type moderationServiceStub struct {
	actor  service.Actor
	target models.ModerationTarget
	ids    []string
	status models.SubmissionStatus
}

func (s *moderationServiceStub) SetStatus(ctx context.Context, actor service.Actor, target models.ModerationTarget, ids []string, status models.SubmissionStatus) (*models.ModerationResult, error) {
	s.actor, s.target, s.ids, s.status = actor, target, ids, status
	return &models.ModerationResult{Target: target, Status: status, Requested: len(ids), Updated: int64(len(ids))}, nil
}

func (s *moderationServiceStub) Queue(ctx context.Context, status models.SubmissionStatus, page, pageSize int) ([]models.BatchSummary, *models.Pagination, error) {
	s.status = status
	return []models.BatchSummary{}, &models.Pagination{Page: page, PageSize: pageSize}, nil
}

func (s *moderationServiceStub) ReviewLink(ctx context.Context, actor service.Actor, batchID string) (*service.ReviewLink, error) {
	return &service.ReviewLink{BatchID: batchID, Signature: "123.abc", ExpiresAt: time.Unix(123, 0)}, nil
}

func (s *moderationServiceStub) Export(ctx context.Context, actor service.Actor, status models.SubmissionStatus, format string) (*service.ExportFile, error) {
	return &service.ExportFile{Filename: "moderation-queue.csv", ContentType: "text/csv; charset=utf-8", Data: []byte("Batch\n")}, nil
}

type ledgerStub struct{}

func (ledgerStub) VerifyLedger(ctx context.Context, pageSize int) ([]service.MissingBlob, int, error) {
	return nil, 4, nil
}

func TestAdminHandlerSetStatus(t *testing.T) {
	stub := &moderationServiceStub{}
	h := NewAdminHandler(stub, ledgerStub{}, "/api/v1")

	c, w := newGinContext(http.MethodPost, "/admin/content/status", bytes.NewBufferString(`{"ids":["a","b"],"status":"approved"}`), "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "staff-1", Role: models.RoleModerator})
	h.SetStatus(models.TargetContent)(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.TargetContent, stub.target)
	assert.Equal(t, models.StatusApproved, stub.status)
	assert.Equal(t, []string{"a", "b"}, stub.ids)
	assert.Equal(t, "staff-1", stub.actor.UserID)
}

func TestAdminHandlerReviewLinkURL(t *testing.T) {
	h := NewAdminHandler(&moderationServiceStub{}, ledgerStub{}, "/api/v1/")

	c, w := newGinContext(http.MethodGet, "/admin/batches/b1/review-link", nil, "")
	c.Params = gin.Params{{Key: "id", Value: "b1"}}
	h.ReviewLink(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"url":"/api/v1/review/batches/b1/archive?sig=123.abc"`)
}

func TestAdminHandlerExportAndVerify(t *testing.T) {
	h := NewAdminHandler(&moderationServiceStub{}, ledgerStub{}, "/api/v1")

	c, w := newGinContext(http.MethodGet, "/admin/batches/export?format=csv", nil, "")
	h.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Batch\n", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "moderation-queue.csv")

	c, w = newGinContext(http.MethodGet, "/admin/blobs/verify", nil, "")
	h.VerifyBlobs(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"checked":4`)
	assert.Contains(t, w.Body.String(), `"missing":[]`)
}
