package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/content-vault-api/internal/middleware"
	"github.com/noah-isme/content-vault-api/internal/models"
	"github.com/noah-isme/content-vault-api/internal/service"
	"github.com/noah-isme/content-vault-api/pkg/archive"
	appErrors "github.com/noah-isme/content-vault-api/pkg/errors"
	"github.com/noah-isme/content-vault-api/pkg/response"
	"github.com/noah-isme/content-vault-api/pkg/upload"
)

type batchService interface {
	CreateBatch(ctx context.Context, req models.CreateBatchRequest, sessionID string) (*models.CreateBatchResponse, error)
	AddFiles(ctx context.Context, batchID string, creds service.Credentials, inputs []upload.FileInput) ([]models.FileView, error)
	ListFiles(ctx context.Context, batchID string, creds service.Credentials) ([]models.FileView, error)
	DownloadFile(ctx context.Context, batchID, fileID string, creds service.Credentials, sink service.DownloadSink) error
	DeleteFile(ctx context.Context, batchID, fileID string, creds service.Credentials) error
	StreamArchive(ctx context.Context, batchID string, creds service.Credentials, sink service.DownloadSink) (archive.Result, error)
	ReviewArchive(ctx context.Context, batchID, signature string, sink service.DownloadSink) (archive.Result, error)
}

// BatchHandler exposes submission batch endpoints.
type BatchHandler struct {
	batches batchService
	maxBody int64
	logger  *zap.Logger
}

// NewBatchHandler constructs the handler. maxBody caps one upload request.
func NewBatchHandler(batches batchService, maxBody int64, logger *zap.Logger) *BatchHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchHandler{batches: batches, maxBody: maxBody, logger: logger}
}

// Create godoc
// @Summary Open a submission batch
// @Description The access token is returned once and bound to the caller's session.
// @Tags Batches
// @Accept json
// @Produce json
// @Param payload body models.CreateBatchRequest false "Batch metadata"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /batches [post]
func (h *BatchHandler) Create(c *gin.Context) {
	var req models.CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	created, err := h.batches.CreateBatch(c.Request.Context(), req, middleware.SessionID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, created, nil, middleware.ExtractMeta(c))
}

// AddFiles godoc
// @Summary Upload files into a batch
// @Description All files are accepted or none; rejections are listed in error.details.
// @Tags Batches
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Batch ID"
// @Param X-Batch-Token header string true "Batch access token"
// @Param files formData file true "Files"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope "batch approved; only after a full token match"
// @Router /batches/{id}/files [post]
func (h *BatchHandler) AddFiles(c *gin.Context) {
	form, inputs, err := parseUploadForm(c, h.maxBody, "files", "files[]")
	if err != nil {
		response.Error(c, err)
		return
	}
	defer form.Close()

	views, err := h.batches.AddFiles(c.Request.Context(), c.Param("id"), batchCredentials(c), inputs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, views, nil, middleware.ExtractMeta(c))
}

// ListFiles godoc
// @Summary List batch files
// @Tags Batches
// @Produce json
// @Param id path string true "Batch ID"
// @Param X-Batch-Token header string false "Batch access token"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /batches/{id}/files [get]
func (h *BatchHandler) ListFiles(c *gin.Context) {
	views, err := h.batches.ListFiles(c.Request.Context(), c.Param("id"), batchCredentials(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, nil, middleware.ExtractMeta(c))
}

// DownloadFile godoc
// @Summary Download one batch file
// @Tags Batches
// @Produce octet-stream
// @Param id path string true "Batch ID"
// @Param fileId path string true "File ID"
// @Param X-Batch-Token header string false "Batch access token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /batches/{id}/files/{fileId} [get]
func (h *BatchHandler) DownloadFile(c *gin.Context) {
	sink := newAttachmentWriter(c)
	err := h.batches.DownloadFile(c.Request.Context(), c.Param("id"), c.Param("fileId"), batchCredentials(c), sink)
	sink.finish(err, h.logger)
}

// DeleteFile godoc
// @Summary Remove a file from a batch
// @Tags Batches
// @Param id path string true "Batch ID"
// @Param fileId path string true "File ID"
// @Param X-Batch-Token header string true "Batch access token"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope "batch approved; only after a full token match"
// @Router /batches/{id}/files/{fileId} [delete]
func (h *BatchHandler) DeleteFile(c *gin.Context) {
	if err := h.batches.DeleteFile(c.Request.Context(), c.Param("id"), c.Param("fileId"), batchCredentials(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Archive godoc
// @Summary Download a batch as ZIP
// @Tags Batches
// @Produce application/zip
// @Param id path string true "Batch ID"
// @Param X-Batch-Token header string false "Batch access token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /batches/{id}/archive [get]
func (h *BatchHandler) Archive(c *gin.Context) {
	sink := newAttachmentWriter(c)
	_, err := h.batches.StreamArchive(c.Request.Context(), c.Param("id"), batchCredentials(c), sink)
	sink.finish(err, h.logger)
}

// ReviewArchive godoc
// @Summary Staff review download of a batch
// @Description Authorised by a signed link from /admin/batches/{id}/review-link.
// @Tags Review
// @Produce application/zip
// @Param id path string true "Batch ID"
// @Param sig query string true "Link signature"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /review/batches/{id}/archive [get]
func (h *BatchHandler) ReviewArchive(c *gin.Context) {
	sink := newAttachmentWriter(c)
	_, err := h.batches.ReviewArchive(c.Request.Context(), c.Param("id"), c.Query("sig"), sink)
	sink.finish(err, h.logger)
}
