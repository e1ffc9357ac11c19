package handler

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/content-vault-api/internal/middleware"
	"github.com/noah-isme/content-vault-api/internal/models"
	"github.com/noah-isme/content-vault-api/internal/service"
	appErrors "github.com/noah-isme/content-vault-api/pkg/errors"
	"github.com/noah-isme/content-vault-api/pkg/response"
)

type moderationService interface {
	SetStatus(ctx context.Context, actor service.Actor, target models.ModerationTarget, ids []string, status models.SubmissionStatus) (*models.ModerationResult, error)
	Queue(ctx context.Context, status models.SubmissionStatus, page, pageSize int) ([]models.BatchSummary, *models.Pagination, error)
	ReviewLink(ctx context.Context, actor service.Actor, batchID string) (*service.ReviewLink, error)
	Export(ctx context.Context, actor service.Actor, status models.SubmissionStatus, format string) (*service.ExportFile, error)
}

type ledgerVerifier interface {
	VerifyLedger(ctx context.Context, pageSize int) ([]service.MissingBlob, int, error)
}

type statusRequest struct {
	IDs    []string                `json:"ids" binding:"required"`
	Status models.SubmissionStatus `json:"status" binding:"required"`
}

type reviewLinkResponse struct {
	*service.ReviewLink
	URL string `json:"url"`
}

// AdminHandler exposes staff moderation endpoints.
type AdminHandler struct {
	moderation moderationService
	ledger     ledgerVerifier
	apiPrefix  string
}

// NewAdminHandler constructs the handler. apiPrefix is used to build review
// links.
func NewAdminHandler(moderation moderationService, ledger ledgerVerifier, apiPrefix string) *AdminHandler {
	return &AdminHandler{moderation: moderation, ledger: ledger, apiPrefix: strings.TrimRight(apiPrefix, "/")}
}

// Queue godoc
// @Summary Moderation queue
// @Tags Admin
// @Security BearerAuth
// @Produce json
// @Param status query string false "PENDING, APPROVED or REJECTED"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /admin/batches [get]
func (h *AdminHandler) Queue(c *gin.Context) {
	status := models.SubmissionStatus(strings.ToUpper(c.Query("status")))
	summaries, pagination, err := h.moderation.Queue(c.Request.Context(), status, queryInt(c, "page", 1), queryInt(c, "pageSize", 20))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summaries, pagination, middleware.ExtractMeta(c))
}

// SetStatus returns the bulk approve/reject handler for target.
//
// @Summary Bulk approve or reject
// @Tags Admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body statusRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/batches/status [post]
// @Router /admin/content/status [post]
// @Router /admin/memes/status [post]
func (h *AdminHandler) SetStatus(target models.ModerationTarget) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "ids and status required"))
			return
		}
		status := models.SubmissionStatus(strings.ToUpper(string(req.Status)))
		result, err := h.moderation.SetStatus(c.Request.Context(), actorFromContext(c), target, req.IDs, status)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, result, nil, middleware.ExtractMeta(c))
	}
}

// ReviewLink godoc
// @Summary Signed review link for a batch
// @Tags Admin
// @Security BearerAuth
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/batches/{id}/review-link [get]
func (h *AdminHandler) ReviewLink(c *gin.Context) {
	link, err := h.moderation.ReviewLink(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	reviewURL := h.apiPrefix + "/review/batches/" + url.PathEscape(link.BatchID) + "/archive?sig=" + url.QueryEscape(link.Signature)
	response.JSON(c, http.StatusOK, reviewLinkResponse{ReviewLink: link, URL: reviewURL}, nil, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Export the moderation queue
// @Tags Admin
// @Security BearerAuth
// @Produce text/csv,application/pdf
// @Param format query string false "csv or pdf"
// @Param status query string false "Status filter"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /admin/batches/export [get]
func (h *AdminHandler) Export(c *gin.Context) {
	status := models.SubmissionStatus(strings.ToUpper(c.Query("status")))
	file, err := h.moderation.Export(c.Request.Context(), actorFromContext(c), status, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.AttachmentHeaders(c, file.Filename, file.ContentType)
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// VerifyBlobs godoc
// @Summary Report ledger rows whose stored bytes are missing
// @Tags Admin
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/blobs/verify [get]
func (h *AdminHandler) VerifyBlobs(c *gin.Context) {
	missing, checked, err := h.ledger.VerifyLedger(c.Request.Context(), 0)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify blobs"))
		return
	}
	if missing == nil {
		missing = []service.MissingBlob{}
	}
	response.JSON(c, http.StatusOK, gin.H{"checked": checked, "missing": missing}, nil, middleware.ExtractMeta(c))
}
