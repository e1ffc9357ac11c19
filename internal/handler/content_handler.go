package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

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

type contentService interface {
	Submit(ctx context.Context, req models.SubmitContentRequest, file upload.FileInput) (*models.ContentItem, error)
	ListApproved(ctx context.Context, filter models.ContentFilter) (*models.ContentPage, error)
	Facets(ctx context.Context) (*models.ContentFacets, error)
	Download(ctx context.Context, id string, sink service.DownloadSink) error
	Bundle(ctx context.Context, ids []string, sink service.DownloadSink) (archive.Result, error)
}

// ContentHandler exposes single-file content endpoints.
type ContentHandler struct {
	content contentService
	maxBody int64
	logger  *zap.Logger
}

// NewContentHandler constructs the handler.
func NewContentHandler(content contentService, maxBody int64, logger *zap.Logger) *ContentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContentHandler{content: content, maxBody: maxBody, logger: logger}
}

// Submit godoc
// @Summary Submit an exam or study material
// @Tags Content
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "Title"
// @Param contentType formData string true "EXAM or MATERIAL"
// @Param year formData int false "Year"
// @Param subject formData string false "Subject"
// @Param teacher formData string false "Teacher"
// @Param program formData string false "Program"
// @Param file formData file true "File"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /content [post]
func (h *ContentHandler) Submit(c *gin.Context) {
	form, inputs, err := parseUploadForm(c, h.maxBody, "file")
	if err != nil {
		response.Error(c, err)
		return
	}
	defer form.Close()
	if len(inputs) != 1 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "exactly one file required"))
		return
	}

	req := models.SubmitContentRequest{
		Title:   form.value("title"),
		Kind:    models.ContentKind(strings.ToUpper(strings.TrimSpace(form.value("contentType")))),
		Subject: strings.TrimSpace(form.value("subject")),
		Teacher: strings.TrimSpace(form.value("teacher")),
		Program: strings.TrimSpace(form.value("program")),
	}
	if raw := strings.TrimSpace(form.value("year")); raw != "" {
		year, convErr := strconv.Atoi(raw)
		if convErr != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "year must be a number"))
			return
		}
		req.Year = &year
	}

	item, err := h.content.Submit(c.Request.Context(), req, inputs[0])
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, item, nil, middleware.ExtractMeta(c))
}

// List godoc
// @Summary List approved content
// @Tags Content
// @Produce json
// @Param year query int false "Year"
// @Param contentType query string false "EXAM or MATERIAL"
// @Param subject query string false "Subject"
// @Param teacher query string false "Teacher"
// @Param program query string false "Program"
// @Param sort query string false "newest or most_downloaded"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /content [get]
func (h *ContentHandler) List(c *gin.Context) {
	filter := models.ContentFilter{
		Kind:     models.ContentKind(strings.ToUpper(strings.TrimSpace(c.Query("contentType")))),
		Subject:  c.Query("subject"),
		Teacher:  c.Query("teacher"),
		Program:  c.Query("program"),
		Sort:     c.Query("sort"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "pageSize", 20),
	}
	if raw := strings.TrimSpace(c.Query("year")); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "year must be a number"))
			return
		}
		filter.Year = &year
	}

	page, err := h.content.ListApproved(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, page.Items, &page.Pagination, middleware.ExtractMeta(c))
}

// Facets godoc
// @Summary Distinct filter values among approved content
// @Tags Content
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /content/facets [get]
func (h *ContentHandler) Facets(c *gin.Context) {
	facets, err := h.content.Facets(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, facets, nil, middleware.ExtractMeta(c))
}

// Download godoc
// @Summary Download an approved content item
// @Tags Content
// @Produce octet-stream
// @Param id path string true "Content ID"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /content/{id}/download [get]
func (h *ContentHandler) Download(c *gin.Context) {
	sink := newAttachmentWriter(c)
	sink.finish(h.content.Download(c.Request.Context(), c.Param("id"), sink), h.logger)
}

// Bundle godoc
// @Summary Download several approved items as one ZIP
// @Tags Content
// @Produce application/zip
// @Param ids query []string true "Content IDs, repeated or comma separated" collectionFormat(multi)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /content/bundle [get]
func (h *ContentHandler) Bundle(c *gin.Context) {
	sink := newAttachmentWriter(c)
	_, err := h.content.Bundle(c.Request.Context(), c.QueryArray("ids"), sink)
	sink.finish(err, h.logger)
}
