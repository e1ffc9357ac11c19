package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/content-vault-api/internal/middleware"
	"github.com/noah-isme/content-vault-api/internal/models"
	"github.com/noah-isme/content-vault-api/internal/service"
	appErrors "github.com/noah-isme/content-vault-api/pkg/errors"
	"github.com/noah-isme/content-vault-api/pkg/response"
	"github.com/noah-isme/content-vault-api/pkg/upload"
)

type memeService interface {
	Submit(ctx context.Context, req models.SubmitMemeRequest, file upload.FileInput) (*models.Meme, error)
	ListApproved(ctx context.Context, sortBy string, page, pageSize int) (*models.MemePage, error)
	Image(ctx context.Context, id string, sink service.DownloadSink) error
	Like(ctx context.Context, id, anonID string) (*models.MemeLikeResult, error)
}

// MemeHandler exposes the meme gallery.
type MemeHandler struct {
	memes   memeService
	maxBody int64
	logger  *zap.Logger
}

// NewMemeHandler constructs the handler.
func NewMemeHandler(memes memeService, maxBody int64, logger *zap.Logger) *MemeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemeHandler{memes: memes, maxBody: maxBody, logger: logger}
}

// Submit godoc
// @Summary Submit a meme
// @Tags Memes
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "Title"
// @Param image formData file true "Image"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /memes [post]
func (h *MemeHandler) Submit(c *gin.Context) {
	form, inputs, err := parseUploadForm(c, h.maxBody, "image", "file")
	if err != nil {
		response.Error(c, err)
		return
	}
	defer form.Close()
	if len(inputs) != 1 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "exactly one image required"))
		return
	}

	meme, err := h.memes.Submit(c.Request.Context(), models.SubmitMemeRequest{Title: form.value("title")}, inputs[0])
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, meme, nil, middleware.ExtractMeta(c))
}

// List godoc
// @Summary List approved memes
// @Tags Memes
// @Produce json
// @Param sort query string false "newest or likes"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /memes [get]
func (h *MemeHandler) List(c *gin.Context) {
	page, err := h.memes.ListApproved(c.Request.Context(), c.Query("sort"), queryInt(c, "page", 1), queryInt(c, "pageSize", 24))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, page.Items, &page.Pagination, middleware.ExtractMeta(c))
}

// Image godoc
// @Summary Serve an approved meme image
// @Tags Memes
// @Produce image/png,image/jpeg,image/webp
// @Param id path string true "Meme ID"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /memes/{id}/image [get]
func (h *MemeHandler) Image(c *gin.Context) {
	sink := newAttachmentWriter(c)
	sink.finish(h.memes.Image(c.Request.Context(), c.Param("id"), sink), h.logger)
}

// Like godoc
// @Summary Like a meme once per visitor
// @Tags Memes
// @Produce json
// @Param id path string true "Meme ID"
// @Param X-Visitor-Id header string false "Anonymous visitor id; the session cookie is used when absent"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /memes/{id}/like [post]
func (h *MemeHandler) Like(c *gin.Context) {
	result, err := h.memes.Like(c.Request.Context(), c.Param("id"), middleware.VisitorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil, middleware.ExtractMeta(c))
}
