package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/content-vault-api/internal/middleware"
	"github.com/noah-isme/content-vault-api/internal/models"
	"github.com/noah-isme/content-vault-api/internal/service"
	"github.com/noah-isme/content-vault-api/pkg/upload"
)

type memeServiceStub struct {
	visitor string
	sortBy  string
	title   string
}

func (s *memeServiceStub) Submit(ctx context.Context, req models.SubmitMemeRequest, file upload.FileInput) (*models.Meme, error) {
	s.title = req.Title
	return &models.Meme{ID: "m1", Title: req.Title}, nil
}

func (s *memeServiceStub) ListApproved(ctx context.Context, sortBy string, page, pageSize int) (*models.MemePage, error) {
	s.sortBy = sortBy
	return &models.MemePage{Items: []models.Meme{}, Pagination: models.Pagination{Page: page, PageSize: pageSize}}, nil
}

func (s *memeServiceStub) Image(ctx context.Context, id string, sink service.DownloadSink) error {
	sink.Describe("cat.png", "image/png", 3)
	_, err := sink.Write([]byte("png"))
	return err
}

func (s *memeServiceStub) Like(ctx context.Context, id, anonID string) (*models.MemeLikeResult, error) {
	s.visitor = anonID
	return &models.MemeLikeResult{MemeID: id, LikeCount: 1}, nil
}

func TestMemeHandlerLikeUsesVisitorHeader(t *testing.T) {
	stub := &memeServiceStub{}
	h := NewMemeHandler(stub, 0, nil)

	c, w := newGinContext(http.MethodPost, "/memes/m1/like", nil, "")
	c.Request.Header.Set(middleware.VisitorHeader, "visitor-7")
	h.Like(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "visitor-7", stub.visitor)
	assert.Contains(t, w.Body.String(), `"likeCount":1`)
}

func TestMemeHandlerSubmitAndList(t *testing.T) {
	stub := &memeServiceStub{}
	h := NewMemeHandler(stub, 10<<20, nil)

	body, contentType := multipartBody(t, map[string]string{"title": "cat"}, formFile{"image", "cat.png", "image/png", []byte("\x89PNG")})
	c, w := newGinContext(http.MethodPost, "/memes", body, contentType)
	h.Submit(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "cat", stub.title)

	c, w = newGinContext(http.MethodGet, "/memes?sort=likes", nil, "")
	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "likes", stub.sortBy)

	c, w = newGinContext(http.MethodGet, "/memes/m1/image", nil, "")
	h.Image(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
}
