package service

import (
	"archive/zip"
	"bytes"
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/content-vault-api/internal/models"
	"github.com/noah-isme/content-vault-api/pkg/archive"
	appErrors "github.com/noah-isme/content-vault-api/pkg/errors"
	"github.com/noah-isme/content-vault-api/pkg/storage"
	"github.com/noah-isme/content-vault-api/pkg/upload"
)

type fakeContentRepo struct {
	mu        sync.Mutex
	items     map[string]*models.ContentItem
	listCalls int
}

func newFakeContentRepo() *fakeContentRepo {
	return &fakeContentRepo{items: map[string]*models.ContentItem{}}
}

func (r *fakeContentRepo) Create(ctx context.Context, item *models.ContentItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item.CreatedAt = time.Now().UTC()
	copied := *item
	r.items[item.ID] = &copied
	return nil
}

func (r *fakeContentRepo) GetByID(ctx context.Context, id string) (*models.ContentItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *item
	return &copied, nil
}

func (r *fakeContentRepo) ListApproved(ctx context.Context, filter models.ContentFilter) ([]models.ContentItem, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	var out []models.ContentItem
	for _, item := range r.items {
		if item.Status == models.StatusApproved {
			out = append(out, *item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (r *fakeContentRepo) Facets(ctx context.Context) (*models.ContentFacets, error) {
	return &models.ContentFacets{Years: []int{2024}, Subjects: []string{"Physics"}, Teachers: []string{}, Programs: []string{}}, nil
}

func (r *fakeContentRepo) IncrementDownloadCount(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	item.DownloadCount++
	return nil
}

func (r *fakeContentRepo) GetApprovedByIDs(ctx context.Context, ids []string) ([]models.ContentItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ContentItem
	for _, id := range ids {
		if item, ok := r.items[id]; ok && item.Status == models.StatusApproved {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (r *fakeContentRepo) UpdateStatus(ctx context.Context, ids []string, status models.SubmissionStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, id := range ids {
		if item, ok := r.items[id]; ok {
			item.Status = status
			n++
		}
	}
	return n, nil
}

func (r *fakeContentRepo) seed(t *testing.T, store *storage.MemoryStorage, name string, status models.SubmissionStatus, body []byte) *models.ContentItem {
	t.Helper()
	id := uuid.NewString()
	item := &models.ContentItem{
		ID:           id,
		Title:        name,
		Kind:         models.ContentExam,
		OriginalName: name,
		MimeType:     "application/pdf",
		SizeBytes:    int64(len(body)),
		StorageKey:   "content/" + id,
		Status:       status,
	}
	require.NoError(t, store.Put(context.Background(), item.StorageKey, bytes.NewReader(body), int64(len(body)), item.MimeType))
	require.NoError(t, r.Create(context.Background(), item))
	return item
}

type contentFixture struct {
	svc   *ContentService
	repo  *fakeContentRepo
	store *storage.MemoryStorage
	cache *fakeCacheRepo
}

func newContentFixture() *contentFixture {
	repo := newFakeContentRepo()
	store := storage.NewMemoryStorage()
	cacheRepo := newFakeCacheRepo()
	cache := NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	svc := NewContentService(repo, store,
		upload.NewValidator(upload.ContentPolicy(testUploadsConfig()), nil),
		archive.NewStreamer(store, 0, nil),
		cache, time.Minute, nil, nil, nil)
	return &contentFixture{svc: svc, repo: repo, store: store, cache: cacheRepo}
}

func TestContentServiceSubmit(t *testing.T) {
	f := newContentFixture()
	req := models.SubmitContentRequest{Title: " Midterm ", Kind: models.ContentExam}

	item, err := f.svc.Submit(context.Background(), req, pdfInput("midterm.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "Midterm", item.Title)
	assert.Equal(t, models.StatusPending, item.Status)
	assert.Equal(t, "content/"+item.ID, item.StorageKey)
	assert.Equal(t, 1, f.store.Len())

	spoofed := upload.FileInput{Name: "run.exe", ContentType: "application/pdf", Content: bytes.NewReader(pdfBody)}
	_, err = f.svc.Submit(context.Background(), req, spoofed)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrUploadRejected)
	assert.Equal(t, 1, f.store.Len())

	_, err = f.svc.Submit(context.Background(), models.SubmitContentRequest{Title: "x", Kind: "POSTER"}, pdfInput("a.pdf"))
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestContentServiceListUsesCacheUntilInvalidated(t *testing.T) {
	f := newContentFixture()
	f.repo.seed(t, f.store, "a.pdf", models.StatusApproved, pdfBody)
	ctx := context.Background()

	first, err := f.svc.ListApproved(ctx, models.ContentFilter{})
	require.NoError(t, err)
	require.Len(t, first.Items, 1)
	assert.Equal(t, 20, first.Pagination.PageSize)

	_, err = f.svc.ListApproved(ctx, models.ContentFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, f.repo.listCalls)

	require.NoError(t, f.svc.cache.InvalidateScope(ctx, CacheScopeContent))
	_, err = f.svc.ListApproved(ctx, models.ContentFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, f.repo.listCalls)
}

func TestContentServiceDownloadApprovedOnly(t *testing.T) {
	f := newContentFixture()
	approved := f.repo.seed(t, f.store, "notes.pdf", models.StatusApproved, pdfBody)
	pending := f.repo.seed(t, f.store, "draft.pdf", models.StatusPending, pdfBody)
	ctx := context.Background()

	sink := &bufferSink{}
	require.NoError(t, f.svc.Download(ctx, approved.ID, sink))
	assert.Equal(t, pdfBody, sink.Bytes())
	assert.Equal(t, "notes.pdf", sink.filename)
	stored, _ := f.repo.GetByID(ctx, approved.ID)
	assert.EqualValues(t, 1, stored.DownloadCount)

	empty := &bufferSink{}
	err := f.svc.Download(ctx, pending.ID, empty)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.False(t, empty.described)

	err = f.svc.Download(ctx, "not-a-uuid", empty)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.False(t, empty.described)
}

func TestContentServiceBundleKeepsRequestOrder(t *testing.T) {
	f := newContentFixture()
	first := f.repo.seed(t, f.store, "zeta.pdf", models.StatusApproved, pdfBody)
	second := f.repo.seed(t, f.store, "alpha.pdf", models.StatusApproved, pdfBody)
	hidden := f.repo.seed(t, f.store, "hidden.pdf", models.StatusRejected, pdfBody)
	ctx := context.Background()

	sink := &bufferSink{}
	result, err := f.svc.Bundle(ctx, []string{first.ID + "," + second.ID, hidden.ID, first.ID}, sink)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Added)
	assert.Equal(t, "content-bundle.zip", sink.filename)

	zr, err := zip.NewReader(bytes.NewReader(sink.Bytes()), int64(sink.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	assert.Equal(t, "001_zeta.pdf", zr.File[0].Name)
	assert.Equal(t, "002_alpha.pdf", zr.File[1].Name)

	stored, _ := f.repo.GetByID(ctx, second.ID)
	assert.EqualValues(t, 1, stored.DownloadCount)
}

func TestContentServiceBundleValidation(t *testing.T) {
	f := newContentFixture()
	ctx := context.Background()

	_, err := f.svc.Bundle(ctx, nil, &bufferSink{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = f.svc.Bundle(ctx, []string{"not-a-uuid"}, &bufferSink{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	ids := make([]string, MaxBundleItems+1)
	for i := range ids {
		ids[i] = uuid.NewString()
	}
	_, err = f.svc.Bundle(ctx, ids, &bufferSink{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = f.svc.Bundle(ctx, []string{uuid.NewString()}, &bufferSink{})
	assert.ErrorIs(t, err, appErrors.ErrNoFilesAvailable)
}
