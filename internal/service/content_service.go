package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/content-vault-api/internal/models"
	"github.com/noah-isme/content-vault-api/pkg/archive"
	appErrors "github.com/noah-isme/content-vault-api/pkg/errors"
	"github.com/noah-isme/content-vault-api/pkg/upload"
)

// MaxBundleItems caps how many items one bundle request may name.
const MaxBundleItems = 50

type contentRepository interface {
	Create(ctx context.Context, item *models.ContentItem) error
	GetByID(ctx context.Context, id string) (*models.ContentItem, error)
	ListApproved(ctx context.Context, filter models.ContentFilter) ([]models.ContentItem, int, error)
	Facets(ctx context.Context) (*models.ContentFacets, error)
	IncrementDownloadCount(ctx context.Context, id string) error
	GetApprovedByIDs(ctx context.Context, ids []string) ([]models.ContentItem, error)
}

// ContentService handles single-file content submissions and their public
// listing and download.
type ContentService struct {
	repo      contentRepository
	store     blobStore
	validator *upload.Validator
	streamer  archiveStreamer
	cache     *CacheService
	cacheTTL  time.Duration
	validate  *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewContentService constructs the service.
func NewContentService(repo contentRepository, store blobStore, uploadValidator *upload.Validator, streamer archiveStreamer, cache *CacheService, cacheTTL time.Duration, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *ContentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ContentService{
		repo:      repo,
		store:     store,
		validator: uploadValidator,
		streamer:  streamer,
		cache:     cache,
		cacheTTL:  cacheTTL,
		validate:  validate,
		metrics:   metrics,
		logger:    logger,
	}
}

// Submit validates and stores one content item as pending.
func (s *ContentService) Submit(ctx context.Context, req models.SubmitContentRequest, file upload.FileInput) (*models.ContentItem, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid content payload")
	}
	accepted, rejection := s.validator.Validate(file)
	if rejection != nil {
		s.metrics.RecordUploadRejected(models.TargetContent, string(rejection.Reason))
		return nil, appErrors.WithDetails(appErrors.ErrUploadRejected, []*upload.Rejection{rejection})
	}

	item := &models.ContentItem{
		ID:           uuid.NewString(),
		Title:        strings.TrimSpace(req.Title),
		Kind:         req.Kind,
		Year:         req.Year,
		Subject:      req.Subject,
		Teacher:      req.Teacher,
		Program:      req.Program,
		OriginalName: file.Name,
		MimeType:     accepted.ContentType,
		SizeBytes:    accepted.Size,
		Status:       models.StatusPending,
	}
	item.StorageKey = "content/" + item.ID
	if err := putUpload(ctx, s.store, item.StorageKey, file.Content, accepted.Size, accepted.ContentType); err != nil {
		s.logger.Error("store content failed", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}
	if err := s.repo.Create(ctx, item); err != nil {
		if delErr := s.store.Delete(context.Background(), item.StorageKey); delErr != nil {
			s.logger.Warn("discard content blob failed", zap.String("key", item.StorageKey), zap.Error(delErr))
		}
		s.logger.Error("create content item failed", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record content item")
	}
	s.metrics.RecordUploadAccepted(models.TargetContent, accepted.Size)
	return item, nil
}

// ListApproved returns approved items matching filter, served from cache when
// possible.
func (s *ContentService) ListApproved(ctx context.Context, filter models.ContentFilter) (*models.ContentPage, error) {
	filter = normalizeContentFilter(filter)
	if filter.Kind != "" && filter.Kind != models.ContentExam && filter.Kind != models.ContentMaterial {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown content type")
	}

	key := CacheKey(CacheScopeContent, "list", contentFilterKey(filter)...)
	return cachedLoad(ctx, s.cache, key, s.cacheTTL, func(ctx context.Context) (*models.ContentPage, error) {
		items, total, err := s.repo.ListApproved(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list content")
		}
		if items == nil {
			items = []models.ContentItem{}
		}
		return &models.ContentPage{
			Items:      items,
			Pagination: models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total},
		}, nil
	})
}

// Facets returns distinct filter values among approved items.
func (s *ContentService) Facets(ctx context.Context) (*models.ContentFacets, error) {
	return cachedLoad(ctx, s.cache, CacheKey(CacheScopeContent, "facets"), s.cacheTTL, func(ctx context.Context) (*models.ContentFacets, error) {
		facets, err := s.repo.Facets(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load facets")
		}
		return facets, nil
	})
}

// Download streams one approved item and counts it.
func (s *ContentService) Download(ctx context.Context, id string, sink DownloadSink) error {
	if !isUUID(id) {
		return appErrors.Clone(appErrors.ErrNotFound, "content not found")
	}
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "content not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load content")
	}
	if item.Status != models.StatusApproved {
		return appErrors.Clone(appErrors.ErrNotFound, "content not found")
	}
	if err := copyBlob(ctx, s.store, item.StorageKey, sink, item.DisplayName(), item.MimeType, item.SizeBytes); err != nil {
		return err
	}
	s.metrics.RecordDownload(models.TargetContent)
	if err := s.repo.IncrementDownloadCount(ctx, item.ID); err != nil {
		s.logger.Error("increment content download count failed", zap.String("content_id", item.ID), zap.Error(err))
	}
	return nil
}

// Bundle streams the approved items among ids as one ZIP. Entry names carry
// a positional prefix so the archive keeps the requested order.
func (s *ContentService) Bundle(ctx context.Context, ids []string, sink DownloadSink) (archive.Result, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return archive.Result{}, appErrors.Clone(appErrors.ErrValidation, "ids required")
	}
	if len(ids) > MaxBundleItems {
		return archive.Result{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("at most %d items per bundle", MaxBundleItems))
	}
	for _, id := range ids {
		if !isUUID(id) {
			return archive.Result{}, appErrors.Clone(appErrors.ErrValidation, "invalid id")
		}
	}

	items, err := s.repo.GetApprovedByIDs(ctx, ids)
	if err != nil {
		return archive.Result{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load content")
	}
	entries := make([]archive.Entry, len(items))
	for i, item := range items {
		entries[i] = archive.Entry{
			Name:     fmt.Sprintf("%03d_%s", i+1, item.DisplayName()),
			Key:      item.StorageKey,
			Modified: item.CreatedAt,
		}
	}

	start := time.Now()
	result, err := streamArchive(ctx, s.streamer, sink, "content-bundle.zip", entries)
	if err != nil {
		return result, err
	}
	s.metrics.ObserveArchive(result.Bytes, len(result.Skipped), time.Since(start))

	skipped := make(map[string]struct{}, len(result.Skipped))
	for _, key := range result.Skipped {
		skipped[key] = struct{}{}
	}
	for _, item := range items {
		if _, ok := skipped[item.StorageKey]; ok {
			continue
		}
		s.metrics.RecordDownload(models.TargetContent)
		if err := s.repo.IncrementDownloadCount(ctx, item.ID); err != nil {
			s.logger.Error("increment content download count failed", zap.String("content_id", item.ID), zap.Error(err))
		}
	}
	return result, nil
}

func normalizeContentFilter(filter models.ContentFilter) models.ContentFilter {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	if filter.PageSize > 100 {
		filter.PageSize = 100
	}
	if filter.Sort != models.SortMostDownloaded {
		filter.Sort = models.SortNewest
	}
	filter.Subject = strings.TrimSpace(filter.Subject)
	filter.Teacher = strings.TrimSpace(filter.Teacher)
	filter.Program = strings.TrimSpace(filter.Program)
	return filter
}

func contentFilterKey(filter models.ContentFilter) []string {
	year := ""
	if filter.Year != nil {
		year = strconv.Itoa(*filter.Year)
	}
	return []string{
		year, string(filter.Kind), filter.Subject, filter.Teacher, filter.Program, filter.Sort,
		strconv.Itoa(filter.Page), strconv.Itoa(filter.PageSize),
	}
}

// isUUID reports whether id can address a row. Anything else is treated as a
// missing record before it reaches a UUID column.
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, raw := range ids {
		for _, id := range strings.Split(raw, ",") {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
