package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/content-vault-api/internal/models"
	"github.com/noah-isme/content-vault-api/pkg/database"
	appErrors "github.com/noah-isme/content-vault-api/pkg/errors"
	"github.com/noah-isme/content-vault-api/pkg/upload"
)


type memeRepository interface {
	Create(ctx context.Context, meme *models.Meme) error
	GetByID(ctx context.Context, id string) (*models.Meme, error)
	ListApproved(ctx context.Context, byLikes bool, limit, offset int) ([]models.Meme, int, error)
	Like(ctx context.Context, memeID, anonID string) (*models.MemeLikeResult, error)
}

// MemeService handles meme submissions, the public gallery and likes.
type MemeService struct {
	repo      memeRepository
	store     blobStore
	validator *upload.Validator
	cache     *CacheService
	cacheTTL  time.Duration
	validate  *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewMemeService constructs the service.
func NewMemeService(repo memeRepository, store blobStore, uploadValidator *upload.Validator, cache *CacheService, cacheTTL time.Duration, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *MemeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &MemeService{repo: repo, store: store, validator: uploadValidator, cache: cache, cacheTTL: cacheTTL, validate: validate, metrics: metrics, logger: logger}
}

// Submit validates and stores a meme as pending.
func (s *MemeService) Submit(ctx context.Context, req models.SubmitMemeRequest, file upload.FileInput) (*models.Meme, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid meme payload")
	}
	accepted, rejection := s.validator.Validate(file)
	if rejection != nil {
		s.metrics.RecordUploadRejected(models.TargetMeme, string(rejection.Reason))
		return nil, appErrors.WithDetails(appErrors.ErrUploadRejected, []*upload.Rejection{rejection})
	}

	meme := &models.Meme{
		ID:           uuid.NewString(),
		Title:        strings.TrimSpace(req.Title),
		OriginalName: file.Name,
		MimeType:     accepted.ContentType,
		SizeBytes:    accepted.Size,
		Status:       models.StatusPending,
	}
	meme.StorageKey = "memes/" + meme.ID
	if err := putUpload(ctx, s.store, meme.StorageKey, file.Content, accepted.Size, accepted.ContentType); err != nil {
		s.logger.Error("store meme failed", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store image")
	}
	if err := s.repo.Create(ctx, meme); err != nil {
		if delErr := s.store.Delete(context.Background(), meme.StorageKey); delErr != nil {
			s.logger.Warn("discard meme blob failed", zap.String("key", meme.StorageKey), zap.Error(delErr))
		}
		s.logger.Error("create meme failed", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record meme")
	}
	s.metrics.RecordUploadAccepted(models.TargetMeme, accepted.Size)
	return meme, nil
}

// ListApproved returns one gallery page, newest first or by likes.
func (s *MemeService) ListApproved(ctx context.Context, sortBy string, page, pageSize int) (*models.MemePage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 24
	}
	byLikes := sortBy == "likes"
	key := CacheKey(CacheScopeMemes, "list", strconv.FormatBool(byLikes), strconv.Itoa(page), strconv.Itoa(pageSize))
	return cachedLoad(ctx, s.cache, key, s.cacheTTL, func(ctx context.Context) (*models.MemePage, error) {
		memes, total, err := s.repo.ListApproved(ctx, byLikes, pageSize, (page-1)*pageSize)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list memes")
		}
		if memes == nil {
			memes = []models.Meme{}
		}
		return &models.MemePage{Items: memes, Pagination: models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}}, nil
	})
}

// Image streams an approved meme's image.
func (s *MemeService) Image(ctx context.Context, id string, sink DownloadSink) error {
	meme, err := s.approved(ctx, id)
	if err != nil {
		return err
	}
	if err := copyBlob(ctx, s.store, meme.StorageKey, sink, upload.Sanitize(meme.OriginalName), meme.MimeType, meme.SizeBytes); err != nil {
		return err
	}
	s.metrics.RecordDownload(models.TargetMeme)
	return nil
}

// Like records one like per anonymous visitor. Repeats, including the losing
// side of a race, report AlreadyLiked instead of failing.
func (s *MemeService) Like(ctx context.Context, id, anonID string) (*models.MemeLikeResult, error) {
	if anonID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "visitor id required")
	}
	meme, err := s.approved(ctx, id)
	if err != nil {
		return nil, err
	}
	result, err := s.repo.Like(ctx, meme.ID, anonID)
	if err != nil {
		if database.IsUniqueViolation(err) {
			current, getErr := s.repo.GetByID(ctx, meme.ID)
			if getErr != nil {
				return nil, appErrors.Wrap(getErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load meme")
			}
			return &models.MemeLikeResult{MemeID: meme.ID, LikeCount: current.LikeCount, AlreadyLiked: true}, nil
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "meme not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record like")
	}
	return result, nil
}

func (s *MemeService) approved(ctx context.Context, id string) (*models.Meme, error) {
	if !isUUID(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "meme not found")
	}
	meme, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "meme not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load meme")
	}
	if meme.Status != models.StatusApproved {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "meme not found")
	}
	return meme, nil
}
