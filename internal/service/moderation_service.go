package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/content-vault-api/internal/models"
	appErrors "github.com/noah-isme/content-vault-api/pkg/errors"
	"github.com/noah-isme/content-vault-api/pkg/export"
)

const (
	// MaxModerationIDs caps one bulk action.
	MaxModerationIDs = 500
	exportPageSize   = 500
	exportRowLimit   = 10000
)

type statusUpdater interface {
	UpdateStatus(ctx context.Context, ids []string, status models.SubmissionStatus) (int64, error)
}

type batchQueueRepository interface {
	statusUpdater
	GetByID(ctx context.Context, id string) (*models.Batch, error)
	ListSummaries(ctx context.Context, filter models.BatchFilter) ([]models.BatchSummary, int, error)
}

type auditWriter interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

type reviewSigner interface {
	Generate(batchID string) (string, time.Time, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

// Actor identifies the staff member behind a moderation call.
type Actor struct {
	UserID    string
	IPAddress string
	UserAgent string
}

// ReviewLink is a signed, expiring archive link for one batch.
type ReviewLink struct {
	BatchID   string    `json:"batchId"`
	Signature string    `json:"signature"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ExportFile is a rendered moderation queue export.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ModerationDeps groups the collaborators of ModerationService.
type ModerationDeps struct {
	Batches   batchQueueRepository
	Content   statusUpdater
	Memes     statusUpdater
	Audit     auditWriter
	Cache     *CacheService
	Signer    reviewSigner
	Renderers map[string]datasetRenderer
	Logger    *zap.Logger
}

// ModerationService applies staff decisions and serves the review queue.
type ModerationService struct {
	batches   batchQueueRepository
	targets   map[models.ModerationTarget]statusUpdater
	audit     auditWriter
	cache     *CacheService
	signer    reviewSigner
	renderers map[string]datasetRenderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewModerationService constructs the service. Without renderers it exports
// csv and pdf.
func NewModerationService(deps ModerationDeps) *ModerationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	renderers := deps.Renderers
	if renderers == nil {
		renderers = map[string]datasetRenderer{
			"csv": export.NewCSVExporter(),
			"pdf": export.NewPDFExporter(),
		}
	}
	return &ModerationService{
		batches: deps.Batches,
		targets: map[models.ModerationTarget]statusUpdater{
			models.TargetBatch:   deps.Batches,
			models.TargetContent: deps.Content,
			models.TargetMeme:    deps.Memes,
		},
		audit:     deps.Audit,
		cache:     deps.Cache,
		signer:    deps.Signer,
		renderers: renderers,
		logger:    logger,
		now:       time.Now,
	}
}

// SetStatus moves every listed entity of target to status. Unknown ids are
// ignored and show up as the gap between Requested and Updated.
func (s *ModerationService) SetStatus(ctx context.Context, actor Actor, target models.ModerationTarget, ids []string, status models.SubmissionStatus) (*models.ModerationResult, error) {
	updater, ok := s.targets[target]
	if !ok || updater == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown moderation target")
	}
	if !status.ModerationDecision() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be APPROVED or REJECTED")
	}
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "ids required")
	}
	if len(ids) > MaxModerationIDs {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("at most %d ids per request", MaxModerationIDs))
	}
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid id")
		}
	}

	updated, err := updater.UpdateStatus(ctx, ids, status)
	if err != nil {
		s.logger.Error("moderation update failed", zap.String("target", string(target)), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update status")
	}
	result := &models.ModerationResult{Target: target, Status: status, Requested: len(ids), Updated: updated}

	switch target {
	case models.TargetContent:
		_ = s.cache.InvalidateScope(ctx, CacheScopeContent)
	case models.TargetMeme:
		_ = s.cache.InvalidateScope(ctx, CacheScopeMemes)
	}

	action := models.AuditActionReject
	if status == models.StatusApproved {
		action = models.AuditActionApprove
	}
	s.record(ctx, actor, action, string(target), "", map[string]interface{}{
		"ids":     ids,
		"status":  status,
		"updated": updated,
	})
	s.logger.Info("moderation applied",
		zap.String("target", string(target)),
		zap.String("status", string(status)),
		zap.Int("requested", len(ids)),
		zap.Int64("updated", updated),
		zap.String("actor", actor.UserID),
	)
	return result, nil
}

// Queue lists batches for review, newest first.
func (s *ModerationService) Queue(ctx context.Context, status models.SubmissionStatus, page, pageSize int) ([]models.BatchSummary, *models.Pagination, error) {
	if status != "" && !status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown status")
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	summaries, total, err := s.batches.ListSummaries(ctx, models.BatchFilter{Status: status, Limit: pageSize, Offset: (page - 1) * pageSize})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list batches")
	}
	if summaries == nil {
		summaries = []models.BatchSummary{}
	}
	return summaries, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// ReviewLink signs an archive link for batchID and audits its issue.
func (s *ModerationService) ReviewLink(ctx context.Context, actor Actor, batchID string) (*ReviewLink, error) {
	if !isUUID(batchID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
	}
	if _, err := s.batches.GetByID(ctx, batchID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch")
	}
	signature, expiresAt, err := s.signer.Generate(batchID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign review link")
	}
	s.record(ctx, actor, models.AuditActionReviewLink, string(models.TargetBatch), batchID, map[string]interface{}{
		"expiresAt": expiresAt,
	})
	return &ReviewLink{BatchID: batchID, Signature: signature, ExpiresAt: expiresAt}, nil
}

// Export renders the queue, optionally narrowed by status, as csv or pdf.
func (s *ModerationService) Export(ctx context.Context, actor Actor, status models.SubmissionStatus, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "csv"
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
	if status != "" && !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown status")
	}

	var rows [][]string
	for offset := 0; offset < exportRowLimit; offset += exportPageSize {
		summaries, _, err := s.batches.ListSummaries(ctx, models.BatchFilter{Status: status, Limit: exportPageSize, Offset: offset})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list batches")
		}
		for _, summary := range summaries {
			rows = append(rows, queueRow(summary))
		}
		if len(summaries) < exportPageSize {
			break
		}
	}

	title := "Moderation queue"
	if status != "" {
		title += " (" + string(status) + ")"
	}
	data, err := renderer.Render(export.Dataset{Title: title, Columns: queueColumns, Rows: rows})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	s.record(ctx, actor, models.AuditActionExport, string(models.TargetBatch), "", map[string]interface{}{
		"format": format,
		"status": status,
		"rows":   len(rows),
	})
	return &ExportFile{
		Filename:    fmt.Sprintf("moderation-queue-%s.%s", s.now().UTC().Format("20060102-150405"), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Data:        data,
	}, nil
}

var queueColumns = []export.Column{
	{Header: "Batch", Width: 3},
	{Header: "Status", Width: 1.2},
	{Header: "Context", Width: 3},
	{Header: "Subject", Width: 1.5},
	{Header: "Teacher", Width: 1.5},
	{Header: "Year", Width: 0.7},
	{Header: "Files", Width: 0.7},
	{Header: "Bytes", Width: 1},
	{Header: "Downloads", Width: 1},
	{Header: "Created", Width: 1.8},
}

func queueRow(summary models.BatchSummary) []string {
	year := ""
	if summary.Year != nil {
		year = strconv.Itoa(*summary.Year)
	}
	return []string{
		summary.ID,
		string(summary.Status),
		summary.Context,
		summary.Subject,
		summary.Teacher,
		year,
		strconv.Itoa(summary.FileCount),
		strconv.FormatInt(summary.TotalBytes, 10),
		strconv.FormatInt(summary.DownloadCount, 10),
		summary.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// record writes an audit entry. Failures are logged, never surfaced.
func (s *ModerationService) record(ctx context.Context, actor Actor, action, resource, resourceID string, values map[string]interface{}) {
	if s.audit == nil {
		return
	}
	body, err := json.Marshal(values)
	if err != nil {
		s.logger.Warn("encode audit values failed", zap.Error(err))
		return
	}
	entry := &models.AuditLog{
		Action:    action,
		Resource:  resource,
		NewValues: body,
		IPAddress: actor.IPAddress,
		UserAgent: actor.UserAgent,
	}
	if actor.UserID != "" {
		userID := actor.UserID
		entry.UserID = &userID
	}
	if resourceID != "" {
		entry.ResourceID = &resourceID
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		s.logger.Warn("write audit log failed", zap.String("action", action), zap.Error(err))
	}
}
