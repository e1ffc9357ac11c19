package models

import (
	"time"

	"github.com/noah-isme/content-vault-api/pkg/upload"
)

// ContentKind classifies single-file content items.
type ContentKind string

const (
	ContentExam     ContentKind = "EXAM"
	ContentMaterial ContentKind = "MATERIAL"
)

// Content listing sort orders.
const (
	SortNewest         = "newest"
	SortMostDownloaded = "most_downloaded"
)

// ContentItem is a single submitted file with classification metadata.
type ContentItem struct {
	ID            string           `db:"id" json:"id"`
	Title         string           `db:"title" json:"title"`
	Kind          ContentKind      `db:"content_type" json:"contentType"`
	Year          *int             `db:"year" json:"year,omitempty"`
	Subject       string           `db:"subject" json:"subject"`
	Teacher       string           `db:"teacher" json:"teacher"`
	Program       string           `db:"program" json:"program"`
	StorageKey    string           `db:"storage_key" json:"-"`
	OriginalName  string           `db:"original_name" json:"-"`
	MimeType      string           `db:"mime_type" json:"mimeType"`
	SizeBytes     int64            `db:"size_bytes" json:"sizeBytes"`
	Status        SubmissionStatus `db:"status" json:"status"`
	DownloadCount int64            `db:"download_count" json:"downloadCount"`
	CreatedAt     time.Time        `db:"created_at" json:"createdAt"`
	ApprovedAt    *time.Time       `db:"approved_at" json:"approvedAt,omitempty"`
}

// DisplayName derives the download name from the stored original.
func (c ContentItem) DisplayName() string {
	return upload.Sanitize(c.OriginalName)
}

// ContentFilter narrows approved content listings.
type ContentFilter struct {
	Year     *int
	Kind     ContentKind
	Subject  string
	Teacher  string
	Program  string
	Sort     string
	Page     int
	PageSize int
}

// ContentFacets lists the distinct filter values among approved items.
type ContentFacets struct {
	Years    []int    `json:"years"`
	Subjects []string `json:"subjects"`
	Teachers []string `json:"teachers"`
	Programs []string `json:"programs"`
}

// SubmitContentRequest is the metadata sent with a content upload.
type SubmitContentRequest struct {
	Title   string      `form:"title" json:"title" validate:"required,max=200"`
	Kind    ContentKind `form:"contentType" json:"contentType" validate:"required,oneof=EXAM MATERIAL"`
	Year    *int        `form:"year" json:"year" validate:"omitempty,min=1990,max=2100"`
	Subject string      `form:"subject" json:"subject" validate:"max=120"`
	Teacher string      `form:"teacher" json:"teacher" validate:"max=120"`
	Program string      `form:"program" json:"program" validate:"max=120"`
}

// ContentPage is one page of approved content.
type ContentPage struct {
	Items      []ContentItem `json:"items"`
	Pagination Pagination    `json:"pagination"`
}
