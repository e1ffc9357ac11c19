package models

import (
	"time"

	"github.com/noah-isme/content-vault-api/pkg/upload"
)

// Batch groups files uploaded together. AccessToken is a bearer capability
// minted once at creation; it never leaves the service except in the create
// response.
type Batch struct {
	ID            string           `db:"id" json:"id"`
	OwnerID       *string          `db:"owner_id" json:"ownerId,omitempty"`
	AccessToken   string           `db:"access_token" json:"-"`
	Status        SubmissionStatus `db:"status" json:"status"`
	Context       string           `db:"context" json:"context"`
	TypeOption    string           `db:"type_option" json:"typeOption,omitempty"`
	Subject       string           `db:"subject" json:"subject,omitempty"`
	Teacher       string           `db:"teacher" json:"teacher,omitempty"`
	Program       string           `db:"program" json:"program,omitempty"`
	Year          *int             `db:"year" json:"year,omitempty"`
	DownloadCount int64            `db:"download_count" json:"downloadCount"`
	CreatedAt     time.Time        `db:"created_at" json:"createdAt"`
}

// BatchSummary is a batch row enriched for the moderation queue.
type BatchSummary struct {
	Batch
	FileCount  int   `db:"file_count" json:"fileCount"`
	TotalBytes int64 `db:"total_bytes" json:"totalBytes"`
}

// BatchFilter narrows moderation queue listings.
type BatchFilter struct {
	Status SubmissionStatus
	Limit  int
	Offset int
}

// StoredFile is one blob attached to a batch. OriginalName is untrusted and
// only ever shown through DisplayName.
type StoredFile struct {
	ID           string    `db:"id" json:"id"`
	BatchID      string    `db:"batch_id" json:"batchId"`
	OriginalName string    `db:"original_name" json:"-"`
	Size         int64     `db:"size" json:"size"`
	ContentType  string    `db:"content_type" json:"contentType"`
	SniffedType  string    `db:"sniffed_type" json:"sniffedType"`
	StorageKey   string    `db:"storage_key" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// DisplayName derives the client-facing name from the stored original.
func (f StoredFile) DisplayName() string {
	return upload.Sanitize(f.OriginalName)
}

// FileView is the client-facing projection of a StoredFile.
type FileView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"contentType"`
	CreatedAt   time.Time `json:"createdAt"`
}

// View projects the file for clients.
func (f StoredFile) View() FileView {
	return FileView{ID: f.ID, Name: f.DisplayName(), Size: f.Size, ContentType: f.ContentType, CreatedAt: f.CreatedAt}
}

// CreateBatchRequest is the payload for opening a submission batch.
type CreateBatchRequest struct {
	Context    string `json:"context" validate:"max=200"`
	TypeOption string `json:"typeOption" validate:"max=60"`
	Subject    string `json:"subject" validate:"max=120"`
	Teacher    string `json:"teacher" validate:"max=120"`
	Program    string `json:"program" validate:"max=120"`
	Year       *int   `json:"year" validate:"omitempty,min=1990,max=2100"`
}

// CreateBatchResponse returns the capability for a new batch. The token is
// shown exactly once.
type CreateBatchResponse struct {
	ID          string           `json:"id"`
	AccessToken string           `json:"accessToken"`
	Status      SubmissionStatus `json:"status"`
	CreatedAt   time.Time        `json:"createdAt"`
}
