package models

import "time"

// Meme is an image submission shown in the public gallery once approved.
type Meme struct {
	ID           string           `db:"id" json:"id"`
	Title        string           `db:"title" json:"title"`
	StorageKey   string           `db:"storage_key" json:"-"`
	OriginalName string           `db:"original_name" json:"-"`
	MimeType     string           `db:"mime_type" json:"mimeType"`
	SizeBytes    int64            `db:"size_bytes" json:"sizeBytes"`
	Status       SubmissionStatus `db:"status" json:"status"`
	LikeCount    int64            `db:"like_count" json:"likeCount"`
	CreatedAt    time.Time        `db:"created_at" json:"createdAt"`
	ApprovedAt   *time.Time       `db:"approved_at" json:"approvedAt,omitempty"`
}

// MemeLikeResult reports the outcome of a like request.
type MemeLikeResult struct {
	MemeID       string `json:"memeId"`
	LikeCount    int64  `json:"likeCount"`
	AlreadyLiked bool   `json:"alreadyLiked"`
}

// SubmitMemeRequest is the metadata sent with a meme upload.
type SubmitMemeRequest struct {
	Title string `form:"title" json:"title" validate:"required,max=200"`
}

// MemePage is one page of approved memes.
type MemePage struct {
	Items      []Meme     `json:"items"`
	Pagination Pagination `json:"pagination"`
}
