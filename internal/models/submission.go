package models

// SubmissionStatus is the moderation state shared by batches, content items
// and memes.
type SubmissionStatus string

const (
	StatusPending  SubmissionStatus = "PENDING"
	StatusApproved SubmissionStatus = "APPROVED"
	StatusRejected SubmissionStatus = "REJECTED"
)

// Valid reports whether s is a known status.
func (s SubmissionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// ModerationDecision reports whether staff may set s. Nothing returns to
// pending once created.
func (s SubmissionStatus) ModerationDecision() bool {
	return s == StatusApproved || s == StatusRejected
}

// ModerationTarget names the entity kind a bulk action applies to.
type ModerationTarget string

const (
	TargetBatch   ModerationTarget = "BATCH"
	TargetContent ModerationTarget = "CONTENT"
	TargetMeme    ModerationTarget = "MEME"
)

// ModerationResult summarises one bulk status change.
type ModerationResult struct {
	Target    ModerationTarget `json:"target"`
	Status    SubmissionStatus `json:"status"`
	Requested int              `json:"requested"`
	Updated   int64            `json:"updated"`
}
