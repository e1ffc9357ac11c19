package models

import "time"

// Teacher is a ranking candidate.
type Teacher struct {
	ID     string `db:"id" json:"id"`
	Name   string `db:"name" json:"name"`
	Active bool   `db:"active" json:"active"`
}

// RankingCategory is one question of the ranking survey.
type RankingCategory struct {
	ID          string `db:"id" json:"id"`
	Slug        string `db:"slug" json:"slug"`
	Title       string `db:"title" json:"title"`
	Description string `db:"description" json:"description,omitempty"`
	SortOrder   int    `db:"sort_order" json:"sortOrder"`
}

// RankingVote is one anonymous vote. TokenHash identifies the voter without
// storing the cookie value.
type RankingVote struct {
	ID         string    `db:"id" json:"id"`
	CategoryID string    `db:"category_id" json:"categoryId"`
	TeacherID  string    `db:"teacher_id" json:"teacherId"`
	TokenHash  string    `db:"token_hash" json:"-"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// RankingTally is the raw vote count for one teacher in one category.
type RankingTally struct {
	CategoryID string `db:"category_id" json:"categoryId"`
	TeacherID  string `db:"teacher_id" json:"teacherId"`
	Votes      int    `db:"votes" json:"votes"`
}

// RankingResult is one category with a row per teacher. Percent is relative
// to the category leader.
type RankingResult struct {
	Category   RankingCategory     `json:"category"`
	Entries    []RankingResultItem `json:"entries"`
	TotalVotes int                 `json:"totalVotes"`
}

// RankingVoteResult reports the outcome of a vote and what to ask next.
type RankingVoteResult struct {
	Recorded     bool             `json:"recorded"`
	AlreadyVoted bool             `json:"alreadyVoted"`
	NextCategory *RankingCategory `json:"nextCategory,omitempty"`
}

// RankingPrompt is the next unanswered category with its candidates. A nil
// Category means the voter is done.
type RankingPrompt struct {
	Category *RankingCategory `json:"category,omitempty"`
	Teachers []Teacher        `json:"teachers"`
	Done     bool             `json:"done"`
}

// RankingResultItem is one ranked teacher within a category.
type RankingResultItem struct {
	TeacherID   string  `json:"teacherId"`
	TeacherName string  `json:"teacherName"`
	Votes       int     `json:"votes"`
	Percent     float64 `json:"percent"`
}
