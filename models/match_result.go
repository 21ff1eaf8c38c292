package models

import "time"

// MatchResult is a submitted score awaiting review. It is created on
// submission and deleted on rejection so the match can be resubmitted.
// Once approved only the penalty fields may still change.
type MatchResult struct {
	ID               int    `json:"id" db:"id"`
	MatchID          int    `json:"match_id" db:"match_id"`
	HomeScore        int    `json:"home_score" db:"home_score"`
	AwayScore        int    `json:"away_score" db:"away_score"`
	HomePenaltyScore *int   `json:"home_penalty_score,omitempty" db:"home_penalty_score"`
	AwayPenaltyScore *int   `json:"away_penalty_score,omitempty" db:"away_penalty_score"`
	SubmittedBy      int    `json:"submitted_by" db:"submitted_by"`
	Approved         bool   `json:"approved" db:"approved"`
	ReviewedBy       *int   `json:"reviewed_by,omitempty" db:"reviewed_by"`
	ReviewComment    *string `json:"review_comment,omitempty" db:"review_comment"`
	ReviewedAt       *time.Time `json:"reviewed_at,omitempty" db:"reviewed_at"`

	// EvidenceKey is the opaque storage key of the submitted screenshot.
	EvidenceKey *string `json:"evidence_key,omitempty" db:"evidence_key"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

func (r *MatchResult) IsDraw() bool {
	return r.HomeScore == r.AwayScore
}
