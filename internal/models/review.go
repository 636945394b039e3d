package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	// ReviewDecisionPending marks a review that has been opened but not decided.
	ReviewDecisionPending = "pending"
	// ReviewDecisionApprove recommends moving the submission forward.
	ReviewDecisionApprove = "approve"
	// ReviewDecisionReject recommends rejecting the submission.
	ReviewDecisionReject = "reject"
	// ReviewDecisionNeedsRevision asks the author to rework the submission.
	ReviewDecisionNeedsRevision = "needs_revision"
)

// Review is a single reviewer's assessment of a submission at a given stage.
// Round is the submission's review round when the review was opened; every
// resubmission starts a new round, so earlier verdicts stop counting.
type Review struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	SubmissionID uint              `gorm:"not null;uniqueIndex:idx_review_once,priority:1" json:"submission_id"`
	ReviewerID   uint              `gorm:"not null;index;uniqueIndex:idx_review_once,priority:2" json:"reviewer_id"`
	Stage        string            `gorm:"size:32;not null;uniqueIndex:idx_review_once,priority:3" json:"stage"`
	Round        int               `gorm:"not null;default:0;uniqueIndex:idx_review_once,priority:4" json:"round"`
	Decision     string            `gorm:"size:32;not null" json:"decision"`
	Score        *float64          `json:"score"`
	Comment      string            `gorm:"type:text" json:"comment"`
	Criteria     datatypes.JSONMap `gorm:"type:json" json:"criteria"`
	CompletedAt  *time.Time        `json:"completed_at"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// IsCompleted reports whether the review has been finalised.
func (r Review) IsCompleted() bool {
	return r.CompletedAt != nil
}
