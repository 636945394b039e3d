package models

import (
	"time"

	"gorm.io/datatypes"
)

// Submission represents an idea or a challenge entry moving through a review workflow.
type Submission struct {
	ID                      uint       `gorm:"primaryKey" json:"id"`
	Workflow                string     `gorm:"size:32;not null;index" json:"workflow"`
	AuthorID                uint       `gorm:"not null;index" json:"author_id"`
	OwnerID                 *uint      `json:"owner_id"`
	Title                   string     `gorm:"size:255;not null" json:"title"`
	Description             string     `gorm:"type:text" json:"description"`
	CurrentStage            string     `gorm:"size:32;not null;index" json:"current_stage"`
	SubmittedAt             *time.Time `json:"submitted_at"`
	ReviewRound             int        `gorm:"not null;default:0" json:"review_round"`
	LastStageChangeAt       *time.Time `json:"last_stage_change_at"`
	CollaborationEnabled    bool       `gorm:"not null;default:false" json:"collaboration_enabled"`
	ImplementationStartedAt *time.Time `json:"implementation_started_at"`
	CompletedAt             *time.Time `json:"completed_at"`
	WinnerRank              *int       `json:"winner_rank"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
}

// IsAuthoredBy reports whether the given user wrote the submission.
func (s Submission) IsAuthoredBy(userID uint) bool {
	return s.AuthorID == userID
}

// IsOwnedBy reports whether the given user is the organizational creator owning the submission.
func (s Submission) IsOwnedBy(userID uint) bool {
	return s.OwnerID != nil && *s.OwnerID == userID
}

// StageTransition keeps the timeline of stage changes for a submission.
type StageTransition struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	SubmissionID uint              `gorm:"not null;index" json:"submission_id"`
	FromStage    string            `gorm:"size:32;not null" json:"from_stage"`
	ToStage      string            `gorm:"size:32;not null" json:"to_stage"`
	ActorID      uint              `gorm:"not null" json:"actor_id"`
	Comment      string            `gorm:"type:text" json:"comment"`
	Automatic    bool              `gorm:"not null;default:false" json:"automatic"`
	Stats        datatypes.JSONMap `gorm:"type:json" json:"stats,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}
