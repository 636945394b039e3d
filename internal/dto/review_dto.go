package dto

import (
	"time"

	"github.com/noah-isme/gema-innovation-api/internal/models"
)

// ReviewRequest records a reviewer's decision at the submission's current stage.
type ReviewRequest struct {
	Decision string                 `json:"decision" validate:"required,oneof=approve reject needs_revision"`
	Score    *float64               `json:"score" validate:"omitempty,gte=0,lte=100"`
	Comment  string                 `json:"comment" validate:"omitempty,max=4000"`
	Criteria map[string]interface{} `json:"criteria" validate:"omitempty,max=32"`
}

// ReviewResponse serializes a review.
type ReviewResponse struct {
	ID           uint                   `json:"id"`
	SubmissionID uint                   `json:"submission_id"`
	ReviewerID   uint                   `json:"reviewer_id"`
	Stage        string                 `json:"stage"`
	Round        int                    `json:"round"`
	Decision     string                 `json:"decision"`
	Score        *float64               `json:"score"`
	Comment      string                 `json:"comment,omitempty"`
	Criteria     map[string]interface{} `json:"criteria,omitempty"`
	CompletedAt  *time.Time             `json:"completed_at"`
	CreatedAt    time.Time              `json:"created_at"`
}

// ReviewStatsResponse reports the aggregate of the current stage's reviews.
type ReviewStatsResponse struct {
	SubmissionID uint    `json:"submission_id"`
	Stage        string  `json:"stage"`
	Total        int     `json:"total"`
	Approvals    int     `json:"approvals"`
	Rejections   int     `json:"rejections"`
	Revisions    int     `json:"revisions"`
	Pending      int     `json:"pending"`
	AverageScore float64 `json:"average_score"`
	MinReviews   int     `json:"min_reviews"`
	Outcome      string  `json:"outcome,omitempty"`
}

// ReviewResultResponse is returned after recording a review.
type ReviewResultResponse struct {
	Review       ReviewResponse      `json:"review"`
	Stats        ReviewStatsResponse `json:"stats"`
	AutoDecision string              `json:"auto_decision,omitempty"`
	CurrentStage string              `json:"current_stage"`
	PointsEarned int                 `json:"points_earned"`
}

// NewReviewResponse maps a review model into a DTO.
func NewReviewResponse(model models.Review) ReviewResponse {
	return ReviewResponse{
		ID:           model.ID,
		SubmissionID: model.SubmissionID,
		ReviewerID:   model.ReviewerID,
		Stage:        model.Stage,
		Round:        model.Round,
		Decision:     model.Decision,
		Score:        model.Score,
		Comment:      model.Comment,
		Criteria:     map[string]interface{}(model.Criteria),
		CompletedAt:  model.CompletedAt,
		CreatedAt:    model.CreatedAt,
	}
}

// NewReviewResponses maps a slice of reviews.
func NewReviewResponses(items []models.Review) []ReviewResponse {
	out := make([]ReviewResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewReviewResponse(item))
	}
	return out
}
