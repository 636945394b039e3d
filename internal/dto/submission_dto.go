package dto

import (
	"time"

	"github.com/noah-isme/gema-innovation-api/internal/models"
)

// SubmissionCreateRequest starts a new idea or challenge entry in draft.
type SubmissionCreateRequest struct {
	Workflow    string `json:"workflow" validate:"required,oneof=idea challenge"`
	Title       string `json:"title" validate:"required,min=3,max=255"`
	Description string `json:"description" validate:"omitempty,max=10000"`
	OwnerID     *uint  `json:"owner_id" validate:"omitempty,gt=0"`
}

// SubmissionUpdateRequest edits the content of a submission.
type SubmissionUpdateRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=3,max=255"`
	Description *string `json:"description" validate:"omitempty,max=10000"`
}

// SubmissionListRequest describes query string filters for listing submissions.
type SubmissionListRequest struct {
	Workflow string `query:"workflow" validate:"omitempty,oneof=idea challenge"`
	Stage    string `query:"stage" validate:"omitempty,max=32"`
	AuthorID uint   `query:"author_id"`
	Page     int    `query:"page" validate:"omitempty,min=1"`
	PageSize int    `query:"page_size" validate:"omitempty,min=1,max=100"`
}

// TransitionRequest asks the engine to move a submission to another stage.
type TransitionRequest struct {
	TargetStage string `json:"target_stage" validate:"required,max=32"`
	Comment     string `json:"comment" validate:"omitempty,max=2000"`
}

// WinnerRequest declares a shortlisted challenge entry a winner.
type WinnerRequest struct {
	Rank    int    `json:"rank" validate:"required,min=1,max=1000"`
	Comment string `json:"comment" validate:"omitempty,max=2000"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID                      uint       `json:"id"`
	Workflow                string     `json:"workflow"`
	AuthorID                uint       `json:"author_id"`
	OwnerID                 *uint      `json:"owner_id,omitempty"`
	Title                   string     `json:"title"`
	Description             string     `json:"description"`
	CurrentStage            string     `json:"current_stage"`
	SubmittedAt             *time.Time `json:"submitted_at"`
	ReviewRound             int        `json:"review_round"`
	LastStageChangeAt       *time.Time `json:"last_stage_change_at"`
	CollaborationEnabled    bool       `json:"collaboration_enabled"`
	ImplementationStartedAt *time.Time `json:"implementation_started_at,omitempty"`
	CompletedAt             *time.Time `json:"completed_at,omitempty"`
	WinnerRank              *int       `json:"winner_rank,omitempty"`
	AvailableStages         []string   `json:"available_stages"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
}

// SubmissionListResponse wraps paginated submissions.
type SubmissionListResponse struct {
	Items      []SubmissionResponse `json:"items"`
	Pagination PaginationMeta       `json:"pagination"`
}

// StageTransitionResponse is one entry of a submission timeline.
type StageTransitionResponse struct {
	ID        uint                   `json:"id"`
	FromStage string                 `json:"from_stage"`
	ToStage   string                 `json:"to_stage"`
	ActorID   uint                   `json:"actor_id"`
	Comment   string                 `json:"comment,omitempty"`
	Automatic bool                   `json:"automatic"`
	Stats     map[string]interface{} `json:"stats,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// NewSubmissionResponse maps a submission model into a response DTO.
func NewSubmissionResponse(model models.Submission, targets []string) SubmissionResponse {
	if targets == nil {
		targets = []string{}
	}
	return SubmissionResponse{
		ID:                      model.ID,
		Workflow:                model.Workflow,
		AuthorID:                model.AuthorID,
		OwnerID:                 model.OwnerID,
		Title:                   model.Title,
		Description:             model.Description,
		CurrentStage:            model.CurrentStage,
		SubmittedAt:             model.SubmittedAt,
		ReviewRound:             model.ReviewRound,
		LastStageChangeAt:       model.LastStageChangeAt,
		CollaborationEnabled:    model.CollaborationEnabled,
		ImplementationStartedAt: model.ImplementationStartedAt,
		CompletedAt:             model.CompletedAt,
		WinnerRank:              model.WinnerRank,
		AvailableStages:         targets,
		CreatedAt:               model.CreatedAt,
		UpdatedAt:               model.UpdatedAt,
	}
}

// NewStageTransitionResponses maps the timeline rows.
func NewStageTransitionResponses(items []models.StageTransition) []StageTransitionResponse {
	out := make([]StageTransitionResponse, 0, len(items))
	for _, item := range items {
		out = append(out, StageTransitionResponse{
			ID:        item.ID,
			FromStage: item.FromStage,
			ToStage:   item.ToStage,
			ActorID:   item.ActorID,
			Comment:   item.Comment,
			Automatic: item.Automatic,
			Stats:     map[string]interface{}(item.Stats),
			CreatedAt: item.CreatedAt,
		})
	}
	return out
}
