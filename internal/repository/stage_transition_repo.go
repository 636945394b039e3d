package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-innovation-api/internal/models"
)

// StageTransitionRepository stores the stage timeline of submissions.
type StageTransitionRepository interface {
	Create(ctx context.Context, transition *models.StageTransition) error
	ListBySubmission(ctx context.Context, submissionID uint) ([]models.StageTransition, error)
}

type stageTransitionRepository struct {
	db *gorm.DB
}

// NewStageTransitionRepository constructs the timeline repository.
func NewStageTransitionRepository(db *gorm.DB) StageTransitionRepository {
	return &stageTransitionRepository{db: db}
}

func (r *stageTransitionRepository) Create(ctx context.Context, transition *models.StageTransition) error {
	return r.db.WithContext(ctx).Create(transition).Error
}

func (r *stageTransitionRepository) ListBySubmission(ctx context.Context, submissionID uint) ([]models.StageTransition, error) {
	var transitions []models.StageTransition
	if err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&transitions).Error; err != nil {
		return nil, err
	}
	return transitions, nil
}
