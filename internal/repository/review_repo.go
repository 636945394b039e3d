package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-innovation-api/internal/models"
)

// ReviewRepository persists reviewer assessments.
type ReviewRepository interface {
	GetByID(ctx context.Context, id uint) (models.Review, error)
	Get(ctx context.Context, submissionID, reviewerID uint, stage string, round int) (models.Review, error)
	// ListBySubmission returns reviews in creation order. An empty stage returns
	// every stage and a zero round every round.
	ListBySubmission(ctx context.Context, submissionID uint, stage string, round int) ([]models.Review, error)
	CountCompletedByReviewer(ctx context.Context, reviewerID uint) (int64, error)
	Create(ctx context.Context, review *models.Review) error
	Update(ctx context.Context, review *models.Review) error
}

type reviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository constructs the review repository.
func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) GetByID(ctx context.Context, id uint) (models.Review, error) {
	var review models.Review
	if err := r.db.WithContext(ctx).First(&review, id).Error; err != nil {
		return models.Review{}, err
	}
	return review, nil
}

func (r *reviewRepository) Get(ctx context.Context, submissionID, reviewerID uint, stage string, round int) (models.Review, error) {
	var review models.Review
	if err := r.db.WithContext(ctx).
		Where("submission_id = ? AND reviewer_id = ? AND stage = ? AND round = ?", submissionID, reviewerID, stage, round).
		First(&review).Error; err != nil {
		return models.Review{}, err
	}
	return review, nil
}

func (r *reviewRepository) ListBySubmission(ctx context.Context, submissionID uint, stage string, round int) ([]models.Review, error) {
	query := r.db.WithContext(ctx).Where("submission_id = ?", submissionID)
	if stage != "" {
		query = query.Where("stage = ?", stage)
	}
	if round > 0 {
		query = query.Where("round = ?", round)
	}

	var reviews []models.Review
	if err := query.
		Order("created_at ASC").
		Order("id ASC").
		Find(&reviews).Error; err != nil {
		return nil, err
	}
	return reviews, nil
}

func (r *reviewRepository) CountCompletedByReviewer(ctx context.Context, reviewerID uint) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Review{}).
		Where("reviewer_id = ? AND completed_at IS NOT NULL", reviewerID).
		Count(&total).Error
	return total, err
}

func (r *reviewRepository) Create(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

func (r *reviewRepository) Update(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Save(review).Error
}
