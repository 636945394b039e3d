package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-innovation-api/internal/dto"
	"github.com/noah-isme/gema-innovation-api/internal/gamification"
	"github.com/noah-isme/gema-innovation-api/internal/models"
	"github.com/noah-isme/gema-innovation-api/internal/observability"
	"github.com/noah-isme/gema-innovation-api/internal/repository"
	"github.com/noah-isme/gema-innovation-api/internal/workflow"
)

// ReviewService records reviews and runs the automatic stage decision.
type ReviewService interface {
	Record(ctx context.Context, actor workflow.Actor, submissionID uint, req dto.ReviewRequest) (dto.ReviewResultResponse, error)
	List(ctx context.Context, submissionID uint, stage string) ([]dto.ReviewResponse, error)
	Stats(ctx context.Context, submissionID uint) (dto.ReviewStatsResponse, error)
}

type reviewService struct {
	core      *Core
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewReviewService constructs a ReviewService instance.
func NewReviewService(core *Core, validate *validator.Validate, logger zerolog.Logger) ReviewService {
	return &reviewService{
		core:      core,
		validator: validate,
		logger:    logger.With().Str("component", "review_service").Logger(),
	}
}

func (s *reviewService) Record(ctx context.Context, actor workflow.Actor, submissionID uint, req dto.ReviewRequest) (dto.ReviewResultResponse, error) {
	ctx, span := s.core.startSpan(ctx, "review.record",
		attribute.Int64("submission.id", int64(submissionID)),
		attribute.Int64("reviewer.id", int64(actor.ID)),
		attribute.String("review.decision", req.Decision),
	)
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		return dto.ReviewResultResponse{}, failSpan(span, validationFailed(err), "validation_failed")
	}

	var (
		recorded models.Review
		stats    workflow.Stats
		pending  int
		outcome  workflow.Outcome
		current  string
	)
	fx, err := s.core.run(ctx, func(tx repository.Store, fx *effects) error {
		sub, err := tx.Submissions().GetForUpdate(ctx, submissionID)
		if err != nil {
			return storeError(err, EntitySubmission, submissionID)
		}
		def, err := workflow.Lookup(sub.Workflow)
		if err != nil {
			return err
		}

		stage := workflow.Stage(sub.CurrentStage)
		rs, ok := def.ReviewStage(stage)
		if !ok {
			return &ValidationError{Field: "current_stage", Reason: fmt.Sprintf("submission is not under review (stage %s)", stage)}
		}
		if sub.IsAuthoredBy(actor.ID) || sub.IsOwnedBy(actor.ID) {
			return &AuthorizationError{ActorID: actor.ID, Reason: "reviewers cannot review their own submission"}
		}
		if !actor.HasAnyRole(rs.Reviewers) {
			return &AuthorizationError{ActorID: actor.ID, Reason: fmt.Sprintf("role not allowed to review at %s", stage)}
		}

		review, err := tx.Reviews().Get(ctx, sub.ID, actor.ID, string(stage), sub.ReviewRound)
		switch {
		case err == nil && review.IsCompleted():
			return &ConflictError{Reason: "review already recorded for this stage in the current round"}
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		now := s.core.now()
		review.SubmissionID = sub.ID
		review.ReviewerID = actor.ID
		review.Stage = string(stage)
		review.Round = sub.ReviewRound
		review.Decision = strings.ToLower(req.Decision)
		review.Score = req.Score
		review.Comment = s.core.clean(req.Comment)
		if len(req.Criteria) > 0 {
			review.Criteria = datatypes.JSONMap(req.Criteria)
		}
		review.CompletedAt = &now

		if review.ID == 0 {
			review.CreatedAt = now
			err = tx.Reviews().Create(ctx, &review)
		} else {
			err = tx.Reviews().Update(ctx, &review)
		}
		if err != nil {
			return storeError(err, EntityReview, review.ID)
		}
		recorded = review

		reviews, err := tx.Reviews().ListBySubmission(ctx, sub.ID, string(stage), sub.ReviewRound)
		if err != nil {
			return err
		}
		votes := completedVotes(reviews)
		position := creationPosition(reviews, review.ID)

		if err := s.awardReviewer(ctx, tx, fx, sub, review, position, len(reviews)); err != nil {
			return err
		}

		reviewID := review.ID
		fx.audit(AuditEntry{
			ActorID:    actor.ID,
			ActorRole:  actor.PrimaryRole(),
			Action:     AuditReviewRecorded,
			EntityType: EntityReview,
			EntityID:   &reviewID,
			NewValues: map[string]interface{}{
				"submission_id": sub.ID,
				"stage":         review.Stage,
				"decision":      review.Decision,
				"score":         review.Score,
			},
		})
		fx.notify(NotificationMessage{
			UserID:  sub.AuthorID,
			Type:    NotificationReviewRecorded,
			Message: fmt.Sprintf("A %s review was recorded for %q", stage, sub.Title),
			Payload: map[string]interface{}{
				"submission_id": sub.ID,
				"review_id":     review.ID,
				"stage":         review.Stage,
				"decision":      review.Decision,
			},
		})
		decision := review.Decision
		fx.onCommit(func(context.Context) {
			observability.ReviewsRecorded().WithLabelValues(decision).Inc()
		})

		stats = workflow.Tally(votes)
		pending = len(reviews) - stats.Total
		outcome = workflow.Decide(stats, s.core.policy)
		if outcome != workflow.OutcomeNone {
			target, ok := def.Target(stage, outcome)
			if ok {
				payload := stats.Map()
				payload["outcome"] = string(outcome)
				payload["stage"] = string(stage)
				if err := s.core.applyTransition(ctx, tx, fx, transitionInput{
					def:     def,
					sub:     &sub,
					target:  target,
					actor:   workflow.System(),
					comment: "automatic decision: " + string(outcome),
					auto:    true,
					stats:   payload,
				}); err != nil {
					return err
				}
			}
		}
		current = sub.CurrentStage
		return nil
	})
	if err != nil {
		return dto.ReviewResultResponse{}, failSpan(span, err, "review_record_failed")
	}

	earned := 0
	for _, entry := range fx.entries {
		if entry.UserID == actor.ID {
			earned += entry.Points
		}
	}

	span.SetAttributes(attribute.String("review.outcome", string(outcome)))
	s.logger.Info().
		Uint("submission_id", submissionID).
		Uint("reviewer_id", actor.ID).
		Str("decision", recorded.Decision).
		Str("outcome", string(outcome)).
		Msg("review recorded")

	return dto.ReviewResultResponse{
		Review:       dto.NewReviewResponse(recorded),
		Stats:        s.statsResponse(submissionID, recorded.Stage, stats, pending, outcome),
		AutoDecision: string(outcome),
		CurrentStage: current,
		PointsEarned: earned,
	}, nil
}

// awardReviewer grants the base review reward and the bonuses stacked on top of it.
func (s *reviewService) awardReviewer(ctx context.Context, tx repository.Store, fx *effects, sub models.Submission, review models.Review, position, assigned int) error {
	points := s.core.points
	related := relatedReview(review.ID)

	awards := []award{{
		UserID:      review.ReviewerID,
		Action:      gamification.ActionReviewCompleted,
		Points:      points.ReviewCompleted,
		Description: "Review completed: " + sub.Title,
		Related:     related,
		Key:         fmt.Sprintf("review_completed:%d", review.ID),
	}}

	if sub.SubmittedAt != nil && points.IsEarlyReview(*sub.SubmittedAt, *review.CompletedAt) {
		awards = append(awards, award{
			UserID:      review.ReviewerID,
			Action:      gamification.ActionEarlyReview,
			Points:      points.EarlyReviewBonus,
			Description: "Early review bonus",
			Related:     related,
			Key:         fmt.Sprintf("early_review:%d", review.ID),
		})
	}

	total := assigned
	if total < s.core.policy.MinReviews {
		total = s.core.policy.MinReviews
	}
	if gamification.IsFirstHalf(position, total) {
		awards = append(awards, award{
			UserID:      review.ReviewerID,
			Action:      gamification.ActionFirstHalfReviewer,
			Points:      points.FirstHalfReviewerBonus,
			Description: "First-half reviewer bonus",
			Related:     related,
			Key:         fmt.Sprintf("first_half:%d", review.ID),
		})
	}

	for _, a := range awards {
		if _, err := s.core.award(ctx, tx, fx, a); err != nil {
			return err
		}
	}
	return s.core.awardWeekend(ctx, tx, fx, review.ReviewerID, *review.CompletedAt)
}

// completedVotes returns the decided votes, skipping pending reviews.
func completedVotes(reviews []models.Review) []workflow.Vote {
	votes := make([]workflow.Vote, 0, len(reviews))
	for _, review := range reviews {
		if review.IsCompleted() {
			votes = append(votes, workflow.Vote{Decision: review.Decision, Score: review.Score})
		}
	}
	return votes
}

// creationPosition is the 1-based rank of reviewID among reviews ordered by
// creation time, pending ones included. Zero when absent.
func creationPosition(reviews []models.Review, reviewID uint) int {
	ordered := append([]models.Review(nil), reviews...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
		}
		return ordered[i].ID < ordered[j].ID
	})
	for i, review := range ordered {
		if review.ID == reviewID {
			return i + 1
		}
	}
	return 0
}

// List returns the reviews of the submission's current round.
func (s *reviewService) List(ctx context.Context, submissionID uint, stage string) ([]dto.ReviewResponse, error) {
	sub, err := s.core.store.Submissions().GetByID(ctx, submissionID)
	if err != nil {
		return nil, storeError(err, EntitySubmission, submissionID)
	}
	reviews, err := s.core.store.Reviews().ListBySubmission(ctx, submissionID, strings.ToLower(strings.TrimSpace(stage)), sub.ReviewRound)
	if err != nil {
		return nil, err
	}
	return dto.NewReviewResponses(reviews), nil
}

func (s *reviewService) Stats(ctx context.Context, submissionID uint) (dto.ReviewStatsResponse, error) {
	sub, err := s.core.store.Submissions().GetByID(ctx, submissionID)
	if err != nil {
		return dto.ReviewStatsResponse{}, storeError(err, EntitySubmission, submissionID)
	}
	reviews, err := s.core.store.Reviews().ListBySubmission(ctx, submissionID, sub.CurrentStage, sub.ReviewRound)
	if err != nil {
		return dto.ReviewStatsResponse{}, err
	}

	votes := completedVotes(reviews)
	stats := workflow.Tally(votes)
	return s.statsResponse(submissionID, sub.CurrentStage, stats, len(reviews)-stats.Total, workflow.Decide(stats, s.core.policy)), nil
}

func (s *reviewService) statsResponse(submissionID uint, stage string, stats workflow.Stats, pending int, outcome workflow.Outcome) dto.ReviewStatsResponse {
	return dto.ReviewStatsResponse{
		SubmissionID: submissionID,
		Stage:        stage,
		Total:        stats.Total,
		Approvals:    stats.Approvals,
		Rejections:   stats.Rejections,
		Revisions:    stats.Revisions,
		Pending:      pending,
		AverageScore: stats.AverageScore,
		MinReviews:   s.core.policy.MinReviews,
		Outcome:      string(outcome),
	}
}
