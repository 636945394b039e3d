package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/gema-innovation-api/internal/dto"
	"github.com/noah-isme/gema-innovation-api/internal/gamification"
	"github.com/noah-isme/gema-innovation-api/internal/models"
	"github.com/noah-isme/gema-innovation-api/internal/repository"
	"github.com/noah-isme/gema-innovation-api/internal/workflow"
)

// SubmissionService manages idea and challenge submissions and their stage transitions.
type SubmissionService interface {
	Create(ctx context.Context, actor workflow.Actor, req dto.SubmissionCreateRequest) (dto.SubmissionResponse, error)
	Update(ctx context.Context, actor workflow.Actor, id uint, req dto.SubmissionUpdateRequest) (dto.SubmissionResponse, error)
	Get(ctx context.Context, actor workflow.Actor, id uint) (dto.SubmissionResponse, error)
	List(ctx context.Context, actor workflow.Actor, req dto.SubmissionListRequest) (dto.SubmissionListResponse, error)
	History(ctx context.Context, id uint) ([]dto.StageTransitionResponse, error)
	Transition(ctx context.Context, actor workflow.Actor, id uint, req dto.TransitionRequest) (dto.SubmissionResponse, error)
	DeclareWinner(ctx context.Context, actor workflow.Actor, id uint, req dto.WinnerRequest) (dto.SubmissionResponse, error)
}

type submissionService struct {
	core      *Core
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewSubmissionService constructs a SubmissionService instance.
func NewSubmissionService(core *Core, validate *validator.Validate, logger zerolog.Logger) SubmissionService {
	return &submissionService{
		core:      core,
		validator: validate,
		logger:    logger.With().Str("component", "submission_service").Logger(),
	}
}

func (s *submissionService) Create(ctx context.Context, actor workflow.Actor, req dto.SubmissionCreateRequest) (dto.SubmissionResponse, error) {
	ctx, span := s.core.startSpan(ctx, "submission.create",
		attribute.String("submission.workflow", req.Workflow),
		attribute.Int64("actor.id", int64(actor.ID)),
	)
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		return dto.SubmissionResponse{}, failSpan(span, validationFailed(err), "validation_failed")
	}
	if actor.ID == 0 {
		return dto.SubmissionResponse{}, failSpan(span, &AuthorizationError{Reason: "an authenticated author is required"}, "unauthenticated")
	}

	def, err := workflow.Lookup(req.Workflow)
	if err != nil {
		return dto.SubmissionResponse{}, failSpan(span, &ValidationError{Field: "workflow", Reason: err.Error(), Err: err}, "unknown_workflow")
	}

	title := strings.TrimSpace(s.core.clean(req.Title))
	if title == "" {
		return dto.SubmissionResponse{}, failSpan(span, &ValidationError{Field: "title", Reason: "title is required"}, "validation_failed")
	}

	var created models.Submission
	_, err = s.core.run(ctx, func(tx repository.Store, fx *effects) error {
		now := s.core.now()
		created = models.Submission{
			Workflow:          string(def.Kind()),
			AuthorID:          actor.ID,
			OwnerID:           req.OwnerID,
			Title:             title,
			Description:       s.core.clean(req.Description),
			CurrentStage:      string(def.Initial()),
			LastStageChangeAt: &now,
		}
		if err := tx.Submissions().Create(ctx, &created); err != nil {
			return err
		}

		id := created.ID
		fx.audit(AuditEntry{
			ActorID:    actor.ID,
			ActorRole:  actor.PrimaryRole(),
			Action:     AuditSubmissionOpened,
			EntityType: EntitySubmission,
			EntityID:   &id,
			NewValues: map[string]interface{}{
				"workflow": created.Workflow,
				"title":    created.Title,
				"stage":    created.CurrentStage,
			},
		})
		return nil
	})
	if err != nil {
		return dto.SubmissionResponse{}, failSpan(span, err, "submission_create_failed")
	}

	span.SetAttributes(attribute.Int64("submission.id", int64(created.ID)))
	s.logger.Info().Uint("submission_id", created.ID).Str("workflow", created.Workflow).Msg("submission created")
	return dto.NewSubmissionResponse(created, s.available(def, created, actor)), nil
}

func (s *submissionService) Update(ctx context.Context, actor workflow.Actor, id uint, req dto.SubmissionUpdateRequest) (dto.SubmissionResponse, error) {
	ctx, span := s.core.startSpan(ctx, "submission.update", attribute.Int64("submission.id", int64(id)))
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		return dto.SubmissionResponse{}, failSpan(span, validationFailed(err), "validation_failed")
	}

	var (
		updated models.Submission
		def     *workflow.Definition
	)
	_, err := s.core.run(ctx, func(tx repository.Store, fx *effects) error {
		sub, err := tx.Submissions().GetForUpdate(ctx, id)
		if err != nil {
			return storeError(err, EntitySubmission, id)
		}
		def, err = workflow.Lookup(sub.Workflow)
		if err != nil {
			return err
		}

		if !sub.IsAuthoredBy(actor.ID) && !actor.HasRole(workflow.RoleAdmin) {
			return &AuthorizationError{ActorID: actor.ID, Reason: "only the author may edit the submission"}
		}
		stage := workflow.Stage(sub.CurrentStage)
		if err := def.EnsureMutable(stage, actor); err != nil {
			return transitionError(err, def, stage, stage, actor)
		}
		if def.IsTerminal(stage) {
			return &ValidationError{Field: "current_stage", Reason: fmt.Sprintf("submission in %s can no longer be edited", stage)}
		}

		old := map[string]interface{}{"title": sub.Title, "description": sub.Description}
		if req.Title != nil {
			title := strings.TrimSpace(s.core.clean(*req.Title))
			if title == "" {
				return &ValidationError{Field: "title", Reason: "title is required"}
			}
			sub.Title = title
		}
		if req.Description != nil {
			sub.Description = s.core.clean(*req.Description)
		}
		if err := tx.Submissions().Update(ctx, &sub); err != nil {
			return err
		}

		subID := sub.ID
		fx.audit(AuditEntry{
			ActorID:    actor.ID,
			ActorRole:  actor.PrimaryRole(),
			Action:     AuditSubmissionEdited,
			EntityType: EntitySubmission,
			EntityID:   &subID,
			OldValues:  old,
			NewValues:  map[string]interface{}{"title": sub.Title, "description": sub.Description},
		})
		updated = sub
		return nil
	})
	if err != nil {
		return dto.SubmissionResponse{}, failSpan(span, err, "submission_update_failed")
	}

	return dto.NewSubmissionResponse(updated, s.available(def, updated, actor)), nil
}

func (s *submissionService) Get(ctx context.Context, actor workflow.Actor, id uint) (dto.SubmissionResponse, error) {
	sub, err := s.core.store.Submissions().GetByID(ctx, id)
	if err != nil {
		return dto.SubmissionResponse{}, storeError(err, EntitySubmission, id)
	}
	def, err := workflow.Lookup(sub.Workflow)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	return dto.NewSubmissionResponse(sub, s.available(def, sub, actor)), nil
}

func (s *submissionService) List(ctx context.Context, actor workflow.Actor, req dto.SubmissionListRequest) (dto.SubmissionListResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.SubmissionListResponse{}, validationFailed(err)
	}

	page := req.Page
	if page <= 0 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	filter := repository.SubmissionFilter{
		Workflow: strings.ToLower(req.Workflow),
		Stage:    strings.ToLower(req.Stage),
		Page:     page,
		PageSize: pageSize,
	}
	if req.AuthorID > 0 {
		authorID := req.AuthorID
		filter.AuthorID = &authorID
	}

	items, total, err := s.core.store.Submissions().List(ctx, filter)
	if err != nil {
		return dto.SubmissionListResponse{}, err
	}

	out := make([]dto.SubmissionResponse, 0, len(items))
	for _, item := range items {
		def, err := workflow.Lookup(item.Workflow)
		if err != nil {
			s.logger.Warn().Uint("submission_id", item.ID).Str("workflow", item.Workflow).Msg("skipping submission with unknown workflow")
			continue
		}
		out = append(out, dto.NewSubmissionResponse(item, s.available(def, item, actor)))
	}

	return dto.SubmissionListResponse{Items: out, Pagination: dto.NewPaginationMeta(page, pageSize, total)}, nil
}

func (s *submissionService) History(ctx context.Context, id uint) ([]dto.StageTransitionResponse, error) {
	if _, err := s.core.store.Submissions().GetByID(ctx, id); err != nil {
		return nil, storeError(err, EntitySubmission, id)
	}
	items, err := s.core.store.Transitions().ListBySubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewStageTransitionResponses(items), nil
}

func (s *submissionService) Transition(ctx context.Context, actor workflow.Actor, id uint, req dto.TransitionRequest) (dto.SubmissionResponse, error) {
	ctx, span := s.core.startSpan(ctx, "submission.transition",
		attribute.Int64("submission.id", int64(id)),
		attribute.String("submission.target_stage", req.TargetStage),
		attribute.Int64("actor.id", int64(actor.ID)),
	)
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		return dto.SubmissionResponse{}, failSpan(span, validationFailed(err), "validation_failed")
	}
	target := workflow.Stage(strings.ToLower(strings.TrimSpace(req.TargetStage)))
	if target == workflow.StageWinner {
		return dto.SubmissionResponse{}, failSpan(span, &ValidationError{Field: "target_stage", Reason: "winners are declared through the winner endpoint"}, "validation_failed")
	}

	var (
		moved models.Submission
		def   *workflow.Definition
	)
	_, err := s.core.run(ctx, func(tx repository.Store, fx *effects) error {
		sub, err := tx.Submissions().GetForUpdate(ctx, id)
		if err != nil {
			return storeError(err, EntitySubmission, id)
		}
		def, err = workflow.Lookup(sub.Workflow)
		if err != nil {
			return err
		}

		if err := s.core.applyTransition(ctx, tx, fx, transitionInput{
			def:     def,
			sub:     &sub,
			target:  target,
			actor:   actor,
			comment: s.core.clean(req.Comment),
		}); err != nil {
			return err
		}
		moved = sub
		return nil
	})
	if err != nil {
		return dto.SubmissionResponse{}, failSpan(span, err, "transition_failed")
	}

	s.logger.Info().
		Uint("submission_id", moved.ID).
		Uint("actor_id", actor.ID).
		Str("stage", moved.CurrentStage).
		Msg("submission transitioned")
	return dto.NewSubmissionResponse(moved, s.available(def, moved, actor)), nil
}

func (s *submissionService) DeclareWinner(ctx context.Context, actor workflow.Actor, id uint, req dto.WinnerRequest) (dto.SubmissionResponse, error) {
	ctx, span := s.core.startSpan(ctx, "submission.declare_winner",
		attribute.Int64("submission.id", int64(id)),
		attribute.Int("winner.rank", req.Rank),
	)
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		return dto.SubmissionResponse{}, failSpan(span, validationFailed(err), "validation_failed")
	}

	var (
		winner models.Submission
		def    *workflow.Definition
	)
	_, err := s.core.run(ctx, func(tx repository.Store, fx *effects) error {
		sub, err := tx.Submissions().GetForUpdate(ctx, id)
		if err != nil {
			return storeError(err, EntitySubmission, id)
		}
		def, err = workflow.Lookup(sub.Workflow)
		if err != nil {
			return err
		}
		if def.Kind() != workflow.KindChallenge {
			return &ValidationError{Field: "workflow", Reason: "only challenge entries can win"}
		}

		rank := req.Rank
		sub.WinnerRank = &rank
		if err := s.core.applyTransition(ctx, tx, fx, transitionInput{
			def:     def,
			sub:     &sub,
			target:  workflow.StageWinner,
			actor:   actor,
			comment: s.core.clean(req.Comment),
			stats:   map[string]interface{}{"rank": rank},
		}); err != nil {
			return err
		}

		if _, err := s.core.award(ctx, tx, fx, award{
			UserID:      sub.AuthorID,
			Action:      gamification.ActionChallengeWinner,
			Points:      s.core.points.WinnerPoints(rank),
			Description: fmt.Sprintf("Challenge winner (rank %d): %s", rank, sub.Title),
			Related:     relatedSubmission(sub.ID),
			Key:         fmt.Sprintf("challenge_winner:%d", sub.ID),
		}); err != nil {
			return err
		}
		winner = sub
		return nil
	})
	if err != nil {
		return dto.SubmissionResponse{}, failSpan(span, err, "declare_winner_failed")
	}

	return dto.NewSubmissionResponse(winner, s.available(def, winner, actor)), nil
}

// available lists the stages the actor could move the submission to right now.
func (s *submissionService) available(def *workflow.Definition, sub models.Submission, actor workflow.Actor) []string {
	from := workflow.Stage(sub.CurrentStage)
	out := make([]string, 0)
	for _, target := range def.Targets(from) {
		req := workflow.Request{From: from, To: target, AuthorID: sub.AuthorID, Actor: actor}
		if def.Check(req) != nil {
			continue
		}
		if def.IsReviewStage(target) && sub.IsOwnedBy(actor.ID) {
			continue
		}
		out = append(out, string(target))
	}
	return out
}
