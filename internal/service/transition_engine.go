package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-innovation-api/internal/gamification"
	"github.com/noah-isme/gema-innovation-api/internal/models"
	"github.com/noah-isme/gema-innovation-api/internal/observability"
	"github.com/noah-isme/gema-innovation-api/internal/repository"
	"github.com/noah-isme/gema-innovation-api/internal/workflow"
)

type transitionInput struct {
	def     *workflow.Definition
	sub     *models.Submission
	target  workflow.Stage
	actor   workflow.Actor
	comment string
	auto    bool
	stats   map[string]interface{}
}

// applyTransition moves a locked submission to the target stage and records
// everything the move implies inside the caller's transaction.
func (c *Core) applyTransition(ctx context.Context, tx repository.Store, fx *effects, in transitionInput) error {
	sub := in.sub
	from := workflow.Stage(sub.CurrentStage)

	err := in.def.Check(workflow.Request{From: from, To: in.target, AuthorID: sub.AuthorID, Actor: in.actor})
	if err != nil {
		return transitionError(err, in.def, from, in.target, in.actor)
	}
	if in.def.IsReviewStage(in.target) && !in.actor.IsSystem() && sub.IsOwnedBy(in.actor.ID) {
		return &AuthorizationError{ActorID: in.actor.ID, Reason: "owners cannot move their own submission into review", Err: workflow.ErrSelfReview}
	}

	now := c.now()
	switch in.target {
	case workflow.StageSubmitted:
		sub.SubmittedAt = &now
		sub.ReviewRound++
	case workflow.StageCollaboration:
		sub.CollaborationEnabled = true
	case workflow.StageImplementation:
		sub.ImplementationStartedAt = &now
	case workflow.StageCompleted:
		sub.CompletedAt = &now
		sub.CollaborationEnabled = false
	case workflow.StageDraft:
		sub.SubmittedAt = nil
		sub.CollaborationEnabled = false
	}
	sub.CurrentStage = string(in.target)
	sub.LastStageChangeAt = &now

	if err := tx.Submissions().Update(ctx, sub); err != nil {
		return err
	}

	if in.def.IsReviewStage(in.target) {
		if err := c.openReview(ctx, tx, sub, in.target, in.actor); err != nil {
			return err
		}
	}

	transition := models.StageTransition{
		SubmissionID: sub.ID,
		FromStage:    string(from),
		ToStage:      string(in.target),
		ActorID:      in.actor.ID,
		Comment:      in.comment,
		Automatic:    in.auto,
		CreatedAt:    now,
	}
	if len(in.stats) > 0 {
		transition.Stats = datatypes.JSONMap(in.stats)
	}
	if err := tx.Transitions().Create(ctx, &transition); err != nil {
		return err
	}

	action := AuditStatusChange
	if in.auto {
		action = AuditAutoStatusChange
	}
	newValues := map[string]interface{}{"stage": string(in.target)}
	if in.comment != "" {
		newValues["comment"] = in.comment
	}
	if len(in.stats) > 0 {
		newValues["stats"] = in.stats
	}
	subID := sub.ID
	fx.audit(AuditEntry{
		ActorID:    in.actor.ID,
		ActorRole:  in.actor.PrimaryRole(),
		Action:     action,
		EntityType: EntitySubmission,
		EntityID:   &subID,
		OldValues:  map[string]interface{}{"stage": string(from)},
		NewValues:  newValues,
	})

	if in.target == workflow.StageSubmitted {
		if err := c.notifyReviewers(ctx, tx, fx, in.def, sub); err != nil {
			return err
		}
	}

	if in.def.Kind() == workflow.KindIdea {
		if err := c.awardIdeaMilestone(ctx, tx, fx, sub, in.target, now); err != nil {
			return err
		}
	}

	if in.actor.ID != sub.AuthorID {
		fx.notify(NotificationMessage{
			UserID:  sub.AuthorID,
			Type:    NotificationStageChanged,
			Message: fmt.Sprintf("%q moved from %s to %s", sub.Title, from, in.target),
			Payload: map[string]interface{}{
				"submission_id": sub.ID,
				"from":          string(from),
				"to":            string(in.target),
				"automatic":     in.auto,
			},
		})
	}

	kind := string(in.def.Kind())
	mode := "manual"
	if in.auto {
		mode = "auto"
	}
	fx.onCommit(func(context.Context) {
		observability.Transitions().WithLabelValues(kind, string(from), string(in.target), mode).Inc()
	})
	return nil
}

// openReview creates a pending review for the actor that moved the submission
// into a review stage, provided they may review it there.
func (c *Core) openReview(ctx context.Context, tx repository.Store, sub *models.Submission, stage workflow.Stage, actor workflow.Actor) error {
	if actor.IsSystem() || sub.IsAuthoredBy(actor.ID) || sub.IsOwnedBy(actor.ID) {
		return nil
	}
	def, err := workflow.Lookup(sub.Workflow)
	if err != nil {
		return err
	}
	rs, ok := def.ReviewStage(stage)
	if !ok || !actor.HasAnyRole(rs.Reviewers) {
		return nil
	}

	_, err = tx.Reviews().Get(ctx, sub.ID, actor.ID, string(stage), sub.ReviewRound)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	return tx.Reviews().Create(ctx, &models.Review{
		SubmissionID: sub.ID,
		ReviewerID:   actor.ID,
		Stage:        string(stage),
		Round:        sub.ReviewRound,
		Decision:     models.ReviewDecisionPending,
		CreatedAt:    c.now(),
	})
}

func (c *Core) notifyReviewers(ctx context.Context, tx repository.Store, fx *effects, def *workflow.Definition, sub *models.Submission) error {
	rs, ok := def.ReviewStage(def.EntryReviewStage())
	if !ok {
		return nil
	}
	roles := make([]string, 0, len(rs.Reviewers))
	for _, role := range rs.Reviewers {
		roles = append(roles, string(role))
	}

	reviewers, err := tx.Users().IDsWithRoles(ctx, roles)
	if err != nil {
		return err
	}
	for _, reviewerID := range reviewers {
		if sub.IsAuthoredBy(reviewerID) || sub.IsOwnedBy(reviewerID) {
			continue
		}
		fx.notify(NotificationMessage{
			UserID:  reviewerID,
			Type:    NotificationSubmissionReady,
			Message: fmt.Sprintf("%q is waiting for review", sub.Title),
			Payload: map[string]interface{}{
				"submission_id": sub.ID,
				"workflow":      sub.Workflow,
				"stage":         string(def.EntryReviewStage()),
			},
		})
	}
	return nil
}

func (c *Core) awardIdeaMilestone(ctx context.Context, tx repository.Store, fx *effects, sub *models.Submission, stage workflow.Stage, at time.Time) error {
	var a award
	switch stage {
	case workflow.StageSubmitted:
		a = award{
			Action:      gamification.ActionIdeaSubmitted,
			Points:      c.points.IdeaSubmitted,
			Description: "Idea submitted: " + sub.Title,
			Key:         fmt.Sprintf("idea_submitted:%d", sub.ID),
		}
	case workflow.StageApproved:
		a = award{
			Action:      gamification.ActionIdeaApproved,
			Points:      c.points.IdeaApproved,
			Description: "Idea approved: " + sub.Title,
			Key:         fmt.Sprintf("idea_approved:%d", sub.ID),
		}
	case workflow.StageImplementation:
		a = award{
			Action:      gamification.ActionIdeaImplemented,
			Points:      c.points.IdeaImplemented,
			Description: "Idea implemented: " + sub.Title,
			Key:         fmt.Sprintf("idea_implemented:%d", sub.ID),
		}
	default:
		return nil
	}
	a.UserID = sub.AuthorID
	a.Related = relatedSubmission(sub.ID)

	if _, err := c.award(ctx, tx, fx, a); err != nil {
		return err
	}
	if stage == workflow.StageSubmitted {
		return c.awardWeekend(ctx, tx, fx, sub.AuthorID, at)
	}
	return nil
}
