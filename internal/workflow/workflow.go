// Package workflow holds the stage transition tables for idea and challenge
// submissions together with the rules deciding who may move a submission
// between two stages.
package workflow

import (
	"errors"
	"sort"
	"strings"
)

// Kind names a workflow instance.
type Kind string

const (
	// KindIdea is the idea workflow.
	KindIdea Kind = "idea"
	// KindChallenge is the challenge entry workflow.
	KindChallenge Kind = "challenge"
)

// Stage is a node in a workflow's transition table.
type Stage string

// Stage names shared by both workflows. Side effects are keyed on them.
const (
	StageDraft          Stage = "draft"
	StageSubmitted      Stage = "submitted"
	StageManagerReview  Stage = "manager_review"
	StageSMEReview      Stage = "sme_review"
	StageBoardReview    Stage = "board_review"
	StageCollaboration  Stage = "collaboration"
	StageApproved       Stage = "approved"
	StageNeedsRevision  Stage = "needs_revision"
	StageRejected       Stage = "rejected"
	StageImplementation Stage = "implementation"
	StageCompleted      Stage = "completed"
	StageArchived       Stage = "archived"
	StageScreening      Stage = "screening"
	StageJudging        Stage = "judging"
	StageShortlisted    Stage = "shortlisted"
	StageWinner         Stage = "winner"
)

var (
	// ErrUnknownWorkflow is returned for a workflow name without a table.
	ErrUnknownWorkflow = errors.New("unknown workflow")
	// ErrUnknownStage is returned when a stage does not belong to the workflow.
	ErrUnknownStage = errors.New("unknown stage")
	// ErrInvalidTransition is returned when the edge is missing from the table.
	ErrInvalidTransition = errors.New("transition not allowed")
	// ErrRoleNotAllowed is returned when the actor holds none of the edge roles.
	ErrRoleNotAllowed = errors.New("role not allowed for transition")
	// ErrAuthorOnly is returned when an author-only edge is requested by someone else.
	ErrAuthorOnly = errors.New("only the author may perform this transition")
	// ErrSelfReview is returned when an author tries to push their own work into review.
	ErrSelfReview = errors.New("authors cannot move their own submission into review")
	// ErrLocked is returned when an unprivileged actor touches a submission under active review.
	ErrLocked = errors.New("submission is locked while under review")
)

type edge struct {
	from Stage
	to   Stage
}

type rule struct {
	roles      []Role
	authorOnly bool
}

// ReviewStage describes how reviews recorded at a stage are handled.
type ReviewStage struct {
	Reviewers []Role
	OnApprove Stage
}

// Definition is an immutable workflow transition table.
type Definition struct {
	kind     Kind
	initial  Stage
	entry    Stage
	rules    map[edge]rule
	review   map[Stage]ReviewStage
	active   map[Stage]struct{}
	terminal map[Stage]struct{}
	stages   map[Stage]struct{}
}

// Request describes a transition attempt.
type Request struct {
	From     Stage
	To       Stage
	AuthorID uint
	Actor    Actor
}

// Kind returns the workflow name.
func (d *Definition) Kind() Kind { return d.kind }

// Initial returns the stage new submissions start in.
func (d *Definition) Initial() Stage { return d.initial }

// EntryReviewStage is the first review stage reached after submission.
func (d *Definition) EntryReviewStage() Stage { return d.entry }

// HasStage reports whether the stage belongs to the workflow.
func (d *Definition) HasStage(stage Stage) bool {
	_, ok := d.stages[stage]
	return ok
}

// Stages lists every stage in a stable order.
func (d *Definition) Stages() []Stage {
	out := make([]Stage, 0, len(d.stages))
	for stage := range d.stages {
		out = append(out, stage)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Targets lists the stages directly reachable from the given stage.
func (d *Definition) Targets(from Stage) []Stage {
	out := make([]Stage, 0)
	for e := range d.rules {
		if e.from == from {
			out = append(out, e.to)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AllowedRoles returns the roles permitted on the edge and whether the edge exists.
func (d *Definition) AllowedRoles(from, to Stage) ([]Role, bool) {
	r, ok := d.rules[edge{from: from, to: to}]
	if !ok {
		return nil, false
	}
	return append([]Role(nil), r.roles...), true
}

// IsReviewStage reports whether reviews are collected at the stage.
func (d *Definition) IsReviewStage(stage Stage) bool {
	_, ok := d.review[stage]
	return ok
}

// ReviewStage returns the review configuration for the stage.
func (d *Definition) ReviewStage(stage Stage) (ReviewStage, bool) {
	rs, ok := d.review[stage]
	return rs, ok
}

// IsActive reports whether the stage locks the submission against unprivileged actors.
func (d *Definition) IsActive(stage Stage) bool {
	_, ok := d.active[stage]
	return ok
}

// IsTerminal reports whether the stage is a final outcome.
func (d *Definition) IsTerminal(stage Stage) bool {
	_, ok := d.terminal[stage]
	return ok
}

// EnsureMutable rejects unprivileged actors while a submission is under active review.
func (d *Definition) EnsureMutable(stage Stage, actor Actor) error {
	if d.IsActive(stage) && !actor.IsPrivileged() {
		return ErrLocked
	}
	return nil
}

// Check validates a transition request against the table and the actor.
func (d *Definition) Check(req Request) error {
	if !d.HasStage(req.From) || !d.HasStage(req.To) {
		return ErrUnknownStage
	}
	if err := d.EnsureMutable(req.From, req.Actor); err != nil {
		return err
	}

	r, ok := d.rules[edge{from: req.From, to: req.To}]
	if !ok {
		return ErrInvalidTransition
	}
	if !req.Actor.HasAnyRole(r.roles) {
		return ErrRoleNotAllowed
	}
	if r.authorOnly && req.Actor.ID != req.AuthorID && !req.Actor.HasRole(RoleAdmin) {
		return ErrAuthorOnly
	}
	if d.IsReviewStage(req.To) && !req.Actor.IsSystem() && req.Actor.ID == req.AuthorID {
		return ErrSelfReview
	}
	return nil
}

// Lookup resolves a workflow by name.
func Lookup(name string) (*Definition, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(name))) {
	case KindIdea:
		return ideaWorkflow, nil
	case KindChallenge:
		return challengeWorkflow, nil
	default:
		return nil, ErrUnknownWorkflow
	}
}

// Idea returns the idea workflow table.
func Idea() *Definition { return ideaWorkflow }

// Challenge returns the challenge workflow table.
func Challenge() *Definition { return challengeWorkflow }

type builder struct {
	def *Definition
}

func newBuilder(kind Kind, initial, entry Stage) *builder {
	return &builder{def: &Definition{
		kind:     kind,
		initial:  initial,
		entry:    entry,
		rules:    map[edge]rule{},
		review:   map[Stage]ReviewStage{},
		active:   map[Stage]struct{}{},
		terminal: map[Stage]struct{}{},
		stages:   map[Stage]struct{}{},
	}}
}

func (b *builder) allow(from, to Stage, roles ...Role) *builder {
	b.def.rules[edge{from: from, to: to}] = rule{roles: roles}
	b.def.stages[from] = struct{}{}
	b.def.stages[to] = struct{}{}
	return b
}

func (b *builder) allowAuthor(from, to Stage, roles ...Role) *builder {
	b.def.rules[edge{from: from, to: to}] = rule{roles: roles, authorOnly: true}
	b.def.stages[from] = struct{}{}
	b.def.stages[to] = struct{}{}
	return b
}

func (b *builder) reviewAt(stage Stage, onApprove Stage, reviewers ...Role) *builder {
	b.def.review[stage] = ReviewStage{Reviewers: reviewers, OnApprove: onApprove}
	b.def.active[stage] = struct{}{}
	return b
}

func (b *builder) locked(stages ...Stage) *builder {
	for _, stage := range stages {
		b.def.active[stage] = struct{}{}
	}
	return b
}

func (b *builder) terminal(stages ...Stage) *builder {
	for _, stage := range stages {
		b.def.terminal[stage] = struct{}{}
	}
	return b
}

func (b *builder) build() *Definition {
	return b.def
}

var contributors = []Role{RoleEmployee, RoleManager, RoleSME, RoleBoard, RoleChallengeManager, RoleJudge, RoleAdmin}

var ideaWorkflow = newBuilder(KindIdea, StageDraft, StageManagerReview).
	allowAuthor(StageDraft, StageSubmitted, contributors...).
	allow(StageSubmitted, StageManagerReview, RoleManager, RoleAdmin).
	allow(StageManagerReview, StageSMEReview, RoleManager, RoleAdmin, RoleSystem).
	allow(StageManagerReview, StageNeedsRevision, RoleManager, RoleAdmin, RoleSystem).
	allow(StageManagerReview, StageRejected, RoleManager, RoleAdmin, RoleSystem).
	allow(StageSMEReview, StageBoardReview, RoleSME, RoleAdmin, RoleSystem).
	allow(StageSMEReview, StageNeedsRevision, RoleSME, RoleAdmin, RoleSystem).
	allow(StageSMEReview, StageRejected, RoleSME, RoleAdmin, RoleSystem).
	allow(StageBoardReview, StageApproved, RoleBoard, RoleAdmin, RoleSystem).
	allow(StageBoardReview, StageNeedsRevision, RoleBoard, RoleAdmin, RoleSystem).
	allow(StageBoardReview, StageRejected, RoleBoard, RoleAdmin, RoleSystem).
	allow(StageApproved, StageCollaboration, RoleManager, RoleAdmin).
	allow(StageApproved, StageImplementation, RoleManager, RoleAdmin).
	allow(StageCollaboration, StageImplementation, RoleManager, RoleAdmin).
	allow(StageImplementation, StageCompleted, RoleManager, RoleAdmin).
	allowAuthor(StageNeedsRevision, StageDraft, contributors...).
	allow(StageRejected, StageArchived, RoleAdmin).
	allow(StageCompleted, StageArchived, RoleAdmin).
	reviewAt(StageManagerReview, StageSMEReview, RoleManager, RoleAdmin).
	reviewAt(StageSMEReview, StageBoardReview, RoleSME, RoleAdmin).
	reviewAt(StageBoardReview, StageApproved, RoleBoard, RoleAdmin).
	locked(StageCollaboration).
	terminal(StageRejected, StageCompleted, StageArchived).
	build()

var challengeWorkflow = newBuilder(KindChallenge, StageDraft, StageScreening).
	allowAuthor(StageDraft, StageSubmitted, contributors...).
	allow(StageSubmitted, StageScreening, RoleChallengeManager, RoleAdmin).
	allow(StageScreening, StageJudging, RoleChallengeManager, RoleAdmin, RoleSystem).
	allow(StageScreening, StageNeedsRevision, RoleChallengeManager, RoleAdmin, RoleSystem).
	allow(StageScreening, StageRejected, RoleChallengeManager, RoleAdmin, RoleSystem).
	allow(StageJudging, StageShortlisted, RoleJudge, RoleAdmin, RoleSystem).
	allow(StageJudging, StageNeedsRevision, RoleJudge, RoleAdmin, RoleSystem).
	allow(StageJudging, StageRejected, RoleJudge, RoleAdmin, RoleSystem).
	allow(StageShortlisted, StageWinner, RoleChallengeManager, RoleAdmin).
	allow(StageShortlisted, StageRejected, RoleChallengeManager, RoleAdmin).
	allowAuthor(StageNeedsRevision, StageDraft, contributors...).
	allow(StageWinner, StageArchived, RoleAdmin).
	allow(StageRejected, StageArchived, RoleAdmin).
	reviewAt(StageScreening, StageJudging, RoleChallengeManager, RoleAdmin).
	reviewAt(StageJudging, StageShortlisted, RoleJudge, RoleAdmin).
	terminal(StageWinner, StageRejected, StageArchived).
	build()
