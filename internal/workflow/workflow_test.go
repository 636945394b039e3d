package workflow

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIdeaWorkflowHappyPath(t *testing.T) {
	def := Idea()
	author := NewActor(1, "employee")
	manager := NewActor(2, "manager")
	sme := NewActor(3, "sme")
	board := NewActor(4, "board")

	steps := []struct {
		to    Stage
		actor Actor
	}{
		{StageSubmitted, author},
		{StageManagerReview, manager},
		{StageSMEReview, manager},
		{StageBoardReview, sme},
		{StageApproved, board},
		{StageImplementation, manager},
		{StageCompleted, manager},
	}

	current := def.Initial()
	for _, step := range steps {
		err := def.Check(Request{From: current, To: step.to, AuthorID: author.ID, Actor: step.actor})
		require.NoError(t, err, "%s -> %s", current, step.to)
		current = step.to
	}
	require.True(t, def.IsTerminal(current))
}

func TestCheckRejectsMissingEdge(t *testing.T) {
	err := Idea().Check(Request{From: StageDraft, To: StageApproved, AuthorID: 1, Actor: NewActor(9, "admin")})
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCheckRejectsUnknownStage(t *testing.T) {
	err := Challenge().Check(Request{From: StageDraft, To: StageBoardReview, AuthorID: 1, Actor: NewActor(9, "admin")})
	require.ErrorIs(t, err, ErrUnknownStage)
}

func TestCheckRejectsWrongRole(t *testing.T) {
	err := Idea().Check(Request{From: StageSubmitted, To: StageManagerReview, AuthorID: 1, Actor: NewActor(2, "sme")})
	require.ErrorIs(t, err, ErrRoleNotAllowed)
}

func TestCheckSelfReviewBan(t *testing.T) {
	err := Idea().Check(Request{From: StageSubmitted, To: StageManagerReview, AuthorID: 2, Actor: NewActor(2, "manager")})
	require.ErrorIs(t, err, ErrSelfReview)

	err = Idea().Check(Request{From: StageSubmitted, To: StageManagerReview, AuthorID: 2, Actor: NewActor(2, "admin")})
	require.ErrorIs(t, err, ErrSelfReview)
}

func TestCheckAuthorOnlySubmit(t *testing.T) {
	err := Idea().Check(Request{From: StageDraft, To: StageSubmitted, AuthorID: 1, Actor: NewActor(5, "employee")})
	require.ErrorIs(t, err, ErrAuthorOnly)

	err = Idea().Check(Request{From: StageDraft, To: StageSubmitted, AuthorID: 1, Actor: NewActor(5, "admin")})
	require.NoError(t, err)
}

func TestCheckLocksUnprivilegedActorsDuringReview(t *testing.T) {
	err := Idea().Check(Request{From: StageManagerReview, To: StageRejected, AuthorID: 1, Actor: NewActor(1, "employee")})
	require.ErrorIs(t, err, ErrLocked)

	require.ErrorIs(t, Idea().EnsureMutable(StageCollaboration, NewActor(1, "employee")), ErrLocked)
	require.NoError(t, Idea().EnsureMutable(StageCollaboration, NewActor(2, "manager")))
	require.NoError(t, Idea().EnsureMutable(StageDraft, NewActor(1, "employee")))
}

func TestSystemActorDrivesAutomaticEdges(t *testing.T) {
	err := Idea().Check(Request{From: StageBoardReview, To: StageApproved, AuthorID: 1, Actor: System()})
	require.NoError(t, err)

	err = Idea().Check(Request{From: StageSubmitted, To: StageManagerReview, AuthorID: 1, Actor: System()})
	require.ErrorIs(t, err, ErrRoleNotAllowed)
}

func TestNeedsRevisionHasSingleReturnPath(t *testing.T) {
	for _, def := range []*Definition{Idea(), Challenge()} {
		require.Equal(t, []Stage{StageDraft}, def.Targets(StageNeedsRevision), string(def.Kind()))
	}
}

func TestTerminalOutcomesCanBeArchived(t *testing.T) {
	for _, def := range []*Definition{Idea(), Challenge()} {
		for _, stage := range def.Stages() {
			if !def.IsTerminal(stage) || stage == StageArchived {
				continue
			}
			roles, ok := def.AllowedRoles(stage, StageArchived)
			require.True(t, ok, "%s: %s should be archivable", def.Kind(), stage)
			require.Contains(t, roles, RoleAdmin)
		}
	}
}

func TestRandomWalksOnlyFollowTableEdges(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	actors := []Actor{
		NewActor(1, "employee"),
		NewActor(2, "manager"),
		NewActor(3, "sme"),
		NewActor(4, "board"),
		NewActor(5, "challenge_manager"),
		NewActor(6, "judge"),
		NewActor(7, "admin"),
		System(),
	}

	for _, def := range []*Definition{Idea(), Challenge()} {
		stages := def.Stages()
		for walk := 0; walk < 200; walk++ {
			current := def.Initial()
			for step := 0; step < 30; step++ {
				target := stages[rng.Intn(len(stages))]
				actor := actors[rng.Intn(len(actors))]
				if err := def.Check(Request{From: current, To: target, AuthorID: 1, Actor: actor}); err != nil {
					continue
				}
				_, ok := def.AllowedRoles(current, target)
				require.True(t, ok)
				current = target
			}
			require.True(t, def.HasStage(current))
		}
	}
}

func TestLookup(t *testing.T) {
	def, err := Lookup(" Idea ")
	require.NoError(t, err)
	require.Equal(t, KindIdea, def.Kind())

	_, err = Lookup("grant")
	require.ErrorIs(t, err, ErrUnknownWorkflow)
}
