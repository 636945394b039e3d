package workflow

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func score(v float64) *float64 { return &v }

func TestDecideApprovesStrongConsensus(t *testing.T) {
	stats := Tally([]Vote{
		{Decision: "approve", Score: score(80)},
		{Decision: "approve", Score: score(75)},
	})
	require.Equal(t, 2, stats.Total)
	require.Equal(t, 77.5, stats.AverageScore)
	require.Equal(t, OutcomeApprove, Decide(stats, DefaultPolicy()))
}

func TestDecideWaitsForQuorum(t *testing.T) {
	stats := Tally([]Vote{{Decision: "approve", Score: score(95)}, {Decision: "pending"}})
	require.Equal(t, 1, stats.Total)
	require.Equal(t, OutcomeNone, Decide(stats, DefaultPolicy()))
}

func TestDecideRejects(t *testing.T) {
	cases := map[string][]Vote{
		"majority rejects": {
			{Decision: "reject", Score: score(65)},
			{Decision: "reject", Score: score(60)},
			{Decision: "approve", Score: score(90)},
		},
		"low average": {
			{Decision: "approve", Score: score(40)},
			{Decision: "needs_revision", Score: score(45)},
		},
	}
	for name, votes := range cases {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, OutcomeReject, Decide(Tally(votes), DefaultPolicy()))
		})
	}
}

func TestDecideRequestsRevision(t *testing.T) {
	stats := Tally([]Vote{
		{Decision: "needs_revision", Score: score(60)},
		{Decision: "approve", Score: score(62)},
		{Decision: "reject", Score: score(55)},
	})
	require.Equal(t, OutcomeRevise, Decide(stats, DefaultPolicy()))
}

func TestDecideDefersOnTies(t *testing.T) {
	stats := Tally([]Vote{
		{Decision: "approve", Score: score(85)},
		{Decision: "reject", Score: score(60)},
	})
	require.Equal(t, OutcomeNone, Decide(stats, DefaultPolicy()))

	stats = Tally([]Vote{
		{Decision: "approve", Score: score(65)},
		{Decision: "approve", Score: score(60)},
	})
	require.Equal(t, OutcomeNone, Decide(stats, DefaultPolicy()))
}

func TestDecideWithoutScoresOnlyRejectsOnMajority(t *testing.T) {
	require.Equal(t, OutcomeNone, Decide(Tally([]Vote{{Decision: "approve"}, {Decision: "approve"}}), DefaultPolicy()))
	require.Equal(t, OutcomeReject, Decide(Tally([]Vote{{Decision: "reject"}, {Decision: "reject"}}), DefaultPolicy()))
}

func TestDecideHonoursConfiguredPolicy(t *testing.T) {
	policy := Policy{MinReviews: 3, ApproveThreshold: 80, RejectThreshold: 40}
	votes := []Vote{
		{Decision: "approve", Score: score(80)},
		{Decision: "approve", Score: score(75)},
	}
	require.Equal(t, OutcomeNone, Decide(Tally(votes), policy))

	votes = append(votes, Vote{Decision: "approve", Score: score(90)})
	require.Equal(t, OutcomeApprove, Decide(Tally(votes), policy))
}

func TestDecideIsOrderIndependent(t *testing.T) {
	votes := []Vote{
		{Decision: "approve", Score: score(71)},
		{Decision: "reject", Score: score(52)},
		{Decision: "needs_revision", Score: score(66)},
		{Decision: "approve", Score: score(88)},
		{Decision: "pending"},
	}
	expectedStats := Tally(votes)
	expected := Decide(expectedStats, DefaultPolicy())

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		shuffled := append([]Vote(nil), votes...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		stats := Tally(shuffled)
		require.Equal(t, expectedStats, stats)
		require.Equal(t, expected, Decide(stats, DefaultPolicy()))
	}
}

func TestTargetResolvesPerStage(t *testing.T) {
	to, ok := Idea().Target(StageManagerReview, OutcomeApprove)
	require.True(t, ok)
	require.Equal(t, StageSMEReview, to)

	to, ok = Idea().Target(StageBoardReview, OutcomeApprove)
	require.True(t, ok)
	require.Equal(t, StageApproved, to)

	to, ok = Challenge().Target(StageJudging, OutcomeRevise)
	require.True(t, ok)
	require.Equal(t, StageNeedsRevision, to)

	_, ok = Idea().Target(StageDraft, OutcomeApprove)
	require.False(t, ok)
}

func TestDecideComparesUnroundedMean(t *testing.T) {
	// the mean is 69.996: it displays as 70 but is below the cut-off
	stats := Tally([]Vote{
		{Decision: "approve", Score: score(69.992)},
		{Decision: "approve", Score: score(70)},
	})
	require.Equal(t, 70.0, stats.AverageScore)
	require.NotEqual(t, OutcomeApprove, Decide(stats, DefaultPolicy()))

	stats = Tally([]Vote{
		{Decision: "approve", Score: score(70)},
		{Decision: "approve", Score: score(70)},
	})
	require.Equal(t, OutcomeApprove, Decide(stats, DefaultPolicy()))
}
