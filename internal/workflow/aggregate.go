package workflow

import "math"

// Outcome is the automatic decision derived from a set of reviews.
type Outcome string

const (
	// OutcomeNone means the reviews do not support a decision yet.
	OutcomeNone Outcome = ""
	// OutcomeApprove moves the submission to the stage's approval target.
	OutcomeApprove Outcome = "approve"
	// OutcomeReject moves the submission to rejected.
	OutcomeReject Outcome = "reject"
	// OutcomeRevise sends the submission back for revision.
	OutcomeRevise Outcome = "needs_revision"
)

// Policy holds the tuning knobs of the auto-decision.
type Policy struct {
	MinReviews       int
	ApproveThreshold float64
	RejectThreshold  float64
}

// DefaultPolicy returns quorum 2 with 70/50 score cut-offs.
func DefaultPolicy() Policy {
	return Policy{MinReviews: 2, ApproveThreshold: 70, RejectThreshold: 50}
}

// Vote is the part of a review the aggregation looks at.
type Vote struct {
	Decision string
	Score    *float64
}

// Stats summarises the completed reviews of a submission at one stage.
// AverageScore is rounded to two decimals for display; Decide compares the
// unrounded mean.
type Stats struct {
	Total        int     `json:"total"`
	Approvals    int     `json:"approvals"`
	Rejections   int     `json:"rejections"`
	Revisions    int     `json:"revisions"`
	Scored       int     `json:"scored"`
	AverageScore float64 `json:"average_score"`

	mean float64
}

// Map renders the statistics for audit payloads.
func (s Stats) Map() map[string]interface{} {
	return map[string]interface{}{
		"total":         s.Total,
		"approvals":     s.Approvals,
		"rejections":    s.Rejections,
		"revisions":     s.Revisions,
		"scored":        s.Scored,
		"average_score": s.AverageScore,
	}
}

// Tally counts decided votes. Pending votes are ignored.
func Tally(votes []Vote) Stats {
	var stats Stats
	var sum float64
	for _, vote := range votes {
		switch vote.Decision {
		case "approve":
			stats.Approvals++
		case "reject":
			stats.Rejections++
		case "needs_revision":
			stats.Revisions++
		default:
			continue
		}
		stats.Total++
		if vote.Score != nil {
			sum += *vote.Score
			stats.Scored++
		}
	}
	if stats.Scored > 0 {
		stats.mean = sum / float64(stats.Scored)
		stats.AverageScore = math.Round(stats.mean*100) / 100
	}
	return stats
}

// Decide applies the policy to the statistics. Ambiguous or tied results defer.
// Without any scored review every score comparison fails, so only a clear
// rejection majority decides.
func Decide(stats Stats, policy Policy) Outcome {
	minimum := policy.MinReviews
	if minimum <= 0 {
		minimum = 1
	}
	if stats.Total < minimum {
		return OutcomeNone
	}

	scored := stats.Scored > 0
	mean := stats.mean
	switch {
	case stats.Approvals > stats.Rejections && scored && mean >= policy.ApproveThreshold:
		return OutcomeApprove
	case stats.Rejections > stats.Approvals || (scored && mean < policy.RejectThreshold):
		return OutcomeReject
	case stats.Revisions > 0 && scored && mean >= policy.RejectThreshold:
		return OutcomeRevise
	default:
		return OutcomeNone
	}
}

// Target resolves the stage an outcome leads to from a review stage.
func (d *Definition) Target(stage Stage, outcome Outcome) (Stage, bool) {
	rs, ok := d.review[stage]
	if !ok {
		return "", false
	}
	switch outcome {
	case OutcomeApprove:
		return rs.OnApprove, true
	case OutcomeReject:
		return StageRejected, true
	case OutcomeRevise:
		return StageNeedsRevision, true
	default:
		return "", false
	}
}
