// Package gamification contains the pure rules behind the points ledger:
// the points catalog, streak arithmetic, bonus schedules and the
// achievement catalog.
package gamification

import (
	"sort"
	"time"
)

// ActionType enumerates the reasons points are awarded.
type ActionType string

const (
	ActionSignup              ActionType = "signup"
	ActionDailyLogin          ActionType = "daily_login"
	ActionStreakBonus         ActionType = "streak_bonus"
	ActionWeekendBonus        ActionType = "weekend_bonus"
	ActionIdeaSubmitted       ActionType = "idea_submitted"
	ActionIdeaApproved        ActionType = "idea_approved"
	ActionIdeaImplemented     ActionType = "idea_implemented"
	ActionReviewCompleted     ActionType = "review_completed"
	ActionEarlyReview         ActionType = "early_review_bonus"
	ActionFirstHalfReviewer   ActionType = "first_half_reviewer_bonus"
	ActionCollaborationJoined ActionType = "collaboration_joined"
	ActionInvitationAccepted  ActionType = "invitation_accepted"
	ActionChallengeWinner     ActionType = "challenge_winner"
	ActionAchievementUnlock   ActionType = "achievement_unlock"
)

// StreakTier is the total daily reward once a streak reaches Days.
type StreakTier struct {
	Days   int `mapstructure:"days"`
	Reward int `mapstructure:"reward"`
}

// PointsCatalog holds the point values of every action. It is loaded once at start.
type PointsCatalog struct {
	Signup                 int           `mapstructure:"signup"`
	DailyLogin             int           `mapstructure:"daily_login"`
	WeekendBonus           int           `mapstructure:"weekend_bonus"`
	IdeaSubmitted          int           `mapstructure:"idea_submitted"`
	IdeaApproved           int           `mapstructure:"idea_approved"`
	IdeaImplemented        int           `mapstructure:"idea_implemented"`
	ReviewCompleted        int           `mapstructure:"review_completed"`
	EarlyReviewBonus       int           `mapstructure:"early_review_bonus"`
	EarlyReviewWindow      time.Duration `mapstructure:"early_review_window"`
	FirstHalfReviewerBonus int           `mapstructure:"first_half_reviewer_bonus"`
	CollaborationJoined    int           `mapstructure:"collaboration_joined"`
	InvitationAccepted     int           `mapstructure:"invitation_accepted"`
	ChallengeWinnerBase    int           `mapstructure:"challenge_winner_base"`
	StreakTiers            []StreakTier  `mapstructure:"streak_tiers"`
	// WinnerRankPercent maps a rank to its share of the winner base; other ranks use WinnerDefaultPercent.
	WinnerRankPercent    map[int]int `mapstructure:"winner_rank_percent"`
	WinnerDefaultPercent int         `mapstructure:"winner_default_percent"`
}

// DefaultPointsCatalog returns the stock point values.
func DefaultPointsCatalog() PointsCatalog {
	return PointsCatalog{
		Signup:                 50,
		DailyLogin:             5,
		WeekendBonus:           10,
		IdeaSubmitted:          20,
		IdeaApproved:           50,
		IdeaImplemented:        100,
		ReviewCompleted:        25,
		EarlyReviewBonus:       10,
		EarlyReviewWindow:      24 * time.Hour,
		FirstHalfReviewerBonus: 1,
		CollaborationJoined:    15,
		InvitationAccepted:     20,
		ChallengeWinnerBase:    500,
		StreakTiers: []StreakTier{
			{Days: 5, Reward: 10},
			{Days: 10, Reward: 15},
			{Days: 15, Reward: 20},
			{Days: 20, Reward: 25},
			{Days: 25, Reward: 30},
		},
		WinnerRankPercent:    map[int]int{1: 100, 2: 70, 3: 50},
		WinnerDefaultPercent: 30,
	}
}

// StreakBonus returns the marginal bonus on top of the base daily login reward
// for a streak of the given length: the highest reached tier's reward minus the base.
func (c PointsCatalog) StreakBonus(streak int) int {
	tiers := append([]StreakTier(nil), c.StreakTiers...)
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].Days < tiers[j].Days })

	reward := c.DailyLogin
	for _, tier := range tiers {
		if streak >= tier.Days && tier.Reward > reward {
			reward = tier.Reward
		}
	}
	return reward - c.DailyLogin
}

// WinnerPoints scales the winner base by rank, truncating to an integer.
func (c PointsCatalog) WinnerPoints(rank int) int {
	percent, ok := c.WinnerRankPercent[rank]
	if !ok {
		percent = c.WinnerDefaultPercent
	}
	return c.ChallengeWinnerBase * percent / 100
}

// IsEarlyReview reports whether a review completed inside the early window after submission.
func (c PointsCatalog) IsEarlyReview(submittedAt, completedAt time.Time) bool {
	window := c.EarlyReviewWindow
	if window <= 0 {
		window = 24 * time.Hour
	}
	elapsed := completedAt.Sub(submittedAt)
	return elapsed >= 0 && elapsed <= window
}

// IsFirstHalf reports whether a 1-based position falls in the first half of total, ties included.
func IsFirstHalf(position, total int) bool {
	if position <= 0 || total <= 0 {
		return false
	}
	return position <= (total+1)/2
}
