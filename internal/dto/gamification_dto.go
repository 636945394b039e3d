package dto

import (
	"time"

	"github.com/noah-isme/gema-innovation-api/internal/models"
)

// CollaborationRequest records that the caller joined a submission's collaboration.
type CollaborationRequest struct {
	SubmissionID uint `json:"submission_id" validate:"required,gt=0"`
}

// InvitationRequest records that the caller accepted an invitation sent by InviterID.
type InvitationRequest struct {
	InviterID    uint `json:"inviter_id" validate:"required,gt=0"`
	SubmissionID uint `json:"submission_id" validate:"required,gt=0"`
}

// LedgerEntryResponse serializes a point ledger entry.
type LedgerEntryResponse struct {
	ID          uint        `json:"id"`
	UserID      uint        `json:"user_id"`
	ActionType  string      `json:"action_type"`
	Points      int         `json:"points"`
	Description string      `json:"description"`
	RelatedType string      `json:"related_type,omitempty"`
	RelatedID   string      `json:"related_id,omitempty"`
	Related     interface{} `json:"related,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// AwardResponse lists the entries written by one operation.
type AwardResponse struct {
	Entries      []LedgerEntryResponse       `json:"entries"`
	PointsEarned int                         `json:"points_earned"`
	Unlocked     []AchievementUnlockResponse `json:"unlocked,omitempty"`
}

// DailyLoginResponse extends an award with the streak reached today.
type DailyLoginResponse struct {
	AwardResponse
	CurrentStreak int `json:"current_streak"`
}

// AchievementUnlockResponse describes a newly unlocked achievement.
type AchievementUnlockResponse struct {
	Key         string `json:"key"`
	DisplayName string `json:"display_name"`
	BadgeTier   string `json:"badge_tier"`
	PointsBonus int    `json:"points_bonus"`
}

// AchievementProgressResponse reports progress toward one catalog entry.
type AchievementProgressResponse struct {
	AchievementUnlockResponse
	Metric    string `json:"metric"`
	Threshold int    `json:"threshold"`
	Progress  int64  `json:"progress"`
	Unlocked  bool   `json:"unlocked"`
}

// PointsSummaryResponse is the caller's gamification dashboard.
type PointsSummaryResponse struct {
	UserID        uint                  `json:"user_id"`
	TotalPoints   int64                 `json:"total_points"`
	CurrentStreak int                   `json:"current_streak"`
	LongestStreak int                   `json:"longest_streak"`
	Achievements  []string              `json:"achievements"`
	Recent        []LedgerEntryResponse `json:"recent"`
	GeneratedAt   time.Time             `json:"generated_at"`
}

// LeaderboardEntryResponse is one ranked row of the leaderboard.
type LeaderboardEntryResponse struct {
	Rank   int   `json:"rank"`
	UserID uint  `json:"user_id"`
	Points int64 `json:"points"`
}

// NewLedgerEntryResponse maps a ledger entry into a DTO.
func NewLedgerEntryResponse(entry models.PointLedgerEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		ID:          entry.ID,
		UserID:      entry.UserID,
		ActionType:  entry.ActionType,
		Points:      entry.Points,
		Description: entry.Description,
		RelatedType: entry.RelatedType,
		RelatedID:   entry.RelatedID,
		CreatedAt:   entry.CreatedAt,
	}
}
