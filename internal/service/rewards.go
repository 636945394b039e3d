package service

import (
	"context"
	"fmt"
	"time"

	"github.com/noah-isme/gema-innovation-api/internal/gamification"
	"github.com/noah-isme/gema-innovation-api/internal/models"
	"github.com/noah-isme/gema-innovation-api/internal/observability"
	"github.com/noah-isme/gema-innovation-api/internal/repository"
)

const leaderboardCacheKey = "points:leaderboard"

func summaryCacheKey(userID uint) string {
	return fmt.Sprintf("points:summary:%d", userID)
}

// award is a request to append one ledger entry.
type award struct {
	UserID      uint
	Action      gamification.ActionType
	Points      int
	Description string
	Related     *RelatedEntity
	// Key makes the award idempotent. Entries sharing a key are written at most once.
	Key string
}

// award appends the entry unless its idempotency key is already taken, in
// which case it returns nil without error.
func (c *Core) award(ctx context.Context, tx repository.Store, fx *effects, a award) (*models.PointLedgerEntry, error) {
	if a.UserID == 0 {
		return nil, &ValidationError{Field: "user_id", Reason: "award recipient is required"}
	}
	if a.Points == 0 && a.Action != gamification.ActionAchievementUnlock {
		return nil, nil
	}
	if a.Related != nil && !c.registry.Knows(a.Related.Type) {
		return nil, &ValidationError{Field: "related_type", Reason: fmt.Sprintf("unknown related entity type %q", a.Related.Type)}
	}

	var key *string
	if a.Key != "" {
		exists, err := tx.Ledger().ExistsByKey(ctx, a.Key)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, nil
		}
		k := a.Key
		key = &k
	}

	entry := models.PointLedgerEntry{
		UserID:         a.UserID,
		ActionType:     string(a.Action),
		Points:         a.Points,
		Description:    a.Description,
		IdempotencyKey: key,
		CreatedAt:      c.now(),
	}
	if a.Related != nil {
		entry.RelatedType = a.Related.Type
		entry.RelatedID = a.Related.ID
	}

	if err := tx.Ledger().Append(ctx, &entry); err != nil {
		return nil, err
	}

	fx.entries = append(fx.entries, entry)
	fx.touch(entry.UserID)

	entryID := entry.ID
	fx.audit(AuditEntry{
		ActorID:    entry.UserID,
		ActorRole:  "system",
		Action:     AuditPointsAwarded,
		EntityType: "point_ledger",
		EntityID:   &entryID,
		NewValues: map[string]interface{}{
			"action_type":  entry.ActionType,
			"points":       entry.Points,
			"related_type": entry.RelatedType,
			"related_id":   entry.RelatedID,
		},
	})

	if a.Action != gamification.ActionAchievementUnlock {
		fx.notify(NotificationMessage{
			UserID:  entry.UserID,
			Type:    NotificationPointsAwarded,
			Message: fmt.Sprintf("You earned %d points: %s", entry.Points, entry.Description),
			Payload: map[string]interface{}{
				"entry_id":    entry.ID,
				"action_type": entry.ActionType,
				"points":      entry.Points,
			},
		})
	}

	userID := entry.UserID
	action := entry.ActionType
	fx.onCommit(func(ctx context.Context) {
		observability.PointsAwarded().WithLabelValues(action).Inc()
		if err := c.invalidateCached(ctx, summaryCacheKey(userID), leaderboardCacheKey); err != nil {
			c.logger.Warn().Err(err).Uint("user_id", userID).Msg("failed to invalidate points cache")
		}
	})

	return &entry, nil
}

// awardWeekend grants the weekend bonus once per user per weekend day.
func (c *Core) awardWeekend(ctx context.Context, tx repository.Store, fx *effects, userID uint, at time.Time) error {
	if !c.calendar.IsWeekend(at) {
		return nil
	}
	_, err := c.award(ctx, tx, fx, award{
		UserID:      userID,
		Action:      gamification.ActionWeekendBonus,
		Points:      c.points.WeekendBonus,
		Description: "Weekend activity bonus",
		Key:         fmt.Sprintf("weekend:%d:%s", userID, c.calendar.DayKey(at)),
	})
	return err
}

func (c *Core) loginDays(ctx context.Context, store repository.Store, userID uint) ([]time.Time, error) {
	return store.Ledger().ActivityTimes(ctx, userID, string(gamification.ActionDailyLogin))
}

// currentStreak counts consecutive login days ending today, or yesterday when there was no login today.
func (c *Core) currentStreak(ctx context.Context, store repository.Store, userID uint) (int, error) {
	days, err := c.loginDays(ctx, store, userID)
	if err != nil {
		return 0, err
	}
	return c.calendar.CurrentStreak(days, c.now()), nil
}

func (c *Core) longestStreak(ctx context.Context, store repository.Store, userID uint) (int, error) {
	days, err := c.loginDays(ctx, store, userID)
	if err != nil {
		return 0, err
	}
	return c.calendar.LongestStreak(days), nil
}

// metricValue derives one progress metric from the ledger and the workflow tables.
func (c *Core) metricValue(ctx context.Context, store repository.Store, userID uint, metric gamification.Metric) (int64, error) {
	countAction := func(action gamification.ActionType) (int64, error) {
		return store.Ledger().CountByAction(ctx, userID, string(action))
	}

	switch metric {
	case gamification.MetricIdeaCount:
		return countAction(gamification.ActionIdeaSubmitted)
	case gamification.MetricCollaborationCount:
		return countAction(gamification.ActionCollaborationJoined)
	case gamification.MetricFastReviewCount:
		return countAction(gamification.ActionEarlyReview)
	case gamification.MetricChallengeWins:
		return countAction(gamification.ActionChallengeWinner)
	case gamification.MetricSuccessfulInvitations:
		return countAction(gamification.ActionInvitationAccepted)
	case gamification.MetricWeekendActivity:
		return countAction(gamification.ActionWeekendBonus)
	case gamification.MetricImplementedIdeas:
		return store.Submissions().CountImplementedByAuthor(ctx, userID)
	case gamification.MetricReviewCount:
		return store.Reviews().CountCompletedByReviewer(ctx, userID)
	case gamification.MetricTotalPoints:
		return store.Ledger().SumByUser(ctx, userID)
	case gamification.MetricLoginStreak:
		// unlocks are permanent, so a streak that was reached once counts
		streak, err := c.longestStreak(ctx, store, userID)
		return int64(streak), err
	default:
		return 0, fmt.Errorf("unknown achievement metric %q", metric)
	}
}

func (c *Core) unlockedKeys(ctx context.Context, store repository.Store, userID uint) (map[string]struct{}, error) {
	keys, err := store.Ledger().RelatedIDs(ctx, userID, string(gamification.ActionAchievementUnlock))
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		out[key] = struct{}{}
	}
	return out, nil
}

// evaluateAchievements unlocks every catalog entry whose threshold the user has
// reached. Unlock bonuses can push total points past further thresholds, so it
// repeats until a pass unlocks nothing.
func (c *Core) evaluateAchievements(ctx context.Context, tx repository.Store, fx *effects, userID uint) ([]gamification.AchievementDefinition, error) {
	var unlocked []gamification.AchievementDefinition

	for {
		owned, err := c.unlockedKeys(ctx, tx, userID)
		if err != nil {
			return nil, err
		}

		values := map[gamification.Metric]int64{}
		progressed := false
		for _, def := range c.achievements.Definitions() {
			if _, ok := owned[def.Key]; ok {
				continue
			}

			value, ok := values[def.ProgressMetric]
			if !ok {
				value, err = c.metricValue(ctx, tx, userID, def.ProgressMetric)
				if err != nil {
					return nil, err
				}
				values[def.ProgressMetric] = value
			}
			if value < int64(def.Threshold) {
				continue
			}

			entry, err := c.award(ctx, tx, fx, award{
				UserID:      userID,
				Action:      gamification.ActionAchievementUnlock,
				Points:      def.PointsBonus,
				Description: "Achievement unlocked: " + def.DisplayName,
				Related:     &RelatedEntity{Type: EntityAchievement, ID: def.Key},
				Key:         fmt.Sprintf("achievement:%d:%s", userID, def.Key),
			})
			if err != nil {
				return nil, err
			}
			if entry == nil {
				continue
			}

			unlocked = append(unlocked, def)
			progressed = true

			key := def.Key
			fx.notify(NotificationMessage{
				UserID:  userID,
				Type:    NotificationAchievement,
				Message: fmt.Sprintf("Achievement unlocked: %s (+%d points)", def.DisplayName, def.PointsBonus),
				Payload: map[string]interface{}{
					"key":          def.Key,
					"badge_tier":   def.BadgeTier,
					"points_bonus": def.PointsBonus,
				},
			})
			fx.onCommit(func(context.Context) {
				observability.AchievementsUnlocked().WithLabelValues(key).Inc()
			})
		}

		if !progressed {
			return unlocked, nil
		}
	}
}
