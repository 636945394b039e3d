package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/gema-innovation-api/internal/dto"
	"github.com/noah-isme/gema-innovation-api/internal/gamification"
	"github.com/noah-isme/gema-innovation-api/internal/repository"
	"github.com/noah-isme/gema-innovation-api/internal/workflow"
)

const (
	recentEntriesLimit      = 10
	defaultLeaderboardLimit = 10
)

// GamificationService exposes the points ledger, streaks and achievements.
type GamificationService interface {
	Signup(ctx context.Context, userID uint) (dto.AwardResponse, error)
	DailyLogin(ctx context.Context, userID uint) (dto.DailyLoginResponse, error)
	RecordCollaboration(ctx context.Context, userID uint, req dto.CollaborationRequest) (dto.AwardResponse, error)
	RecordInvitation(ctx context.Context, inviteeID uint, req dto.InvitationRequest) (dto.AwardResponse, error)
	Summary(ctx context.Context, userID uint) (dto.PointsSummaryResponse, error)
	Leaderboard(ctx context.Context, limit int) ([]dto.LeaderboardEntryResponse, error)
	Achievements(ctx context.Context, userID uint) ([]dto.AchievementProgressResponse, error)
	EvaluateAchievements(ctx context.Context, userID uint) (dto.AwardResponse, error)
}

type gamificationService struct {
	core      *Core
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewGamificationService constructs a GamificationService instance.
func NewGamificationService(core *Core, validate *validator.Validate, logger zerolog.Logger) GamificationService {
	return &gamificationService{
		core:      core,
		validator: validate,
		logger:    logger.With().Str("component", "gamification_service").Logger(),
	}
}

func (s *gamificationService) Signup(ctx context.Context, userID uint) (dto.AwardResponse, error) {
	ctx, span := s.core.startSpan(ctx, "gamification.signup", attribute.Int64("user.id", int64(userID)))
	defer span.End()

	if userID == 0 {
		return dto.AwardResponse{}, failSpan(span, &ValidationError{Field: "user_id", Reason: "user is required"}, "validation_failed")
	}

	key := fmt.Sprintf("signup:%d", userID)
	fx, err := s.core.run(ctx, func(tx repository.Store, fx *effects) error {
		exists, err := tx.Ledger().ExistsByKey(ctx, key)
		if err != nil {
			return err
		}
		if exists {
			return &ConflictError{Reason: "signup bonus already awarded"}
		}
		_, err = s.core.award(ctx, tx, fx, award{
			UserID:      userID,
			Action:      gamification.ActionSignup,
			Points:      s.core.points.Signup,
			Description: "Welcome bonus",
			Key:         key,
		})
		return err
	})
	if err != nil {
		return dto.AwardResponse{}, failSpan(span, err, "signup_failed")
	}
	return awardResponse(fx), nil
}

func (s *gamificationService) DailyLogin(ctx context.Context, userID uint) (dto.DailyLoginResponse, error) {
	ctx, span := s.core.startSpan(ctx, "gamification.daily_login", attribute.Int64("user.id", int64(userID)))
	defer span.End()

	if userID == 0 {
		return dto.DailyLoginResponse{}, failSpan(span, &ValidationError{Field: "user_id", Reason: "user is required"}, "validation_failed")
	}

	var streak int
	fx, err := s.core.run(ctx, func(tx repository.Store, fx *effects) error {
		now := s.core.now()
		day := s.core.calendar.DayKey(now)
		key := fmt.Sprintf("daily_login:%d:%s", userID, day)

		exists, err := tx.Ledger().ExistsByKey(ctx, key)
		if err != nil {
			return err
		}
		if exists {
			return &ConflictError{Reason: "daily login already recorded today"}
		}

		previous, err := s.core.currentStreak(ctx, tx, userID)
		if err != nil {
			return err
		}
		streak = previous + 1

		if _, err := s.core.award(ctx, tx, fx, award{
			UserID:      userID,
			Action:      gamification.ActionDailyLogin,
			Points:      s.core.points.DailyLogin,
			Description: "Daily login",
			Key:         key,
		}); err != nil {
			return err
		}

		if bonus := s.core.points.StreakBonus(streak); bonus > 0 {
			if _, err := s.core.award(ctx, tx, fx, award{
				UserID:      userID,
				Action:      gamification.ActionStreakBonus,
				Points:      bonus,
				Description: fmt.Sprintf("%d-day login streak", streak),
				Key:         fmt.Sprintf("streak_bonus:%d:%s", userID, day),
			}); err != nil {
				return err
			}
		}

		return s.core.awardWeekend(ctx, tx, fx, userID, now)
	})
	if err != nil {
		return dto.DailyLoginResponse{}, failSpan(span, err, "daily_login_failed")
	}

	span.SetAttributes(attribute.Int("streak.current", streak))
	return dto.DailyLoginResponse{AwardResponse: awardResponse(fx), CurrentStreak: streak}, nil
}

func (s *gamificationService) RecordCollaboration(ctx context.Context, userID uint, req dto.CollaborationRequest) (dto.AwardResponse, error) {
	ctx, span := s.core.startSpan(ctx, "gamification.collaboration",
		attribute.Int64("user.id", int64(userID)),
		attribute.Int64("submission.id", int64(req.SubmissionID)),
	)
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		return dto.AwardResponse{}, failSpan(span, validationFailed(err), "validation_failed")
	}

	fx, err := s.core.run(ctx, func(tx repository.Store, fx *effects) error {
		sub, err := tx.Submissions().GetByID(ctx, req.SubmissionID)
		if err != nil {
			return storeError(err, EntitySubmission, req.SubmissionID)
		}
		if sub.CurrentStage != string(workflow.StageCollaboration) || !sub.CollaborationEnabled {
			return &ValidationError{Field: "submission_id", Reason: "submission is not open for collaboration"}
		}
		if sub.IsAuthoredBy(userID) {
			return &ValidationError{Field: "submission_id", Reason: "authors cannot join their own collaboration"}
		}

		entry, err := s.core.award(ctx, tx, fx, award{
			UserID:      userID,
			Action:      gamification.ActionCollaborationJoined,
			Points:      s.core.points.CollaborationJoined,
			Description: "Joined collaboration: " + sub.Title,
			Related:     relatedSubmission(sub.ID),
			Key:         fmt.Sprintf("collaboration:%d:%d", userID, sub.ID),
		})
		if err != nil {
			return err
		}
		if entry == nil {
			return &ConflictError{Reason: "collaboration already recorded"}
		}
		return nil
	})
	if err != nil {
		return dto.AwardResponse{}, failSpan(span, err, "collaboration_failed")
	}
	return awardResponse(fx), nil
}

func (s *gamificationService) RecordInvitation(ctx context.Context, inviteeID uint, req dto.InvitationRequest) (dto.AwardResponse, error) {
	ctx, span := s.core.startSpan(ctx, "gamification.invitation",
		attribute.Int64("user.id", int64(inviteeID)),
		attribute.Int64("inviter.id", int64(req.InviterID)),
	)
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		return dto.AwardResponse{}, failSpan(span, validationFailed(err), "validation_failed")
	}
	if req.InviterID == inviteeID {
		return dto.AwardResponse{}, failSpan(span, &ValidationError{Field: "inviter_id", Reason: "users cannot accept their own invitation"}, "validation_failed")
	}

	fx, err := s.core.run(ctx, func(tx repository.Store, fx *effects) error {
		sub, err := tx.Submissions().GetByID(ctx, req.SubmissionID)
		if err != nil {
			return storeError(err, EntitySubmission, req.SubmissionID)
		}

		entry, err := s.core.award(ctx, tx, fx, award{
			UserID:      req.InviterID,
			Action:      gamification.ActionInvitationAccepted,
			Points:      s.core.points.InvitationAccepted,
			Description: "Invitation accepted: " + sub.Title,
			Related:     relatedSubmission(sub.ID),
			Key:         fmt.Sprintf("invitation:%d:%d:%d", req.InviterID, inviteeID, sub.ID),
		})
		if err != nil {
			return err
		}
		if entry == nil {
			return &ConflictError{Reason: "invitation already accepted"}
		}
		return nil
	})
	if err != nil {
		return dto.AwardResponse{}, failSpan(span, err, "invitation_failed")
	}
	return awardResponse(fx), nil
}

func (s *gamificationService) Summary(ctx context.Context, userID uint) (dto.PointsSummaryResponse, error) {
	key := summaryCacheKey(userID)
	generation := s.core.generations.current(key)

	var cached dto.PointsSummaryResponse
	found, err := s.core.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.Warn().Err(err).Uint("user_id", userID).Msg("points summary cache read failed")
	}
	if found {
		return cached, nil
	}

	store := s.core.store
	total, err := store.Ledger().SumByUser(ctx, userID)
	if err != nil {
		return dto.PointsSummaryResponse{}, err
	}
	days, err := s.core.loginDays(ctx, store, userID)
	if err != nil {
		return dto.PointsSummaryResponse{}, err
	}
	achievements, err := store.Ledger().RelatedIDs(ctx, userID, string(gamification.ActionAchievementUnlock))
	if err != nil {
		return dto.PointsSummaryResponse{}, err
	}
	entries, err := store.Ledger().ListByUser(ctx, userID, recentEntriesLimit)
	if err != nil {
		return dto.PointsSummaryResponse{}, err
	}

	now := s.core.now()
	recent := make([]dto.LedgerEntryResponse, 0, len(entries))
	for _, entry := range entries {
		item := dto.NewLedgerEntryResponse(entry)
		if entry.RelatedType != "" {
			related, err := s.core.registry.Resolve(ctx, store, RelatedEntity{Type: entry.RelatedType, ID: entry.RelatedID})
			if err != nil {
				s.logger.Debug().Err(err).Uint("entry_id", entry.ID).Msg("related entity could not be resolved")
			} else {
				item.Related = related
			}
		}
		recent = append(recent, item)
	}
	if achievements == nil {
		achievements = []string{}
	}

	summary := dto.PointsSummaryResponse{
		UserID:        userID,
		TotalPoints:   total,
		CurrentStreak: s.core.calendar.CurrentStreak(days, now),
		LongestStreak: s.core.calendar.LongestStreak(days),
		Achievements:  achievements,
		Recent:        recent,
		GeneratedAt:   now,
	}

	if err := s.core.fillCache(ctx, key, generation, summary, s.core.summaryTTL); err != nil {
		s.logger.Warn().Err(err).Uint("user_id", userID).Msg("points summary cache write failed")
	}
	return summary, nil
}

func (s *gamificationService) Leaderboard(ctx context.Context, limit int) ([]dto.LeaderboardEntryResponse, error) {
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	if limit > s.core.leaderboardSize {
		limit = s.core.leaderboardSize
	}

	generation := s.core.generations.current(leaderboardCacheKey)
	var board []dto.LeaderboardEntryResponse
	found, err := s.core.cache.Get(ctx, leaderboardCacheKey, &board)
	if err != nil {
		s.logger.Warn().Err(err).Msg("leaderboard cache read failed")
	}
	if !found {
		rows, err := s.core.store.Ledger().Leaderboard(ctx, s.core.leaderboardSize)
		if err != nil {
			return nil, err
		}
		board = make([]dto.LeaderboardEntryResponse, 0, len(rows))
		for i, row := range rows {
			board = append(board, dto.LeaderboardEntryResponse{Rank: i + 1, UserID: row.UserID, Points: row.Points})
		}
		if err := s.core.fillCache(ctx, leaderboardCacheKey, generation, board, s.core.summaryTTL); err != nil {
			s.logger.Warn().Err(err).Msg("leaderboard cache write failed")
		}
	}

	if len(board) > limit {
		board = board[:limit]
	}
	return board, nil
}

func (s *gamificationService) Achievements(ctx context.Context, userID uint) ([]dto.AchievementProgressResponse, error) {
	store := s.core.store
	owned, err := s.core.unlockedKeys(ctx, store, userID)
	if err != nil {
		return nil, err
	}

	values := map[gamification.Metric]int64{}
	out := make([]dto.AchievementProgressResponse, 0)
	for _, def := range s.core.achievements.Definitions() {
		value, ok := values[def.ProgressMetric]
		if !ok {
			value, err = s.core.metricValue(ctx, store, userID, def.ProgressMetric)
			if err != nil {
				return nil, err
			}
			values[def.ProgressMetric] = value
		}
		_, unlocked := owned[def.Key]
		out = append(out, dto.AchievementProgressResponse{
			AchievementUnlockResponse: unlockResponse(def),
			Metric:                    string(def.ProgressMetric),
			Threshold:                 def.Threshold,
			Progress:                  value,
			Unlocked:                  unlocked,
		})
	}
	return out, nil
}

func (s *gamificationService) EvaluateAchievements(ctx context.Context, userID uint) (dto.AwardResponse, error) {
	ctx, span := s.core.startSpan(ctx, "gamification.evaluate_achievements", attribute.Int64("user.id", int64(userID)))
	defer span.End()

	if userID == 0 {
		return dto.AwardResponse{}, failSpan(span, &ValidationError{Field: "user_id", Reason: "user is required"}, "validation_failed")
	}

	fx, err := s.core.run(ctx, func(tx repository.Store, fx *effects) error {
		fx.touch(userID)
		return nil
	})
	if err != nil {
		return dto.AwardResponse{}, failSpan(span, err, "evaluation_failed")
	}

	span.SetAttributes(attribute.Int("achievements.unlocked", len(fx.unlocked)))
	return awardResponse(fx), nil
}

func awardResponse(fx *effects) dto.AwardResponse {
	resp := dto.AwardResponse{
		Entries:      make([]dto.LedgerEntryResponse, 0, len(fx.entries)),
		PointsEarned: fx.earned(),
	}
	for _, entry := range fx.entries {
		resp.Entries = append(resp.Entries, dto.NewLedgerEntryResponse(entry))
	}
	for _, def := range fx.unlocked {
		resp.Unlocked = append(resp.Unlocked, unlockResponse(def))
	}
	return resp
}

func unlockResponse(def gamification.AchievementDefinition) dto.AchievementUnlockResponse {
	return dto.AchievementUnlockResponse{
		Key:         def.Key,
		DisplayName: def.DisplayName,
		BadgeTier:   def.BadgeTier,
		PointsBonus: def.PointsBonus,
	}
}
