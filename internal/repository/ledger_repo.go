package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-innovation-api/internal/models"
)

// LeaderboardRow is a user's position by accumulated points.
type LeaderboardRow struct {
	UserID uint  `json:"user_id"`
	Points int64 `json:"points"`
}

// LedgerRepository appends to and reads the point ledger. Entries are never updated or deleted.
type LedgerRepository interface {
	Append(ctx context.Context, entry *models.PointLedgerEntry) error
	ExistsByKey(ctx context.Context, key string) (bool, error)
	SumByUser(ctx context.Context, userID uint) (int64, error)
	CountByAction(ctx context.Context, userID uint, action string) (int64, error)
	// ActivityTimes returns the creation times of the user's entries for an action, oldest first.
	ActivityTimes(ctx context.Context, userID uint, action string) ([]time.Time, error)
	// RelatedIDs returns the related ids of the user's entries for an action.
	RelatedIDs(ctx context.Context, userID uint, action string) ([]string, error)
	ListByUser(ctx context.Context, userID uint, limit int) ([]models.PointLedgerEntry, error)
	Leaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error)
}

type ledgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository constructs the ledger repository.
func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) Append(ctx context.Context, entry *models.PointLedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *ledgerRepository) ExistsByKey(ctx context.Context, key string) (bool, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.PointLedgerEntry{}).
		Where("idempotency_key = ?", key).
		Count(&total).Error; err != nil {
		return false, err
	}
	return total > 0, nil
}

func (r *ledgerRepository) SumByUser(ctx context.Context, userID uint) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.PointLedgerEntry{}).
		Select("COALESCE(SUM(points), 0)").
		Where("user_id = ?", userID).
		Scan(&total).Error
	return total, err
}

func (r *ledgerRepository) CountByAction(ctx context.Context, userID uint, action string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.PointLedgerEntry{}).
		Where("user_id = ? AND action_type = ?", userID, action).
		Count(&total).Error
	return total, err
}

func (r *ledgerRepository) ActivityTimes(ctx context.Context, userID uint, action string) ([]time.Time, error) {
	var times []time.Time
	if err := r.db.WithContext(ctx).Model(&models.PointLedgerEntry{}).
		Where("user_id = ? AND action_type = ?", userID, action).
		Order("created_at ASC").
		Pluck("created_at", &times).Error; err != nil {
		return nil, err
	}
	return times, nil
}

func (r *ledgerRepository) RelatedIDs(ctx context.Context, userID uint, action string) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Model(&models.PointLedgerEntry{}).
		Where("user_id = ? AND action_type = ?", userID, action).
		Order("id ASC").
		Pluck("related_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *ledgerRepository) ListByUser(ctx context.Context, userID uint, limit int) ([]models.PointLedgerEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var entries []models.PointLedgerEntry
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *ledgerRepository) Leaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	if limit <= 0 {
		limit = 10
	}

	var rows []LeaderboardRow
	if err := r.db.WithContext(ctx).Model(&models.PointLedgerEntry{}).
		Select("user_id, SUM(points) AS points").
		Group("user_id").
		Order("points DESC").
		Order("user_id ASC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
