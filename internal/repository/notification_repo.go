package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-innovation-api/internal/models"
)

// NotificationQuery selects a page of one user's inbox, newest first.
type NotificationQuery struct {
	UserID     uint
	UnreadOnly bool
	Type       string
	Limit      int
	Offset     int
}

// NotificationRepository handles persistence for notification entities.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByUser(ctx context.Context, query NotificationQuery) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID uint, at time.Time) (models.Notification, error)
	MarkAllRead(ctx context.Context, userID uint, at time.Time) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository constructs a repository backed by GORM.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *notificationRepository) ListByUser(ctx context.Context, query NotificationQuery) ([]models.Notification, error) {
	limit := query.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	tx := r.db.WithContext(ctx).Where("user_id = ?", query.UserID)
	if query.UnreadOnly {
		tx = tx.Where("read = ?", false)
	}
	if query.Type != "" {
		tx = tx.Where("type = ?", query.Type)
	}

	var notifications []models.Notification
	err := tx.Order("created_at DESC").
		Order("id DESC").
		Offset(max(query.Offset, 0)).
		Limit(limit).
		Find(&notifications).Error
	return notifications, err
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, userID uint, at time.Time) (models.Notification, error) {
	var notification models.Notification
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&notification).Error; err != nil {
		return models.Notification{}, err
	}

	if notification.Read {
		return notification, nil
	}

	notification.Read = true
	notification.ReadAt = &at
	if err := r.db.WithContext(ctx).
		Model(&notification).
		Select("read", "read_at").
		Updates(&notification).Error; err != nil {
		return models.Notification{}, err
	}

	return notification, nil
}

// MarkAllRead flags every unread row in the user's inbox and reports how many changed.
func (r *notificationRepository) MarkAllRead(ctx context.Context, userID uint, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Updates(map[string]interface{}{"read": true, "read_at": at})
	return result.RowsAffected, result.Error
}
