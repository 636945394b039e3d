package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification is one inbox entry for a user. Rows are written after the
// triggering change commits and fanned out to live streams.
type Notification struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	UserID    uint              `gorm:"not null;index:idx_notification_inbox,priority:1" json:"user_id"`
	Type      string            `gorm:"size:64;index" json:"type"`
	Message   string            `gorm:"type:text" json:"message"`
	Payload   datatypes.JSONMap `gorm:"type:json" json:"payload"`
	Read      bool              `gorm:"not null;default:false;index:idx_notification_inbox,priority:2" json:"read"`
	ReadAt    *time.Time        `json:"read_at"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
