package models

import "time"

// PointLedgerEntry is an immutable record of points earned or spent by a user.
type PointLedgerEntry struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"not null;index:idx_ledger_user_action,priority:1" json:"user_id"`
	ActionType     string    `gorm:"size:64;not null;index:idx_ledger_user_action,priority:2" json:"action_type"`
	Points         int       `gorm:"not null" json:"points"`
	Description    string    `gorm:"size:255" json:"description"`
	RelatedType    string    `gorm:"size:64" json:"related_type,omitempty"`
	RelatedID      string    `gorm:"size:64" json:"related_id,omitempty"`
	IdempotencyKey *string   `gorm:"size:191;uniqueIndex" json:"-"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
}

// TableName pins the ledger table name.
func (PointLedgerEntry) TableName() string {
	return "point_ledger"
}
