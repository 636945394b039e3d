package models

import (
	"time"

	"gorm.io/datatypes"
)

// ActivityLog is one row of the audit trail. Stage changes, reviews and
// point awards each write one, tagged with the correlation id of the request
// that caused them so a single API call can be traced across entries.
type ActivityLog struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	ActorID       uint              `gorm:"not null;index" json:"actor_id"`
	ActorRole     string            `gorm:"size:32;not null" json:"actor_role"`
	Action        string            `gorm:"size:64;not null;index" json:"action"`
	EntityType    string            `gorm:"size:64;not null;index:idx_activity_entity,priority:1" json:"entity_type"`
	EntityID      *uint             `gorm:"index:idx_activity_entity,priority:2" json:"entity_id"`
	CorrelationID string            `gorm:"size:128;index" json:"correlation_id,omitempty"`
	OldValues     datatypes.JSONMap `gorm:"type:json" json:"old_values"`
	NewValues     datatypes.JSONMap `gorm:"type:json" json:"new_values"`
	CreatedAt     time.Time         `json:"created_at"`
}
