package dto

import (
	"time"

	"gorm.io/datatypes"

	"github.com/noah-isme/gema-innovation-api/internal/models"
)

// AuditListRequest defines filters for retrieving audit entries.
type AuditListRequest struct {
	Page          int    `query:"page" validate:"omitempty,min=1"`
	PageSize      int    `query:"page_size" validate:"omitempty,min=1,max=100"`
	ActorID       uint   `query:"actor_id"`
	Action        string `query:"action" validate:"omitempty,max=64"`
	EntityType    string `query:"entity_type" validate:"omitempty,max=64"`
	EntityID      uint   `query:"entity_id"`
	CorrelationID string `query:"correlation_id" validate:"omitempty,max=128"`
	Since         string `query:"since" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// AuditEntryResponse serializes audit log entries.
type AuditEntryResponse struct {
	ID            uint                   `json:"id"`
	ActorID       uint                   `json:"actor_id"`
	ActorRole     string                 `json:"actor_role"`
	Action        string                 `json:"action"`
	EntityType    string                 `json:"entity_type"`
	EntityID      *uint                  `json:"entity_id"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	OldValues     map[string]interface{} `json:"old_values"`
	NewValues     map[string]interface{} `json:"new_values"`
	CreatedAt     time.Time              `json:"created_at"`
}

// AuditListResponse wraps paginated audit entries.
type AuditListResponse struct {
	Items      []AuditEntryResponse `json:"items"`
	Pagination PaginationMeta       `json:"pagination"`
}

// NewAuditEntryResponse converts a model into an audit DTO.
func NewAuditEntryResponse(entry models.ActivityLog) AuditEntryResponse {
	return AuditEntryResponse{
		ID:            entry.ID,
		ActorID:       entry.ActorID,
		ActorRole:     entry.ActorRole,
		Action:        entry.Action,
		EntityType:    entry.EntityType,
		EntityID:      entry.EntityID,
		CorrelationID: entry.CorrelationID,
		OldValues:     metadataFromJSON(entry.OldValues),
		NewValues:     metadataFromJSON(entry.NewValues),
		CreatedAt:     entry.CreatedAt,
	}
}

func metadataFromJSON(data datatypes.JSONMap) map[string]interface{} {
	if data == nil {
		return map[string]interface{}{}
	}
	return map[string]interface{}(data)
}
