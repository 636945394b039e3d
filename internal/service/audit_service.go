package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/gema-innovation-api/internal/dto"
	"github.com/noah-isme/gema-innovation-api/internal/middleware"
	"github.com/noah-isme/gema-innovation-api/internal/models"
	"github.com/noah-isme/gema-innovation-api/internal/repository"
)

// Audit actions written by the domain services.
const (
	AuditStatusChange     = "status_change"
	AuditAutoStatusChange = "auto_status_change"
	AuditReviewRecorded   = "review_recorded"
	AuditPointsAwarded    = "points_awarded"
	AuditSubmissionEdited = "submission_updated"
	AuditSubmissionOpened = "submission_created"
)

// AuditEntry captures the details required to persist an audit entry.
type AuditEntry struct {
	ActorID       uint
	ActorRole     string
	Action        string
	EntityType    string
	EntityID      *uint
	CorrelationID string
	OldValues     map[string]interface{}
	NewValues     map[string]interface{}
}

// AuditSink records audit events. Callers treat it as best-effort.
type AuditSink interface {
	Record(ctx context.Context, entry AuditEntry) (uint, error)
}

// AuditService exposes methods to query and persist audit entries.
type AuditService interface {
	AuditSink
	List(ctx context.Context, req dto.AuditListRequest) (dto.AuditListResponse, error)
}

type auditService struct {
	repo      repository.ActivityLogRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAuditService constructs the audit log service.
func NewAuditService(repo repository.ActivityLogRepository, validator *validator.Validate, logger zerolog.Logger) AuditService {
	return &auditService{
		repo:      repo,
		validator: validator,
		logger:    logger.With().Str("component", "audit_service").Logger(),
	}
}

func (s *auditService) Record(ctx context.Context, entry AuditEntry) (uint, error) {
	if strings.TrimSpace(entry.Action) == "" {
		return 0, fmt.Errorf("action is required")
	}
	if strings.TrimSpace(entry.EntityType) == "" {
		return 0, fmt.Errorf("entity type is required")
	}

	correlationID := entry.CorrelationID
	if correlationID == "" {
		correlationID = middleware.CorrelationIDFromContext(ctx)
	}

	model := models.ActivityLog{
		ActorID:       entry.ActorID,
		ActorRole:     normalizeRole(entry.ActorRole),
		Action:        strings.ToLower(strings.TrimSpace(entry.Action)),
		EntityType:    strings.ToLower(strings.TrimSpace(entry.EntityType)),
		EntityID:      entry.EntityID,
		CorrelationID: correlationID,
		OldValues:     sanitizeMetadata(entry.OldValues),
		NewValues:     sanitizeMetadata(entry.NewValues),
	}

	if err := s.repo.Create(ctx, &model); err != nil {
		s.logger.Error().Err(err).Str("action", model.Action).Str("correlation_id", correlationID).Msg("failed to persist audit entry")
		return 0, err
	}

	return model.ID, nil
}

func (s *auditService) List(ctx context.Context, req dto.AuditListRequest) (dto.AuditListResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AuditListResponse{}, validationFailed(err)
	}

	if req.PageSize <= 0 {
		req.PageSize = 20
	}

	filter := repository.ActivityLogFilter{
		Page:          req.Page,
		PageSize:      req.PageSize,
		Action:        strings.TrimSpace(req.Action),
		EntityType:    strings.ToLower(strings.TrimSpace(req.EntityType)),
		CorrelationID: strings.TrimSpace(req.CorrelationID),
	}
	if req.Since != "" {
		since, err := time.Parse(time.RFC3339, req.Since)
		if err != nil {
			return dto.AuditListResponse{}, fmt.Errorf("%w: since must be RFC3339", ErrValidation)
		}
		filter.Since = &since
	}
	if req.ActorID > 0 {
		filter.ActorID = &req.ActorID
	}
	if req.EntityID > 0 {
		filter.EntityID = &req.EntityID
	}

	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.AuditListResponse{}, err
	}

	items := make([]dto.AuditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.NewAuditEntryResponse(entry))
	}

	return dto.AuditListResponse{
		Items:      items,
		Pagination: dto.NewPaginationMeta(req.Page, req.PageSize, total),
	}, nil
}

func sanitizeMetadata(metadata map[string]interface{}) datatypes.JSONMap {
	if metadata == nil {
		return datatypes.JSONMap{}
	}

	sanitized := datatypes.JSONMap{}
	for key, value := range metadata {
		lower := strings.ToLower(key)
		if strings.Contains(lower, "email") || strings.Contains(lower, "token") {
			sanitized[key] = "***"
			continue
		}
		sanitized[key] = value
	}
	return sanitized
}

func normalizeRole(role string) string {
	r := strings.ToLower(strings.TrimSpace(role))
	if r == "" {
		return "system"
	}
	return r
}
