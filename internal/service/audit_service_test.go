package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-innovation-api/internal/dto"
	"github.com/noah-isme/gema-innovation-api/internal/middleware"
	"github.com/noah-isme/gema-innovation-api/internal/repository"
)

func TestAuditServiceRecordsAndFiltersByEntity(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuditService(repository.NewActivityLogRepository(db), testValidator(), testLogger())
	ctx := context.Background()

	first := uint(10)
	second := uint(11)
	id, err := svc.Record(ctx, AuditEntry{
		ActorID:    2,
		ActorRole:  "Manager",
		Action:     AuditStatusChange,
		EntityType: EntitySubmission,
		EntityID:   &first,
		OldValues:  map[string]interface{}{"stage": "submitted"},
		NewValues:  map[string]interface{}{"stage": "manager_review", "reviewer_email": "a@example.com"},
	})
	require.NoError(t, err)
	require.NotZero(t, id)

	_, err = svc.Record(ctx, AuditEntry{Action: AuditAutoStatusChange, EntityType: EntitySubmission, EntityID: &second})
	require.NoError(t, err)

	_, err = svc.Record(ctx, AuditEntry{EntityType: EntitySubmission})
	require.Error(t, err)

	list, err := svc.List(ctx, dto.AuditListRequest{EntityType: "submission", EntityID: first})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	entry := list.Items[0]
	require.Equal(t, "manager", entry.ActorRole)
	require.Equal(t, "***", entry.NewValues["reviewer_email"])
	require.Equal(t, "submitted", entry.OldValues["stage"])

	auto, err := svc.List(ctx, dto.AuditListRequest{Action: AuditAutoStatusChange})
	require.NoError(t, err)
	require.Len(t, auto.Items, 1)
	require.Equal(t, "system", auto.Items[0].ActorRole)
	require.EqualValues(t, 1, auto.Pagination.TotalItems)
}

func TestAuditServiceFiltersByCorrelationID(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuditService(repository.NewActivityLogRepository(db), testValidator(), testLogger())

	entity := uint(3)
	_, err := svc.Record(middleware.ContextWithCorrelation(context.Background(), "from-ctx"), AuditEntry{
		ActorID: 1, ActorRole: "employee", Action: AuditSubmissionOpened, EntityType: EntitySubmission, EntityID: &entity,
	})
	require.NoError(t, err)
	_, err = svc.Record(context.Background(), AuditEntry{
		ActorID: 1, ActorRole: "employee", Action: AuditSubmissionEdited, EntityType: EntitySubmission, EntityID: &entity, CorrelationID: "explicit",
	})
	require.NoError(t, err)

	list, err := svc.List(context.Background(), dto.AuditListRequest{CorrelationID: "from-ctx"})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	require.Equal(t, AuditSubmissionOpened, list.Items[0].Action)

	list, err = svc.List(context.Background(), dto.AuditListRequest{CorrelationID: "explicit"})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	require.Equal(t, "explicit", list.Items[0].CorrelationID)
}
