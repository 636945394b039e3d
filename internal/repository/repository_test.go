package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-innovation-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func TestSubmissionRepositoryListFiltersAndPaginates(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubmissionRepository(db)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	items := []models.Submission{
		{Workflow: "idea", AuthorID: 1, Title: "Solar roofs", CurrentStage: "draft", CreatedAt: base},
		{Workflow: "idea", AuthorID: 1, Title: "Paperless", CurrentStage: "submitted", CreatedAt: base.Add(time.Minute)},
		{Workflow: "challenge", AuthorID: 2, Title: "Hackathon", CurrentStage: "draft", CreatedAt: base.Add(2 * time.Minute)},
	}
	for i := range items {
		require.NoError(t, repo.Create(ctx, &items[i]))
	}

	author := uint(1)
	list, total, err := repo.List(ctx, SubmissionFilter{AuthorID: &author})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Equal(t, "Paperless", list[0].Title)

	list, total, err = repo.List(ctx, SubmissionFilter{Stage: "draft", PageSize: 1, Page: 2})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, list, 1)
	require.Equal(t, "Solar roofs", list[0].Title)

	list, _, err = repo.List(ctx, SubmissionFilter{Workflow: "challenge"})
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestStoreTransactionRollsBackEveryWrite(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	submission := models.Submission{Workflow: "idea", AuthorID: 1, Title: "Idea", CurrentStage: "draft"}
	require.NoError(t, store.Submissions().Create(ctx, &submission))

	boom := errors.New("boom")
	err := store.Transaction(ctx, func(tx Store) error {
		locked, err := tx.Submissions().GetForUpdate(ctx, submission.ID)
		require.NoError(t, err)
		locked.CurrentStage = "submitted"
		require.NoError(t, tx.Submissions().Update(ctx, &locked))

		key := "idea_submitted:1"
		require.NoError(t, tx.Ledger().Append(ctx, &models.PointLedgerEntry{UserID: 1, ActionType: "idea_submitted", Points: 20, IdempotencyKey: &key}))
		require.NoError(t, tx.Transitions().Create(ctx, &models.StageTransition{SubmissionID: submission.ID, FromStage: "draft", ToStage: "submitted", ActorID: 1}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	stored, err := store.Submissions().GetByID(ctx, submission.ID)
	require.NoError(t, err)
	require.Equal(t, "draft", stored.CurrentStage)

	total, err := store.Ledger().SumByUser(ctx, 1)
	require.NoError(t, err)
	require.Zero(t, total)

	history, err := store.Transitions().ListBySubmission(ctx, submission.ID)
	require.NoError(t, err)
	require.Empty(t, history)
}

func TestReviewRepositoryEnforcesOneReviewPerStage(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReviewRepository(db)
	ctx := context.Background()

	first := models.Review{SubmissionID: 1, ReviewerID: 7, Stage: "manager_review", Round: 1, Decision: models.ReviewDecisionPending}
	require.NoError(t, repo.Create(ctx, &first))

	dup := models.Review{SubmissionID: 1, ReviewerID: 7, Stage: "manager_review", Round: 1, Decision: models.ReviewDecisionApprove}
	require.ErrorIs(t, repo.Create(ctx, &dup), gorm.ErrDuplicatedKey)

	other := models.Review{SubmissionID: 1, ReviewerID: 7, Stage: "sme_review", Round: 1, Decision: models.ReviewDecisionPending}
	require.NoError(t, repo.Create(ctx, &other))

	nextRound := models.Review{SubmissionID: 1, ReviewerID: 7, Stage: "manager_review", Round: 2, Decision: models.ReviewDecisionPending}
	require.NoError(t, repo.Create(ctx, &nextRound))

	found, err := repo.Get(ctx, 1, 7, "manager_review", 1)
	require.NoError(t, err)
	require.Equal(t, first.ID, found.ID)

	found, err = repo.Get(ctx, 1, 7, "manager_review", 2)
	require.NoError(t, err)
	require.Equal(t, nextRound.ID, found.ID)

	_, err = repo.Get(ctx, 1, 8, "manager_review", 1)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestReviewRepositoryListsInCreationOrder(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReviewRepository(db)
	ctx := context.Background()

	opened := time.Date(2026, time.March, 4, 9, 0, 0, 0, time.UTC)
	done := opened.Add(time.Hour)
	// reviewer 1 was opened first but is still pending; reviewer 3 finished first
	early := models.Review{SubmissionID: 1, ReviewerID: 1, Stage: "sme_review", Round: 1, Decision: models.ReviewDecisionPending, CreatedAt: opened}
	middle := models.Review{SubmissionID: 1, ReviewerID: 2, Stage: "sme_review", Round: 1, Decision: models.ReviewDecisionApprove, CompletedAt: &done, CreatedAt: opened.Add(time.Minute)}
	late := models.Review{SubmissionID: 1, ReviewerID: 3, Stage: "sme_review", Round: 1, Decision: models.ReviewDecisionReject, CompletedAt: &opened, CreatedAt: opened.Add(2 * time.Minute)}
	elsewhere := models.Review{SubmissionID: 1, ReviewerID: 3, Stage: "manager_review", Round: 1, Decision: models.ReviewDecisionApprove, CompletedAt: &opened, CreatedAt: opened}
	oldRound := models.Review{SubmissionID: 1, ReviewerID: 4, Stage: "sme_review", Round: 2, Decision: models.ReviewDecisionApprove, CompletedAt: &done, CreatedAt: done}
	for _, review := range []*models.Review{&late, &middle, &early, &elsewhere, &oldRound} {
		require.NoError(t, repo.Create(ctx, review))
	}

	reviews, err := repo.ListBySubmission(ctx, 1, "sme_review", 1)
	require.NoError(t, err)
	require.Len(t, reviews, 3)
	require.Equal(t, uint(1), reviews[0].ReviewerID)
	require.Equal(t, uint(2), reviews[1].ReviewerID)
	require.Equal(t, uint(3), reviews[2].ReviewerID)

	all, err := repo.ListBySubmission(ctx, 1, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 5)

	count, err := repo.CountCompletedByReviewer(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)
}

func TestLedgerRepositoryAggregates(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLedgerRepository(db)
	ctx := context.Background()

	key := "signup:1"
	entries := []models.PointLedgerEntry{
		{UserID: 1, ActionType: "signup", Points: 50, IdempotencyKey: &key},
		{UserID: 1, ActionType: "daily_login", Points: 5, CreatedAt: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)},
		{UserID: 1, ActionType: "daily_login", Points: 5, CreatedAt: time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)},
		{UserID: 1, ActionType: "achievement_unlock", Points: 10, RelatedType: "achievement", RelatedID: "first_idea"},
		{UserID: 2, ActionType: "signup", Points: 50},
		{UserID: 2, ActionType: "challenge_winner", Points: 500},
	}
	for i := range entries {
		require.NoError(t, repo.Append(ctx, &entries[i]))
	}

	dup := models.PointLedgerEntry{UserID: 1, ActionType: "signup", Points: 50, IdempotencyKey: &key}
	require.ErrorIs(t, repo.Append(ctx, &dup), gorm.ErrDuplicatedKey)

	exists, err := repo.ExistsByKey(ctx, key)
	require.NoError(t, err)
	require.True(t, exists)

	sum, err := repo.SumByUser(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(70), sum)

	sum, err = repo.SumByUser(ctx, 99)
	require.NoError(t, err)
	require.Zero(t, sum)

	count, err := repo.CountByAction(ctx, 1, "daily_login")
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	times, err := repo.ActivityTimes(ctx, 1, "daily_login")
	require.NoError(t, err)
	require.Len(t, times, 2)
	require.True(t, times[0].Before(times[1]))

	keys, err := repo.RelatedIDs(ctx, 1, "achievement_unlock")
	require.NoError(t, err)
	require.Equal(t, []string{"first_idea"}, keys)

	recent, err := repo.ListByUser(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)

	board, err := repo.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, board, 2)
	require.Equal(t, LeaderboardRow{UserID: 2, Points: 550}, board[0])
	require.Equal(t, LeaderboardRow{UserID: 1, Points: 70}, board[1])
}

func TestUserRepositoryResolvesRoleHolders(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	alice := models.User{Name: "Alice", Email: "alice@example.com"}
	bob := models.User{Name: "Bob", Email: "bob@example.com"}
	require.NoError(t, repo.Create(ctx, &alice))
	require.NoError(t, repo.Create(ctx, &bob))

	require.NoError(t, repo.GrantRoles(ctx, alice.ID, "manager", "sme"))
	require.NoError(t, repo.GrantRoles(ctx, alice.ID, "manager"))
	require.NoError(t, repo.GrantRoles(ctx, bob.ID, "employee"))

	ids, err := repo.IDsWithRoles(ctx, []string{"manager", "admin"})
	require.NoError(t, err)
	require.Equal(t, []uint{alice.ID}, ids)

	loaded, err := repo.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"manager", "sme"}, loaded.RoleNames())
}

func TestActivityLogRepositoryFiltersByEntity(t *testing.T) {
	db := setupTestDB(t)
	repo := NewActivityLogRepository(db)
	ctx := context.Background()

	one, two := uint(1), uint(2)
	require.NoError(t, repo.Create(ctx, &models.ActivityLog{ActorID: 3, ActorRole: "manager", Action: "status_change", EntityType: "submission", EntityID: &one}))
	require.NoError(t, repo.Create(ctx, &models.ActivityLog{ActorID: 0, ActorRole: "system", Action: "auto_status_change", EntityType: "submission", EntityID: &one}))
	require.NoError(t, repo.Create(ctx, &models.ActivityLog{ActorID: 3, ActorRole: "manager", Action: "status_change", EntityType: "submission", EntityID: &two}))

	entries, total, err := repo.List(ctx, ActivityLogFilter{EntityType: "submission", EntityID: &one})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, entries, 2)

	_, total, err = repo.List(ctx, ActivityLogFilter{Action: "auto_status_change"})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
}

func TestNotificationRepositoryMarkReadScopesToOwner(t *testing.T) {
	db := setupTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()

	mine := models.Notification{UserID: 1, Type: "points_awarded", Message: "+5"}
	theirs := models.Notification{UserID: 2, Type: "points_awarded", Message: "+5"}
	require.NoError(t, repo.Create(ctx, &mine))
	require.NoError(t, repo.Create(ctx, &theirs))

	at := time.Date(2026, time.March, 4, 9, 0, 0, 0, time.UTC)
	_, err := repo.MarkRead(ctx, theirs.ID, 1, at)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	updated, err := repo.MarkRead(ctx, mine.ID, 1, at)
	require.NoError(t, err)
	require.True(t, updated.Read)
	require.NotNil(t, updated.ReadAt)

	unread, err := repo.ListByUser(ctx, NotificationQuery{UserID: 1, UnreadOnly: true})
	require.NoError(t, err)
	require.Empty(t, unread)

	all, err := repo.ListByUser(ctx, NotificationQuery{UserID: 1, Type: "points_awarded"})
	require.NoError(t, err)
	require.Len(t, all, 1)

	changed, err := repo.MarkAllRead(ctx, 2, at)
	require.NoError(t, err)
	require.EqualValues(t, 1, changed)
	changed, err = repo.MarkAllRead(ctx, 2, at)
	require.NoError(t, err)
	require.Zero(t, changed)
}
