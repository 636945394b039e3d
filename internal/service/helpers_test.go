package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-innovation-api/internal/gamification"
	"github.com/noah-isme/gema-innovation-api/internal/models"
	"github.com/noah-isme/gema-innovation-api/internal/repository"
	"github.com/noah-isme/gema-innovation-api/internal/workflow"
)

// Wednesday, so no weekend bonus unless a test moves the clock.
var testEpoch = time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC)

type recordingAudit struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (r *recordingAudit) Record(ctx context.Context, entry AuditEntry) (uint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return uint(len(r.entries)), nil
}

func (r *recordingAudit) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for _, entry := range r.entries {
		out = append(out, entry.Action)
	}
	return out
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []NotificationMessage
}

func (r *recordingNotifier) Notify(ctx context.Context, msg NotificationMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return nil
}

func (r *recordingNotifier) forUser(userID uint, kind string) []NotificationMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]NotificationMessage, 0)
	for _, msg := range r.messages {
		if msg.UserID == userID && (kind == "" || msg.Type == kind) {
			out = append(out, msg)
		}
	}
	return out
}

type testHarness struct {
	db           *gorm.DB
	store        repository.Store
	core         *Core
	submissions  SubmissionService
	reviews      ReviewService
	gamification GamificationService
	audit        *recordingAudit
	notifier     *recordingNotifier
	now          time.Time
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func newTestHarness(t *testing.T, configure ...func(*CoreOptions)) *testHarness {
	t.Helper()

	db := setupTestDB(t)
	catalog, err := gamification.DefaultCatalog()
	require.NoError(t, err)

	h := &testHarness{
		db:       db,
		store:    repository.NewStore(db),
		audit:    &recordingAudit{},
		notifier: &recordingNotifier{},
		now:      testEpoch,
	}

	opts := CoreOptions{
		Store:        h.store,
		Audit:        h.audit,
		Notifier:     h.notifier,
		Points:       gamification.DefaultPointsCatalog(),
		Achievements: catalog,
		Calendar:     gamification.NewCalendar(time.UTC),
		ReviewPolicy: workflow.DefaultPolicy(),
		Clock:        func() time.Time { return h.now },
		Logger:       zerolog.Nop(),
	}
	for _, fn := range configure {
		fn(&opts)
	}

	core, err := NewCore(opts)
	require.NoError(t, err)
	h.core = core

	h.submissions = NewSubmissionService(core, testValidator(), testLogger())
	h.reviews = NewReviewService(core, testValidator(), testLogger())
	h.gamification = NewGamificationService(core, testValidator(), testLogger())
	return h
}

func testValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func (h *testHarness) advance(d time.Duration) {
	h.now = h.now.Add(d)
}

// seedUser stores a user with roles and returns the matching actor.
func (h *testHarness) seedUser(t *testing.T, id uint, roles ...string) workflow.Actor {
	t.Helper()
	ctx := context.Background()
	user := models.User{ID: id, Name: fmt.Sprintf("user-%d", id), Email: fmt.Sprintf("user-%d@example.com", id)}
	require.NoError(t, h.store.Users().Create(ctx, &user))
	require.NoError(t, h.store.Users().GrantRoles(ctx, id, roles...))
	return workflow.NewActor(id, roles...)
}

func (h *testHarness) points(t *testing.T, userID uint) int64 {
	t.Helper()
	total, err := h.store.Ledger().SumByUser(context.Background(), userID)
	require.NoError(t, err)
	return total
}

func (h *testHarness) countAction(t *testing.T, userID uint, action gamification.ActionType) int64 {
	t.Helper()
	count, err := h.store.Ledger().CountByAction(context.Background(), userID, string(action))
	require.NoError(t, err)
	return count
}

func scoreOf(v float64) *float64 {
	return &v
}
