package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-innovation-api/internal/dispatch"
	"github.com/noah-isme/gema-innovation-api/internal/gamification"
	"github.com/noah-isme/gema-innovation-api/internal/middleware"
	"github.com/noah-isme/gema-innovation-api/internal/models"
	"github.com/noah-isme/gema-innovation-api/internal/repository"
	"github.com/noah-isme/gema-innovation-api/internal/workflow"
	"github.com/noah-isme/gema-innovation-api/pkg/cache"
)

const maxConflictAttempts = 3

// CoreOptions wires the building blocks shared by the workflow and gamification services.
type CoreOptions struct {
	Store           repository.Store
	Cache           cache.Cache
	Dispatcher      *dispatch.Dispatcher
	Audit           AuditSink
	Notifier        Notifier
	Points          gamification.PointsCatalog
	Achievements    *gamification.Catalog
	Calendar        gamification.Calendar
	ReviewPolicy    workflow.Policy
	SummaryTTL      time.Duration
	LeaderboardSize int
	Clock           func() time.Time
	Logger          zerolog.Logger
}

// Core runs each logical operation in one transaction and emits its audit and
// notification side effects once the transaction has committed.
type Core struct {
	store           repository.Store
	cache           cache.Cache
	dispatcher      *dispatch.Dispatcher
	audit           AuditSink
	notifier        Notifier
	points          gamification.PointsCatalog
	achievements    *gamification.Catalog
	calendar        gamification.Calendar
	policy          workflow.Policy
	summaryTTL      time.Duration
	leaderboardSize int
	generations     *cacheGenerations
	registry        *EntityRegistry
	sanitizer       *bluemonday.Policy
	now             func() time.Time
	logger          zerolog.Logger
	tracer          trace.Tracer
}

// NewCore validates the options and fills in defaults for the optional ports.
func NewCore(opts CoreOptions) (*Core, error) {
	if opts.Store == nil {
		return nil, errors.New("store is required")
	}
	if opts.Achievements == nil {
		return nil, errors.New("achievement catalog is required")
	}

	logger := opts.Logger.With().Str("component", "core").Logger()

	core := &Core{
		store:           opts.Store,
		cache:           opts.Cache,
		dispatcher:      opts.Dispatcher,
		audit:           opts.Audit,
		notifier:        opts.Notifier,
		points:          opts.Points,
		achievements:    opts.Achievements,
		calendar:        opts.Calendar,
		policy:          opts.ReviewPolicy,
		summaryTTL:      opts.SummaryTTL,
		leaderboardSize: opts.LeaderboardSize,
		generations:     newCacheGenerations(),
		sanitizer:       bluemonday.StrictPolicy(),
		now:             opts.Clock,
		logger:          logger,
		tracer:          otel.Tracer("github.com/noah-isme/gema-innovation-api/internal/service"),
	}

	if core.cache == nil {
		core.cache = cache.Noop()
	}
	if core.dispatcher == nil {
		core.dispatcher = dispatch.Inline(opts.Logger)
	}
	if core.audit == nil {
		core.audit = discardAudit{}
	}
	if core.notifier == nil {
		core.notifier = discardNotifier{}
	}
	if core.policy.MinReviews <= 0 {
		core.policy = workflow.DefaultPolicy()
	}
	if core.summaryTTL <= 0 {
		core.summaryTTL = 2 * time.Minute
	}
	if core.leaderboardSize <= 0 {
		core.leaderboardSize = 100
	}
	if core.now == nil {
		core.now = time.Now
	}

	core.registry = core.defaultEntityRegistry()
	return core, nil
}

// Registry exposes the related-entity registry so callers can add their own types.
func (c *Core) Registry() *EntityRegistry {
	return c.registry
}

// effects collects what one transaction attempt emits. Nothing here runs unless the transaction commits.
type effects struct {
	audits        []AuditEntry
	notifications []NotificationMessage
	committed     []func(ctx context.Context)
	entries       []models.PointLedgerEntry
	unlocked      []gamification.AchievementDefinition
	touched       map[uint]struct{}
}

func newEffects() *effects {
	return &effects{touched: map[uint]struct{}{}}
}

func (fx *effects) audit(entry AuditEntry) {
	fx.audits = append(fx.audits, entry)
}

func (fx *effects) notify(msg NotificationMessage) {
	if msg.UserID == 0 {
		return
	}
	fx.notifications = append(fx.notifications, msg)
}

func (fx *effects) onCommit(fn func(ctx context.Context)) {
	fx.committed = append(fx.committed, fn)
}

func (fx *effects) touch(userID uint) {
	if userID != 0 {
		fx.touched[userID] = struct{}{}
	}
}

func (fx *effects) earned() int {
	total := 0
	for _, entry := range fx.entries {
		total += entry.Points
	}
	return total
}

// run executes fn in a transaction, evaluates achievements for every user that
// earned points, commits and then flushes the side effects. A unique violation
// raised by a concurrent writer retries the whole transaction.
func (c *Core) run(ctx context.Context, fn func(tx repository.Store, fx *effects) error) (*effects, error) {
	var (
		fx  *effects
		err error
	)
	for attempt := 1; attempt <= maxConflictAttempts; attempt++ {
		fx = newEffects()
		err = c.store.Transaction(ctx, func(tx repository.Store) error {
			if err := fn(tx, fx); err != nil {
				return err
			}
			return c.evaluateTouched(ctx, tx, fx)
		})
		if !isRetryableConflict(err) {
			break
		}
		c.logger.Debug().Err(err).Int("attempt", attempt).Msg("transaction hit a concurrent write, retrying")
	}

	if err != nil {
		if isRetryableConflict(err) {
			return nil, &ConflictError{Reason: "operation conflicted with a concurrent update", Err: err}
		}
		return nil, err
	}

	c.flush(ctx, fx)
	return fx, nil
}

func isRetryableConflict(err error) bool {
	return err != nil && errors.Is(err, gorm.ErrDuplicatedKey) && !errors.Is(err, ErrConflict)
}

func (c *Core) evaluateTouched(ctx context.Context, tx repository.Store, fx *effects) error {
	users := make([]uint, 0, len(fx.touched))
	for userID := range fx.touched {
		users = append(users, userID)
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })

	for _, userID := range users {
		unlocked, err := c.evaluateAchievements(ctx, tx, fx, userID)
		if err != nil {
			return err
		}
		fx.unlocked = append(fx.unlocked, unlocked...)
	}
	return nil
}

func (c *Core) flush(ctx context.Context, fx *effects) {
	for _, fn := range fx.committed {
		fn(ctx)
	}

	// Jobs run on a detached context, so the request's correlation id is
	// copied onto each entry here.
	correlationID := middleware.CorrelationIDFromContext(ctx)
	for _, entry := range fx.audits {
		entry := entry
		if entry.CorrelationID == "" {
			entry.CorrelationID = correlationID
		}
		c.dispatcher.Enqueue("audit", func(ctx context.Context) error {
			_, err := c.audit.Record(ctx, entry)
			return err
		})
	}

	for _, msg := range fx.notifications {
		msg := msg
		c.dispatcher.Enqueue("notification", func(ctx context.Context) error {
			return c.notifier.Notify(ctx, msg)
		})
	}
}

func (c *Core) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := c.tracer.Start(ctx, name)
	span.SetAttributes(attrs...)
	return ctx, span
}

// failSpan records err on the span and hands it back unchanged.
func failSpan(span trace.Span, err error, status string) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, status)
	return err
}

func (c *Core) clean(value string) string {
	return c.sanitizer.Sanitize(value)
}

type discardAudit struct{}

func (discardAudit) Record(context.Context, AuditEntry) (uint, error) { return 0, nil }

type discardNotifier struct{}

func (discardNotifier) Notify(context.Context, NotificationMessage) error { return nil }
