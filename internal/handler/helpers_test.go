package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-innovation-api/internal/config"
	"github.com/noah-isme/gema-innovation-api/internal/gamification"
	"github.com/noah-isme/gema-innovation-api/internal/handler"
	"github.com/noah-isme/gema-innovation-api/internal/models"
	"github.com/noah-isme/gema-innovation-api/internal/repository"
	"github.com/noah-isme/gema-innovation-api/internal/router"
	"github.com/noah-isme/gema-innovation-api/internal/service"
	"github.com/noah-isme/gema-innovation-api/internal/workflow"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

type testApp struct {
	app   *fiber.App
	store repository.Store
}

// headerAuth stands in for the JWT middleware: X-User-ID and X-User-Roles become the request identity.
func headerAuth(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Get("X-User-ID"), 10, 64)
	if err != nil || id == 0 {
		return fiber.ErrUnauthorized
	}
	c.Locals("user_id", uint(id))

	roles := make([]string, 0)
	for _, role := range strings.Split(c.Get("X-User-Roles"), ",") {
		if role = strings.TrimSpace(role); role != "" {
			roles = append(roles, role)
		}
	}
	c.Locals("user_roles", roles)
	return c.Next()
}

func setupApp(t *testing.T) *testApp {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	catalog, err := gamification.DefaultCatalog()
	require.NoError(t, err)

	auditService := service.NewAuditService(repository.NewActivityLogRepository(db), validate, logger)
	notificationService := service.NewNotificationService(repository.NewNotificationRepository(db), nil, "", nil, validate, logger)

	store := repository.NewStore(db)
	core, err := service.NewCore(service.CoreOptions{
		Store:        store,
		Audit:        auditService,
		Notifier:     notificationService,
		Points:       gamification.DefaultPointsCatalog(),
		Achievements: catalog,
		Calendar:     gamification.NewCalendar(nil),
		ReviewPolicy: workflow.DefaultPolicy(),
		Logger:       logger,
	})
	require.NoError(t, err)

	app := fiber.New()
	router.Register(app, config.Config{AppName: "Test", AppEnv: "test", JWTSecret: "secret"}, router.Dependencies{
		SubmissionHandler:   handler.NewSubmissionHandler(service.NewSubmissionService(core, validate, logger), service.NewReviewService(core, validate, logger), logger),
		GamificationHandler: handler.NewGamificationHandler(service.NewGamificationService(core, validate, logger), logger),
		NotificationHandler: handler.NewNotificationHandler(notificationService, logger, 0),
		AuditHandler:        handler.NewAuditHandler(auditService, logger),
		JWTMiddleware:       headerAuth,
	})

	return &testApp{app: app, store: store}
}

func (a *testApp) seedUser(t *testing.T, id uint, roles ...string) {
	t.Helper()
	ctx := context.Background()
	user := models.User{ID: id, Name: fmt.Sprintf("user-%d", id), Email: fmt.Sprintf("user-%d@example.com", id)}
	require.NoError(t, a.store.Users().Create(ctx, &user))
	require.NoError(t, a.store.Users().GrantRoles(ctx, id, roles...))
}

// do sends a request as the given user and decodes the response envelope.
func (a *testApp) do(t *testing.T, method, path string, userID uint, roles string, body interface{}) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != 0 {
		req.Header.Set("X-User-ID", strconv.FormatUint(uint64(userID), 10))
		req.Header.Set("X-User-Roles", roles)
	}

	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out envelope
	if resp.StatusCode != http.StatusUnauthorized {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func decodeData(t *testing.T, env envelope, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, dest))
}
