package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-innovation-api/internal/config"
	"github.com/noah-isme/gema-innovation-api/internal/database"
	"github.com/noah-isme/gema-innovation-api/internal/dispatch"
	"github.com/noah-isme/gema-innovation-api/internal/gamification"
	"github.com/noah-isme/gema-innovation-api/internal/handler"
	"github.com/noah-isme/gema-innovation-api/internal/middleware"
	"github.com/noah-isme/gema-innovation-api/internal/repository"
	"github.com/noah-isme/gema-innovation-api/internal/router"
	"github.com/noah-isme/gema-innovation-api/internal/service"
	"github.com/noah-isme/gema-innovation-api/pkg/cache"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()

	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("%v", err)
	}

	var redisClient *redis.Client
	summaryCache := cache.Noop()
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
		summaryCache = cache.NewRedis(redisClient, cfg.RealtimeChannel)
	} else {
		logger.Warn().Msg("redis url not set; summaries are not cached and notifications stay on this node")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
	}

	catalog, err := loadCatalog(cfg)
	if err != nil {
		log.Fatalf("failed to load achievement catalog: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	dispatcher := dispatch.New(dispatch.Config{
		Workers:    cfg.DispatchWorkers,
		BufferSize: cfg.DispatchBuffer,
		JobTimeout: cfg.DispatchJobTimeout,
	}, logger)
	defer dispatcher.Close()

	auditService := service.NewAuditService(repository.NewActivityLogRepository(db), validate, logger)
	notificationService := service.NewNotificationService(repository.NewNotificationRepository(db), redisClient, cfg.RealtimeChannel, natsConn, validate, logger)

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()
	notificationService.Start(rootCtx)

	core, err := service.NewCore(service.CoreOptions{
		Store:           repository.NewStore(db),
		Cache:           summaryCache,
		Dispatcher:      dispatcher,
		Audit:           auditService,
		Notifier:        notificationService,
		Points:          cfg.Points,
		Achievements:    catalog,
		Calendar:        gamification.NewCalendar(cfg.Location),
		ReviewPolicy:    cfg.ReviewPolicy,
		SummaryTTL:      cfg.SummaryCacheTTL,
		LeaderboardSize: cfg.LeaderboardSize,
		Logger:          logger,
	})
	if err != nil {
		log.Fatalf("failed to build workflow core: %v", err)
	}

	submissionService := service.NewSubmissionService(core, validate, logger)
	reviewService := service.NewReviewService(core, validate, logger)
	gamificationService := service.NewGamificationService(core, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	probes := []handler.HealthProbe{{
		Name: "database",
		Check: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}}
	if redisClient != nil {
		probes = append(probes, handler.HealthProbe{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	}

	middleware.Register(app, middleware.Config{
		Logger:       &logger,
		AllowOrigins: cfg.CORSAllowOrigins,
		AccessLog:    cfg.AppEnv == "development",
	})
	router.Register(app, cfg, router.Dependencies{
		SubmissionHandler:   handler.NewSubmissionHandler(submissionService, reviewService, logger),
		GamificationHandler: handler.NewGamificationHandler(gamificationService, logger),
		NotificationHandler: handler.NewNotificationHandler(notificationService, logger, 30*time.Second),
		AuditHandler:        handler.NewAuditHandler(auditService, logger),
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
		HealthProbes:        probes,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func loadCatalog(cfg config.Config) (*gamification.Catalog, error) {
	if cfg.AchievementsFile != "" {
		return gamification.LoadCatalogFile(cfg.AchievementsFile)
	}
	return gamification.DefaultCatalog()
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
