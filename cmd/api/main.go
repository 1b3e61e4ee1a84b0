package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-classroom/internal/config"
	"github.com/noah-isme/gema-classroom/internal/database"
	"github.com/noah-isme/gema-classroom/internal/handler"
	"github.com/noah-isme/gema-classroom/internal/middleware"
	"github.com/noah-isme/gema-classroom/internal/repository"
	"github.com/noah-isme/gema-classroom/internal/router"
	"github.com/noah-isme/gema-classroom/internal/service"
	"github.com/noah-isme/gema-classroom/pkg/ai"
	cloud "github.com/noah-isme/gema-classroom/pkg/cloudinary"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := database.ConnectPostgres(cfg.DatabaseURL, database.PostgresOptions{
		MaxOpenConns:    cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: cfg.DatabaseConnLifetime,
		SlowThreshold:   cfg.DatabaseSlowQuery,
		Logger:          logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	if redisClient != nil {
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis url not set; caching and cross-node events disabled")
	}

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to nats")
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	var storage service.FileStorage
	cloudCfg := cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}
	if cloudCfg.Enabled() {
		uploader, err := cloud.New(cloudCfg, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create cloudinary client")
		}
		storage = uploader
	} else {
		logger.Warn().Msg("cloudinary credentials not set; uploads disabled")
	}

	var drafter ai.Drafter
	if cfg.AIProvider == "openai" && cfg.OpenAIAPIKey != "" {
		openai, err := ai.NewOpenAIDrafter(ai.OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.OpenAIModel,
			Logger: logger,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create feedback drafter")
		}
		drafter = openai
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	maxUploadBytes := int64(cfg.UploadMaxSizeMB) * 1024 * 1024

	userRepo := repository.NewUserRepository(db)
	cohortRepo := repository.NewCohortRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	resourceRepo := repository.NewResourceRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	uploadRepo := repository.NewUploadRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := service.NewSubmissionEvents(redisClient, natsConn, cfg.EventChannel, logger)
	events.Start(rootCtx)

	activityService := service.NewActivityService(activityRepo, validate, logger)
	dashboardService := service.NewStudentDashboardService(assignmentRepo, submissionRepo, userRepo, redisClient, cfg.DashboardCacheTTL, logger)
	submissionService := service.NewSubmissionService(submissionRepo, assignmentRepo, validate, events, activityService, dashboardService, maxUploadBytes, logger)
	assignmentService := service.NewAssignmentService(assignmentRepo, userRepo, validate, storage, activityService, redisClient, cfg.ListCacheTTL, logger)
	cohortService := service.NewCohortService(cohortRepo, userRepo, validate, activityService, logger)
	userService := service.NewUserService(userRepo, validate, activityService, logger)
	sessionService := service.NewSessionService(sessionRepo, cohortRepo, userRepo, validate, activityService, logger)
	resourceService := service.NewResourceService(resourceRepo, categoryRepo, validate, activityService, logger)
	categoryService := service.NewCategoryService(categoryRepo, validate, activityService, logger)
	feedbackService := service.NewFeedbackService(submissionRepo, drafter, activityService, logger)

	var uploadService service.UploadService
	if storage != nil {
		uploadService = service.NewUploadService(storage, uploadRepo, assignmentRepo, cfg.UploadMaxSizeMB, logger)
	}

	reaper := service.NewDraftReaper(submissionRepo, events, dashboardService, cfg.DraftRetention, logger)
	if err := reaper.Start(cfg.DraftReaperSchedule); err != nil {
		logger.Fatal().Err(err).Msg("failed to schedule draft reaper")
	}
	defer reaper.Stop()

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    int(maxUploadBytes) + 1024*1024,
	})

	middleware.Register(app, middleware.Config{
		Logger:       &logger,
		AllowOrigins: cfg.AllowOrigins,
		AccessLog:    cfg.AppEnv == "development",
	})

	probes := map[string]handler.HealthProbe{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if redisClient != nil {
		probes["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	router.Register(app, cfg, router.Dependencies{
		AssignmentHandler:       handler.NewAssignmentHandler(assignmentService, logger),
		SubmissionHandler:       handler.NewSubmissionHandler(submissionService, uploadService, feedbackService, logger),
		StudentDashboardHandler: handler.NewStudentDashboardHandler(dashboardService, logger),
		CohortHandler:           handler.NewCohortHandler(cohortService, logger),
		UserHandler:             handler.NewUserHandler(userService, logger),
		SessionHandler:          handler.NewSessionHandler(sessionService, logger),
		ResourceHandler:         handler.NewResourceHandler(resourceService, categoryService, logger),
		ActivityHandler:         handler.NewActivityHandler(activityService, logger),
		EventsHandler:           handler.NewEventsHandler(events, logger),
		JWTMiddleware:           middleware.JWTProtected(cfg.JWTSecret),
		UploadRateLimit:         cfg.UploadRateLimit,
		HealthProbes:            probes,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, logger)
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
