package main

import (
	"alcyxob/training-service/internal/api"
	"alcyxob/training-service/internal/cache"
	"alcyxob/training-service/internal/client"
	"alcyxob/training-service/internal/config"
	"alcyxob/training-service/internal/events"
	"alcyxob/training-service/internal/listener"
	"alcyxob/training-service/internal/logging"
	"alcyxob/training-service/internal/repository/mongo"
	"alcyxob/training-service/internal/restriction"
	"alcyxob/training-service/internal/service"
	"alcyxob/training-service/internal/storage"
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// overrideSweepInterval is how often overrides past their expiry date are closed.
const overrideSweepInterval = time.Hour

// @title Training Service API
// @version 1.0
// @description Workout assignments, player overrides and medical compliance.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("FATAL: Could not build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting training service", zap.String("address", cfg.Server.Address))

	if cfg.JWT.Secret == "" {
		logger.Fatal("jwt.secret must be set")
	}

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		logger.Fatal("could not connect to MongoDB", zap.Error(err))
	}
	defer func() {
		logger.Info("disconnecting MongoDB")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			logger.Error("failed to disconnect MongoDB", zap.Error(err))
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)

	// Unique indexes back the idempotent upserts, so they must exist before serving.
	indexCtx, cancelIndexes := context.WithTimeout(context.Background(), time.Minute)
	if err := mongo.EnsureIndexes(indexCtx, appDB); err != nil {
		cancelIndexes()
		logger.Fatal("could not ensure indexes", zap.Error(err))
	}
	cancelIndexes()

	// --- Cache ---
	var appCache cache.Cache
	switch cfg.Cache.Backend {
	case "mongo":
		mc := cache.NewMongoCache(appDB, cfg.Cache.Collection)
		cacheCtx, cancelCache := context.WithTimeout(context.Background(), 30*time.Second)
		if err := mc.EnsureIndexes(cacheCtx); err != nil {
			logger.Warn("cache TTL index not created; expired entries are still ignored on read", zap.Error(err))
		}
		cancelCache()
		appCache = mc
	default:
		appCache = cache.NewMemoryCache()
	}
	logger.Info("cache ready", zap.String("backend", cfg.Cache.Backend))

	// --- Storage ---
	var reportStorage storage.FileStorage = storage.NoopStorage{}
	if cfg.S3.BucketName != "" {
		s3Ctx, cancelS3 := context.WithTimeout(context.Background(), 30*time.Second)
		reportStorage, err = storage.NewS3Storage(s3Ctx, cfg.S3, logger)
		cancelS3()
		if err != nil {
			logger.Fatal("failed to initialize S3 storage", zap.Error(err))
		}
	} else {
		logger.Warn("no report bucket configured; compliance reports cannot be archived")
	}

	// --- Events & Upstream Clients ---
	bus := events.NewLocalBus(logger.Named("bus"))
	publisher := events.NewPublisher(bus, cfg.Events.Source, cfg.Events.RetryAttempts, cfg.Events.RetryDelay, logger.Named("events"))

	medicalClient := client.NewMedicalClient(client.Options{
		BaseURL:      cfg.Medical.BaseURL,
		Timeout:      cfg.Medical.Timeout,
		ServiceToken: cfg.Medical.ServiceToken,
	})
	planningClient := client.NewPlanningClient(client.Options{
		BaseURL:      cfg.Planning.BaseURL,
		Timeout:      cfg.Planning.Timeout,
		ServiceToken: cfg.Planning.ServiceToken,
	})

	// --- Repositories ---
	assignmentRepo := mongo.NewMongoAssignmentRepository(appDB)
	overrideRepo := mongo.NewMongoOverrideRepository(appDB)
	sessionRepo := mongo.NewMongoSessionRepository(appDB)
	exerciseRepo := mongo.NewMongoExerciseRepository(appDB)
	rosterRepo := mongo.NewMongoRosterRepository(appDB)
	reportRepo := mongo.NewMongoReportRepository(appDB)
	workoutTypeRepo := mongo.NewMongoWorkoutTypeRepository(appDB)

	// --- Services ---
	overrideService := service.NewOverrideService(overrideRepo, assignmentRepo, publisher, logger.Named("overrides"))
	assignmentService := service.NewAssignmentService(assignmentRepo, overrideRepo, sessionRepo, rosterRepo,
		overrideService, planningClient, publisher, appCache, cfg.Cache.AssignmentsTTL, logger.Named("assignments"))
	complianceService := service.NewComplianceService(sessionRepo, assignmentRepo, overrideRepo, exerciseRepo,
		reportRepo, reportStorage, appCache, cfg.Cache.ComplianceTTL, logger.Named("compliance"))
	finder := restriction.NewFinder(exerciseRepo, appCache, cfg.Cache.AlternativesTTL, logger.Named("alternatives"))
	medicalSyncService := service.NewMedicalSyncService(medicalClient, overrideService, assignmentRepo, sessionRepo,
		exerciseRepo, finder, publisher, logger.Named("medical-sync"))
	planningService := service.NewPlanningService(planningClient, assignmentRepo, overrideService, assignmentService,
		publisher, appCache, service.PlanningCacheTTLs{
			Phase: cfg.Cache.PhaseTTL,
			Plan:  cfg.Cache.PlanTTL,
			Stale: cfg.Cache.StaleTTL,
		}, logger.Named("planning"))
	exerciseService := service.NewExerciseService(exerciseRepo)
	workoutTypeService := service.NewWorkoutTypeService(workoutTypeRepo)

	// Override changes invalidate the cached views that depend on them.
	overrideService.OnPlayerChange(complianceService.InvalidatePlayer)
	overrideService.OnPlayerChange(assignmentService.InvalidatePlayer)

	listener.New(planningService, medicalSyncService, logger).Register(bus)

	// --- HTTP ---
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	api.SetupRoutes(router, cfg.JWT.Secret, logger.Named("http"), api.Services{
		Assignment:  assignmentService,
		Override:    overrideService,
		MedicalSync: medicalSyncService,
		Compliance:  complianceService,
		Planning:    planningService,
		Exercise:    exerciseService,
		WorkoutType: workoutTypeService,
		Bus:         bus,
	})

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go sweepExpiredOverrides(ctx, overrideService, logger)

	go func() {
		logger.Info("server listening", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("listen failed", zap.Error(err))
			stop()
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	logger.Info("shutting down server")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("server exiting")
}

// sweepExpiredOverrides closes overrides whose expiry date has passed until ctx ends.
func sweepExpiredOverrides(ctx context.Context, overrides service.OverrideService, logger *zap.Logger) {
	ticker := time.NewTicker(overrideSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := overrides.ExpireDue(ctx, now.UTC())
			if err != nil {
				logger.Error("override expiry sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Info("expired overrides", zap.Int("count", n))
			}
		}
	}
}
