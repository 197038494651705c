package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	listingapp "github.com/crosspost/backend/internal/application/listing"
	shoppingapp "github.com/crosspost/backend/internal/application/shopping"
	syncapp "github.com/crosspost/backend/internal/application/sync"
	"github.com/crosspost/backend/internal/domain/shared"
	syncdomain "github.com/crosspost/backend/internal/domain/sync"
	"github.com/crosspost/backend/internal/infrastructure/cache"
	"github.com/crosspost/backend/internal/infrastructure/config"
	"github.com/crosspost/backend/internal/infrastructure/event"
	"github.com/crosspost/backend/internal/infrastructure/logger"
	"github.com/crosspost/backend/internal/infrastructure/marketplace"
	"github.com/crosspost/backend/internal/infrastructure/notification"
	"github.com/crosspost/backend/internal/infrastructure/persistence"
	"github.com/crosspost/backend/internal/infrastructure/scheduler"
	"github.com/crosspost/backend/internal/infrastructure/storage"
	"github.com/crosspost/backend/internal/infrastructure/telemetry"
	"github.com/crosspost/backend/internal/interfaces/http/handler"
	"github.com/crosspost/backend/internal/interfaces/http/middleware"
	"github.com/crosspost/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

//	@title			Cross-Poster Backend API
//	@version		1.0
//	@description	Multi-platform listing sync backend for resellers. Posts unified listings to marketplaces and reconciles sold items across them.

//	@contact.name	API Support
//	@contact.url	https://github.com/crosspost/backend

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Cross-Poster Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize database connection with zap-backed GORM logging
	gormLogger := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLogger)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize tracing and metrics
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	meterProvider, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(ctx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	// Database query tracing (otelgorm)
	if cfg.Telemetry.DBTraceEnabled {
		dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         true,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		}, log)
		if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
			log.Warn("Failed to register database tracing", zap.Error(err))
		}
	}

	// Database query metrics next to tracing, sharing the slow-query threshold
	dbMetrics, err := telemetry.RegisterDBMetrics(db.DB, meterProvider.Meter("crosspost.db"), telemetry.DBMetricsConfig{
		Enabled:            cfg.Telemetry.Enabled,
		SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
	}, log)
	if err != nil {
		log.Warn("Failed to register database metrics, continuing without", zap.Error(err))
	} else if dbMetrics != nil {
		dbMetrics.StartPoolSampling(context.Background())
		defer dbMetrics.Stop()
	}

	var syncMetrics syncapp.MetricsRecorder = syncapp.NopMetrics{}
	if cfg.Telemetry.Enabled {
		sm, err := telemetry.NewSyncMetrics(telemetry.SyncMetricsConfig{
			Meter:  meterProvider.Meter("crosspost.sync"),
			Logger: log,
		})
		if err != nil {
			log.Warn("Failed to initialize sync metrics, continuing without", zap.Error(err))
		} else {
			syncMetrics = sm
		}
	}

	// Initialize repositories
	listingRepo := persistence.NewGormListingRepository(db.DB)
	platformListingRepo := persistence.NewGormPlatformListingRepository(db.DB)
	syncLogRepo := persistence.NewGormSyncLogRepository(db.DB)

	// Marketplace adapters, one per configured platform
	adapters := make([]syncdomain.PlatformAdapter, 0, len(cfg.Sync.Platforms))
	for _, code := range cfg.Sync.Platforms {
		adapter, err := marketplace.NewStubAdapter(syncdomain.PlatformCode(code), marketplace.StubConfig{
			Latency:     cfg.Sync.StubLatency,
			FailureRate: cfg.Sync.StubFailureRate,
		}, log)
		if err != nil {
			log.Fatal("Failed to build marketplace adapter",
				zap.String("platform", code),
				zap.Error(err),
			)
		}
		adapters = append(adapters, adapter)
	}
	registry, err := marketplace.NewStaticRegistry(adapters...)
	if err != nil {
		log.Fatal("Failed to build adapter registry", zap.Error(err))
	}
	log.Info("Marketplace adapters configured", zap.Strings("platforms", cfg.Sync.Platforms))

	// Operator notifications go to the structured log, and optionally to a
	// Redis pub/sub channel for external consumers
	var notifier syncdomain.NotificationSink = notification.NewLogSink(log)
	if cfg.Notification.RedisEnabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("Error closing redis client", zap.Error(err))
			}
		}()
		channel := cfg.Notification.Channel
		if channel == "" {
			channel = notification.DefaultChannel
		}
		notifier = notification.NewFanoutSink(
			notification.NewLogSink(log),
			notification.NewRedisSink(redisClient, channel),
		)
		log.Info("Redis notification sink enabled", zap.String("channel", channel))
	}

	// Webhook idempotency store (Redis, with in-memory fallback)
	idempotencyStore, err := cache.NewIdempotencyStore(cfg.Redis, log, true)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		if err := idempotencyStore.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	// Initialize event bus and handlers
	eventBus := event.NewInMemoryEventBus(log)

	// The activity handler is wrapped so redelivered events are only
	// logged once; it shares the webhook idempotency store
	activityHandler := syncapp.NewActivityHandler(log)
	eventBus.Subscribe(event.NewIdempotentHandler(activityHandler, idempotencyStore, log))

	log.Info("Event handlers registered",
		zap.Strings("activity_events", activityHandler.EventTypes()),
	)

	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Object storage for listing photos
	var objectStorage listingapp.ObjectStorageService
	switch cfg.Storage.Provider {
	case "stub":
		objectStorage = storage.NewStubPhotoStorage()
		log.Info("Using stub object storage")
	default:
		s3Storage, err := storage.NewS3PhotoStorage(&cfg.Storage,
			storage.WithLogger(log),
			storage.WithPresignExpiration(cfg.Storage.PresignExpiry),
		)
		if err != nil {
			log.Fatal("Failed to initialize object storage", zap.Error(err))
		}
		if err := s3Storage.EnsureBucket(context.Background()); err != nil {
			log.Warn("Failed to ensure storage bucket", zap.Error(err))
		}
		objectStorage = s3Storage
		log.Info("Object storage connected", zap.String("bucket", cfg.Storage.Bucket))
	}

	// Initialize application services
	listingService := listingapp.NewService(listingRepo, objectStorage, log)
	orchestrator := syncapp.NewOrchestrator(
		listingRepo,
		platformListingRepo,
		syncLogRepo,
		registry,
		notifier,
		eventBus,
		syncMetrics,
		log,
		syncapp.Config{
			RetryCeiling:   cfg.Sync.RetryCeiling,
			AdapterTimeout: cfg.Sync.AdapterTimeout,
			CancelDelay:    cfg.Sync.CancelDelay,
			RetryBatchSize: cfg.Sync.RetryBatchSize,
		},
	)
	saleEventService := syncapp.NewSaleEventService(
		orchestrator,
		platformListingRepo,
		idempotencyStore,
		shared.IdempotencyConfig{TTL: cfg.Notification.IdempotencyTTL, Enabled: true},
		log,
	)
	profitCalculator := shoppingapp.NewProfitCalculator(nil)

	// Background sweeper for retries, scheduled cancellations, and archival
	if cfg.Sync.SweeperEnabled {
		sweeper := scheduler.NewSyncSweeper(scheduler.SyncSweeperConfig{
			Interval:     cfg.Sync.SweepInterval,
			ArchiveAfter: cfg.Sync.ArchiveAfter,
		}, orchestrator, listingService, log)
		if err := sweeper.Start(context.Background()); err != nil {
			log.Fatal("Failed to start sync sweeper", zap.Error(err))
		}
		defer func() {
			if err := sweeper.Stop(context.Background()); err != nil {
				log.Error("Error stopping sync sweeper", zap.Error(err))
			}
		}()
		log.Info("Sync sweeper started",
			zap.Duration("interval", cfg.Sync.SweepInterval),
			zap.Duration("archive_after", cfg.Sync.ArchiveAfter),
		)
	}

	// Initialize HTTP handlers
	listingHandler := handler.NewListingHandler(listingService)
	syncHandler := handler.NewSyncHandler(orchestrator, platformListingRepo, syncLogRepo)
	webhookHandler := handler.NewWebhookHandler(saleEventService)
	shoppingHandler := handler.NewShoppingHandler(profitCalculator)
	systemHandler := handler.NewSystemHandler(db)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Tracing/Metrics - Instrument requests (if enabled)
	// 5. Security - Add security headers
	// 6. CORS - Handle cross-origin requests
	// 7. BodyLimit - Limit request body size
	// 8. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))

	if cfg.Telemetry.Enabled {
		engine.Use(middleware.Tracing())
		engine.Use(middleware.SpanErrorMarker())
		engine.Use(middleware.HTTPMetricsWithMeter(meterProvider.Meter("crosspost.http"), true))
	}

	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Rate limiting (if enabled)
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", systemHandler.Health)

	// Marketplace webhook endpoints. Called by external platforms, so they
	// sit outside the versioned API surface and get their own rate limit.
	webhookLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
	webhookGroup := engine.Group("/api/v1/webhooks")
	webhookGroup.Use(middleware.WebhookRateLimit(webhookLimiter))
	webhookGroup.POST("/sale-events", webhookHandler.HandleSaleEvent)

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Listings domain (unified listings, photos, cross-posting)
	listingRoutes := router.NewDomainGroup("listings", "/listings")
	listingRoutes.POST("", listingHandler.Create).
		GET("", listingHandler.List).
		GET("/:id", listingHandler.GetByID).
		PUT("/:id", listingHandler.Update).
		DELETE("/:id", listingHandler.Delete).
		POST("/:id/archive", listingHandler.Archive).
		POST("/:id/photos", listingHandler.RequestPhotoUpload).
		GET("/:id/photos/url", listingHandler.PhotoDownloadURL).
		POST("/:id/post", syncHandler.PostToAll).
		POST("/:id/sold", syncHandler.MarkSold).
		GET("/:id/status", syncHandler.GetStatus)

	// Sync domain (maintenance passes, audit trail)
	syncRoutes := router.NewDomainGroup("sync", "/sync")
	syncRoutes.POST("/retries", syncHandler.RetryFailedPosts).
		POST("/cancellations", syncHandler.ProcessScheduledCancellations).
		GET("/log", syncHandler.GetSyncLog)

	// Shopping domain (sourcing profit estimates)
	shoppingRoutes := router.NewDomainGroup("shopping", "/shopping")
	shoppingRoutes.POST("/estimate", shoppingHandler.EstimateProfit)

	// System domain (health, info)
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo).
		GET("/ping", systemHandler.Ping).
		GET("/health", systemHandler.Health)

	r.Register(listingRoutes).
		Register(syncRoutes).
		Register(shoppingRoutes).
		Register(systemRoutes)

	// Setup all registered routes
	r.Setup()

	// Simple ping endpoint for connectivity checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in a goroutine
	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
