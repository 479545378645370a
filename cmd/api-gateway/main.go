package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/airconnect-api/api/swagger"
	"github.com/noah-isme/airconnect-api/internal/handler"
	"github.com/noah-isme/airconnect-api/internal/middleware"
	"github.com/noah-isme/airconnect-api/internal/repository"
	"github.com/noah-isme/airconnect-api/internal/service"
	"github.com/noah-isme/airconnect-api/pkg/cache"
	"github.com/noah-isme/airconnect-api/pkg/config"
	"github.com/noah-isme/airconnect-api/pkg/database"
	"github.com/noah-isme/airconnect-api/pkg/jobs"
	"github.com/noah-isme/airconnect-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/airconnect-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/airconnect-api/pkg/middleware/requestid"
	"github.com/noah-isme/airconnect-api/pkg/push"
	"github.com/noah-isme/airconnect-api/pkg/storage"
)

// @title AirConnect API
// @version 1.0.0
// @description Campus platform API: announcements, job postings, student applications and live notifications.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The directory cache degrades to direct reads without Redis.
		logr.Sugar().Warnw("redis unavailable, continuing without cache", "error", err)
		redisClient = nil
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := service.NewMetricsService()

	hub := push.NewHub(logr)
	hub.OnSessionChange(metrics.WSConnected)
	go hub.Run()
	defer hub.Close()

	dispatcher := push.NewDispatcher(hub, jobs.QueueConfig{
		Workers:    cfg.Push.Workers,
		BufferSize: cfg.Push.BufferSize,
		MaxRetries: cfg.Push.MaxRetries,
		RetryDelay: cfg.Push.RetryDelay,
		Logger:     logr,
	}, logr)
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	mediaFiles, err := storage.NewLocalStorage(filepath.Join(cfg.Media.StorageDir, "media"))
	if err != nil {
		logr.Sugar().Fatalw("media storage init failed", "error", err)
	}
	exportFiles, err := storage.NewLocalStorage(filepath.Join(cfg.Media.StorageDir, "exports"))
	if err != nil {
		logr.Sugar().Fatalw("export storage init failed", "error", err)
	}

	mediaStore := storage.NewRetryingMediaStore(
		storage.NewLocalMediaStore(mediaFiles, "/media"),
		cfg.Media.UploadRetries,
		cfg.Media.UploadRetryDelay,
		logr,
	)
	signer := storage.NewSignedURLSigner(cfg.Media.SignedURLSecret, cfg.Media.SignedURLTTL)

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	announcementRepo := repository.NewAnnouncementRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	jobRepo := repository.NewJobRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     "airconnect-api",
	})
	directorySvc := service.NewDirectoryService(userRepo, batchRepo, cacheRepo, metrics, cfg.Directory.CacheTTL, logr)
	notificationSvc := service.NewNotificationService(notificationRepo, dispatcher, metrics, logr)
	announcementSvc := service.NewAnnouncementService(announcementRepo, directorySvc, mediaStore, notificationSvc, validate, logr)
	applicationSvc := service.NewApplicationService(applicationRepo, directorySvc, mediaStore, notificationSvc, validate, logr)
	jobSvc := service.NewJobService(jobRepo, directorySvc, mediaStore, notificationSvc, validate, logr)
	exportSvc := service.NewExportService(applicationRepo, exportFiles, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Media.SignedURLTTL,
		Enabled:   cfg.Exports.Enabled,
	}, logr, nil, nil)

	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed, err := exportSvc.Cleanup(); err != nil {
					logr.Sugar().Warnw("export cleanup failed", "error", err)
				} else if len(removed) > 0 {
					logr.Sugar().Infow("expired exports removed", "count", len(removed))
				}
			}
		}
	}()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	r.Static("/media", filepath.Join(cfg.Media.StorageDir, "media"))

	handler.Routes{
		Auth:          handler.NewAuthHandler(authSvc),
		Announcements: handler.NewAnnouncementHandler(announcementSvc, authSvc, cfg.Media.MaxFileSizeBytes),
		Applications:  handler.NewApplicationHandler(applicationSvc, exportSvc, authSvc, cfg.Media.MaxFileSizeBytes),
		Jobs:          handler.NewJobHandler(jobSvc, authSvc, cfg.Media.MaxFileSizeBytes),
		Notifications: handler.NewNotificationHandler(notificationSvc),
		Push:          handler.NewPushHandler(hub, logr),
		AuthService:   authSvc,
		Metrics:       metrics,
		APIPrefix:     cfg.APIPrefix,
	}.Register(r)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
