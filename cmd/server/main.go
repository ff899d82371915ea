// Package main runs the LMS recording ingestion HTTP server: the Zoom
// webhook endpoint, the archived-lessons read API and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/AleksandraCheidze/LMS-sub001/config"
	"github.com/AleksandraCheidze/LMS-sub001/internal/archive"
	"github.com/AleksandraCheidze/LMS-sub001/internal/auth"
	"github.com/AleksandraCheidze/LMS-sub001/internal/lessons"
	"github.com/AleksandraCheidze/LMS-sub001/internal/middleware"
	"github.com/AleksandraCheidze/LMS-sub001/internal/worker"
	"github.com/AleksandraCheidze/LMS-sub001/internal/zoom"
	"github.com/AleksandraCheidze/LMS-sub001/pkg/database"
	"github.com/AleksandraCheidze/LMS-sub001/pkg/queue"
	"github.com/AleksandraCheidze/LMS-sub001/pkg/redis"
	"github.com/AleksandraCheidze/LMS-sub001/pkg/response"
	"github.com/AleksandraCheidze/LMS-sub001/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			ArchiveBucket:        cfg.AWS.ArchiveBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	loc, err := time.LoadLocation(cfg.Archive.Timezone)
	if err != nil {
		logger.Fatal("archive timezone", zap.Error(err), zap.String("timezone", cfg.Archive.Timezone))
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)

	// Ingestion pipeline
	repo := archive.NewRepository(pool)
	keys := archive.NewKeyBuilder(loc)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	registrar := archive.NewRegistrar(repo, keys, jobQueue, logger)
	verifier := zoom.NewVerifier(cfg.Zoom.WebhookSecret)
	tolerance := time.Duration(cfg.Zoom.ToleranceSec) * time.Second
	webhookHandler := zoom.NewWebhookHandler(verifier, registrar, tolerance, logger)

	// Read API
	grouper := archive.NewGrouper(logger)
	lessonHandler := lessons.NewHandler(repo, grouper, s3Client, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Webhooks (no JWT; authenticated by signature in the handler)
	router.POST("/webhooks/zoom", webhookHandler.HandleEvent)

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.GET("/cohorts/:id/lessons", lessonHandler.ListByCohort)
		api.GET("/files/:id/download-url", middleware.RequireRole("admin", "teacher"), lessonHandler.GenerateDownloadURL)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background worker (archive file transfer to S3)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if s3Client != nil {
		processor := worker.NewTransferProcessor(repo, s3Client, jobQueue, logger)
		go processor.Run(workerCtx)
		logger.Info("transfer worker started")
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
