package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"clipstream/config"
	"clipstream/internal/events"
	"clipstream/internal/handler"
	"clipstream/internal/middleware"
	"clipstream/internal/netquality"
	"clipstream/internal/queue"
	"clipstream/internal/storage"
	"clipstream/internal/store"
	"clipstream/internal/uploader"
	"clipstream/pkg/logger"
)

func main() {
	cfg := config.LoadConfig()

	appLogger := logger.New(cfg.AppMode)
	defer appLogger.Sync()

	ctx := context.Background()

	records, err := store.NewPostgresRecordStore(ctx, store.PostgresConfig{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Name:     cfg.DBName,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer records.Close()

	blobs, err := storage.NewClient(ctx, storage.S3Config{
		Region:     cfg.S3Region,
		Bucket:     cfg.S3Bucket,
		AccessKey:  cfg.S3AccessKey,
		SecretKey:  cfg.S3SecretKey,
		Endpoint:   cfg.S3Endpoint,
		PublicBase: cfg.S3PublicBase,
	})
	if err != nil {
		log.Fatalf("Failed to initialize object storage: %v", err)
	}

	monitor := netquality.NewHTTPMonitor(cfg.ProbeURL, 5*time.Second)

	controller := uploader.New(blobs, monitor, uploader.Config{
		Timeouts: netquality.TimeoutConfig{
			PerMBFast:     cfg.Upload.PerMBFast,
			PerMBModerate: cfg.Upload.PerMBModerate,
			PerMBSlow:     cfg.Upload.PerMBSlow,
			PerMBUnknown:  cfg.Upload.PerMBUnknown,
			Floor:         cfg.Upload.TimeoutFloor,
			Ceiling:       cfg.Upload.TimeoutCeiling,
		},
		WatchdogInterval:   cfg.Upload.WatchdogInterval,
		StallThreshold:     cfg.Upload.StallThreshold,
		SlowStallThreshold: cfg.Upload.SlowStallThreshold,
		StartupGrace:       cfg.Upload.StartupGrace,
	}, appLogger)

	uploadQueue := queue.New(controller, records, queue.Config{
		Collection:         cfg.MediaCollection,
		CompletedRetention: cfg.Upload.CompletedRetention,
		VideoTimeoutHint:   cfg.Upload.VideoTimeoutHint,
		MaxPayloadBytes:    cfg.Upload.MaxPayloadBytes,
	}, appLogger)

	redisClient := events.NewRedisClient(events.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		appLogger.Warnf("redis unavailable, snapshot mirroring disabled: %v", err)
	} else {
		uploadQueue.SetPublisher(events.NewRedisPublisher(redisClient))
	}

	if cfg.AppMode == logger.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggingMiddleware(appLogger))
	r.Use(middleware.ErrorHandler(appLogger))

	uploadHandler := handler.NewUploadHandler(uploadQueue, monitor, appLogger)
	subscribeHandler := handler.NewSubscribeHandler(uploadQueue, appLogger)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	{
		api.POST("/uploads", uploadHandler.Submit)
		api.POST("/uploads/:id/retry", uploadHandler.Retry)
		api.POST("/uploads/:id/cancel", uploadHandler.Cancel)
		api.GET("/uploads/status", uploadHandler.Status)
		api.GET("/uploads/estimate", uploadHandler.Estimate)
		api.GET("/uploads/subscribe", subscribeHandler.Connect)
	}

	appLogger.Infof("Starting server on port %s", cfg.AppPort)
	if err := r.Run(fmt.Sprintf(":%s", cfg.AppPort)); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
