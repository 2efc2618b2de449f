package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"yuva/server/internal/api"
	"yuva/server/internal/auth"
	"yuva/server/internal/cache"
	"yuva/server/internal/config"
	"yuva/server/internal/db"
	"yuva/server/internal/email"
	"yuva/server/internal/logger"
	"yuva/server/internal/services"
	"yuva/server/internal/storage"
	"yuva/server/internal/tasks"
)

var runMode = flag.String("m", "all", "Run mode: 'api', 'bg' (background tasks), 'all' (default)")

func main() {
	flag.Parse()

	cfg, err := config.Load(*runMode)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	mongoClient, mongoDb, err := db.ConnectDB(cfg.MongoURI, cfg.MongoDbName, zl)
	if err != nil {
		zl.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.DisconnectDB(mongoClient, zl); err != nil {
			zl.Error("Error disconnecting from MongoDB", zap.Error(err))
		}
	}()

	indexCtx, cancelIndex := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.EnsureIndexes(indexCtx, mongoDb); err != nil {
		cancelIndex()
		zl.Fatal("Failed to ensure indexes", zap.Error(err))
	}
	cancelIndex()

	redisClient, err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, zl)
	if err != nil {
		zl.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := cache.DisconnectRedis(redisClient, zl); err != nil {
			zl.Error("Error disconnecting from Redis", zap.Error(err))
		}
	}()

	var images storage.IImageStorage
	if cfg.AwsS3Bucket != "" {
		images, err = storage.NewS3Storage(cfg, zl)
		if err != nil {
			zl.Fatal("Failed to initialize S3 storage", zap.Error(err))
		}
	} else {
		zl.Info("AWS_S3_BUCKET not set: image uploads and normalization disabled")
	}

	emailSender := setupEmailSender(cfg, redisClient, zl)

	taskClient := tasks.NewClient(redisClient)
	defer taskClient.Close()
	queue := tasks.NewQueue(taskClient, cfg.ImageBaseS3URL)

	store := db.NewMongoStore(mongoDb, zl)
	limiter := auth.NewFailureLimiter(cfg.AuthMaxFailedAttempts, cfg.AuthFailureWindow)
	authProvider := auth.NewMongoProvider(mongoDb, limiter, zl)
	listingCache := cache.NewListingCache(redisClient, cfg.GetCacheTTL, zl)

	deps := api.Deps{
		Store:    store,
		Sessions: services.NewSessionService(authProvider, store, zl),
		Listings: services.NewListingService(store, listingCache, queue, zl),
		Adoption: services.NewAdoptionService(store, queue, zl),
		Images:   images,
	}

	taskProcessor := tasks.NewTaskProcessor(cfg, emailSender, images, zl)

	var wg sync.WaitGroup

	shutdownChan := make(chan struct{}, 1)

	// The service API runs in every mode.
	serviceSrv := &http.Server{
		Addr:    ":" + cfg.ServiceApiPort,
		Handler: api.SetupServiceRouter(redisClient, shutdownChan, zl),
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		zl.Info("Service API listening", zap.String("port", cfg.ServiceApiPort))
		if err := serviceSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("Service API ListenAndServe error", zap.Error(err))
		}
	}()

	var mainApiSrv *http.Server
	var backgroundTaskSrv *asynq.Server

	zl.Info("Starting application", zap.String("mode", cfg.RunMode))

	apiMode := func() {
		mainApiSrv = &http.Server{
			Addr:    ":" + cfg.ApiPort,
			Handler: api.SetupRouter(cfg, deps, zl),
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			zl.Info("Main API listening", zap.String("port", cfg.ApiPort))
			if err := mainApiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zl.Fatal("Main API ListenAndServe error", zap.Error(err))
			}
		}()
	}

	bgMode := func() {
		backgroundTaskSrv = tasks.NewServer(redisClient, zl)
		wg.Add(1)
		go func() {
			defer wg.Done()
			zl.Info("Background task server starting")
			if err := backgroundTaskSrv.Run(taskProcessor.Mux()); err != nil {
				zl.Fatal("Background task server error", zap.Error(err))
			}
		}()
	}

	switch cfg.RunMode {
	case "api":
		apiMode()
	case "bg":
		bgMode()
	case "all":
		apiMode()
		bgMode()
	default:
		zl.Fatal("Invalid run mode", zap.String("mode", cfg.RunMode))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		zl.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case <-shutdownChan:
		zl.Info("Shutdown requested via Service API")
	}

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	if err := serviceSrv.Shutdown(ctxShutdown); err != nil {
		zl.Error("Service API server shutdown error", zap.Error(err))
	}
	if mainApiSrv != nil {
		// Hijacked WebSocket connections are not tracked by Shutdown; their
		// views are released when the process exits.
		if err := mainApiSrv.Shutdown(ctxShutdown); err != nil {
			zl.Error("Main API server shutdown error", zap.Error(err))
		}
	}
	if backgroundTaskSrv != nil {
		backgroundTaskSrv.Shutdown()
	}

	wg.Wait()
	zl.Info("Server gracefully stopped")
}

// setupEmailSender builds the sender chain: Redis capture in mock mode,
// SMTP otherwise, plus an optional file log.
func setupEmailSender(cfg *config.Config, redisClient redis.Cmdable, zl *zap.Logger) email.Sender {
	var primary email.Sender
	if cfg.MockServices {
		zl.Info("MOCK_SERVICES enabled: capturing email in Redis")
		primary = email.NewRedisSender(redisClient, zl)
	} else {
		primary = email.NewSMTPSender(cfg, zl)
	}

	composite := email.NewCompositeEmailSender(primary)
	if cfg.EmailLogFile != "" {
		fileSender, err := email.NewFileEmailSender(cfg.EmailLogFile)
		if err != nil {
			zl.Warn("Failed to open email log file, continuing without it", zap.String("path", cfg.EmailLogFile), zap.Error(err))
		} else {
			composite.AddSender(fileSender)
		}
	}
	return composite
}
