package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/ai-demos/gateway/internal/api/handlers"
	"github.com/ai-demos/gateway/internal/cache/redis"
	"github.com/ai-demos/gateway/internal/httpbase"
	"github.com/ai-demos/gateway/internal/metrics"
	"github.com/ai-demos/gateway/internal/middleware/ratelimit"
	"github.com/ai-demos/gateway/internal/middleware/security"
	"github.com/ai-demos/gateway/internal/middleware/validation"
	"github.com/ai-demos/gateway/internal/prompts"
	"github.com/ai-demos/gateway/internal/services/customvision"
	"github.com/ai-demos/gateway/internal/services/docint"
	"github.com/ai-demos/gateway/internal/services/rag"
	"github.com/ai-demos/gateway/internal/session"
	"github.com/ai-demos/gateway/internal/storage/sqlite"
	"github.com/ai-demos/gateway/internal/stores"
	"github.com/ai-demos/gateway/pkg/config"
	appLogger "github.com/ai-demos/gateway/pkg/logger"
	"github.com/ai-demos/gateway/pkg/retry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting AI demos gateway")

	metrics.Init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	retryConfig := retry.DefaultConfig()
	retryConfig.Logger = appLogger.Named("startup")

	checks := make(map[string]handlers.Pinger)

	var (
		recorder httpbase.CallRecorder
		callLog  handlers.CallLog
	)
	if cfg.SQLite.Enabled {
		sqliteClient, err := retry.Connect(ctx, retryConfig, "sqlite", func(context.Context) (*sqlite.Client, error) {
			return sqlite.NewClient(cfg.SQLite.Path)
		})
		if err != nil {
			appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
		}
		defer sqliteClient.Close()

		if err := sqliteClient.InitSchema(); err != nil {
			appLogger.Fatal("Failed to initialize schema", zap.Error(err))
		}

		recorder = sqliteClient
		callLog = sqliteClient
		checks["sqlite"] = sqliteClient
	}

	backendOptions := func(name string) httpbase.Options {
		return httpbase.Options{
			Name:               name,
			Timeout:            time.Duration(cfg.HTTP.TimeoutSec) * time.Second,
			MaxRecallNumber:    cfg.HTTP.MaxRecallNumber,
			RejectAuthFailures: cfg.HTTP.RejectAuthFailures,
			Recorder:           recorder,
		}
	}

	promptBuilder := prompts.Default()
	if cfg.RAG.PromptsPath != "" {
		promptBuilder, err = prompts.Load(cfg.RAG.PromptsPath)
		if err != nil {
			appLogger.Fatal("Failed to load prompts", zap.Error(err))
		}
	}

	docintService := docint.NewService(httpbase.NewClient(cfg.DocInt.BaseURL, backendOptions("docint")))
	visionService := customvision.NewService(httpbase.NewClient(cfg.Vision.BaseURL, backendOptions("vision")))
	ragService := rag.NewService(httpbase.NewClient(cfg.RAG.BaseURL, backendOptions("rag")), promptBuilder)

	defaults := stores.DefaultDefaults()
	defaults.UpperProbabilityThreshold = cfg.Vision.UpperProbabilityThreshold
	defaults.LowerProbabilityThreshold = cfg.Vision.LowerProbabilityThreshold
	if len(cfg.Vision.Tags) > 0 {
		defaults.Catalog = lo.Map(cfg.Vision.Tags, func(tag config.TagConfig, _ int) stores.TagBucket {
			return stores.TagBucket{ID: tag.ID, Key: tag.Key, Name: tag.Name, Image: tag.Image}
		})
	}

	var repo session.Repository = session.NewMemoryRepository()
	if cfg.Session.Store == "redis" {
		redisClient, err := retry.Connect(ctx, retryConfig, "redis", func(ctx context.Context) (*redis.Client, error) {
			return redis.NewClient(ctx, cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		})
		if err != nil {
			appLogger.Fatal("Failed to create Redis client", zap.Error(err))
		}
		defer redisClient.Close()

		repo = redisClient
		checks["redis"] = redisClient
	}

	ttl := time.Duration(cfg.Session.TTLMinutes) * time.Minute
	sessions := session.NewManager(repo, defaults, ttl)

	if ttl > 0 {
		go sessions.Run(ctx, ttl/4)
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	rateLimiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: cfg.RateLimit.MaxRequestsPerMinute,
		KeyHeader:            handlers.SessionHeader,
		Logger:               appLogger.Named("ratelimit"),
	})
	defer rateLimiter.Stop()

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:  strings.Join(cfg.Server.AllowedOrigins, ","),
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, " + handlers.SessionHeader,
		AllowMethods:  "GET, POST, PUT, DELETE, OPTIONS",
		ExposeHeaders: handlers.SessionHeader,
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		IsDevelopment:  cfg.Server.IsDevelopment,
	}))

	app.Get("/metrics", metrics.MetricsHandler())

	api := app.Group("/api/v1")
	api.Use(rateLimiter.Middleware())
	api.Use(validation.Middleware(validation.Config{
		MaxUploadSize: int64(cfg.Server.BodyLimit),
		Logger:        appLogger.Named("validation"),
	}))

	chatHandler := handlers.NewChatHandler(ragService, sessions)
	handlers.Register(api, handlers.Set{
		DocInt:    handlers.NewDocIntHandler(docintService, sessions),
		Vision:    handlers.NewVisionHandler(visionService, sessions),
		Chat:      chatHandler,
		WebSocket: handlers.NewWebSocketHandler(chatHandler),
		Ops:       handlers.NewOpsHandler(sessions, callLog, checks),
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting",
		zap.String("address", addr),
		zap.String("sessionStore", cfg.Session.Store),
		zap.Bool("auditLog", cfg.SQLite.Enabled),
	)

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	cancel()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		appLogger.Error("Server shutdown failed", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}
