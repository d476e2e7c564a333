package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/scheme-sahayak/backend/internal/api/handlers"
	"github.com/scheme-sahayak/backend/internal/cache/redis"
	"github.com/scheme-sahayak/backend/internal/faq"
	"github.com/scheme-sahayak/backend/internal/guidance"
	"github.com/scheme-sahayak/backend/internal/ingest"
	"github.com/scheme-sahayak/backend/internal/intent"
	"github.com/scheme-sahayak/backend/internal/llm"
	"github.com/scheme-sahayak/backend/internal/matcher"
	"github.com/scheme-sahayak/backend/internal/metrics"
	"github.com/scheme-sahayak/backend/internal/middleware/ratelimit"
	"github.com/scheme-sahayak/backend/internal/middleware/security"
	"github.com/scheme-sahayak/backend/internal/middleware/validation"
	"github.com/scheme-sahayak/backend/internal/querystats"
	"github.com/scheme-sahayak/backend/internal/storage/sqlite"
	"github.com/scheme-sahayak/backend/pkg/config"
	appLogger "github.com/scheme-sahayak/backend/pkg/logger"
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

	appLogger.Info("Starting Scheme Sahayak API Server")

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	// Redis is optional; the server runs uncached when it is missing.
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Warn("Redis unavailable, continuing without cache", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	llmClient := llm.NewClient(
		cfg.LLM.APIKey,
		cfg.LLM.BaseURL,
		cfg.LLM.Model,
		cfg.LLM.Temperature,
		cfg.LLM.MaxTokens,
		cfg.LLM.TimeoutSec,
	)

	tracker := querystats.NewTracker(sqliteClient, cfg.Search.SimilarityThreshold)
	analyzer := intent.NewAnalyzer(llmClient)

	schemeMatcher := matcher.New(sqliteClient, analyzer, cfg.Search.DefaultLimit, matcher.StubTemplates{
		Name:            cfg.Search.ExternalStub.Name,
		NameHI:          cfg.Search.ExternalStub.NameHI,
		NameTA:          cfg.Search.ExternalStub.NameTA,
		Description:     cfg.Search.ExternalStub.Description,
		DescriptionHI:   cfg.Search.ExternalStub.DescriptionHI,
		DescriptionTA:   cfg.Search.ExternalStub.DescriptionTA,
		EligibilityNote: cfg.Search.ExternalStub.EligibilityNote,
	})

	var faqLocker faq.Locker
	if redisClient != nil {
		faqLocker = redisClient
	}
	synthesizer := faq.NewSynthesizer(sqliteClient, llmClient, faqLocker, faq.Config{
		TopQueries:     cfg.FAQ.TopQueries,
		GeneratedCount: cfg.FAQ.GeneratedCount,
		LockTTL:        time.Duration(cfg.FAQ.LockTTLSec) * time.Second,
	})

	planner := guidance.NewPlanner(sqliteClient)
	importer := ingest.NewImporter(sqliteClient)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-User-ID",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))

	limiter := ratelimit.New(ratelimit.Config{Logger: appLogger.GetLogger()})
	defer limiter.Stop()
	app.Use(limiter.Middleware())

	app.Use(validation.Middleware(validation.Config{Logger: appLogger.GetLogger()}))

	cacheTTL := time.Duration(cfg.Search.CacheTTLSec) * time.Second
	searchHandler := handlers.NewSearchHandler(schemeMatcher, tracker, planner, redisClient, cacheTTL)
	chatHandler := handlers.NewChatHandler(sqliteClient, tracker, schemeMatcher, analyzer, planner)
	eligibilityHandler := handlers.NewEligibilityHandler(sqliteClient)
	faqHandler := handlers.NewFAQHandler(synthesizer)
	importHandler := handlers.NewImportHandler(importer, redisClient)
	wsHandler := handlers.NewWebSocketHandler(chatHandler)

	api := app.Group("/api/v1")

	api.Get("/schemes", searchHandler.ListSchemes)
	api.Get("/schemes/search", searchHandler.SearchByLanguage)
	api.Get("/schemes/:id", searchHandler.GetScheme)
	api.Get("/schemes/:id/steps", searchHandler.GetSchemeSteps)

	api.Post("/chat", chatHandler.HandleChat)
	api.Post("/eligibility", eligibilityHandler.CheckEligibility)

	api.Get("/faqs", faqHandler.ListFAQs)
	api.Post("/faqs/generate", faqHandler.GenerateFAQs)

	api.Post("/admin/schemes/import", importHandler.ImportSchemes)

	api.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	api.Get("/ws/chat", websocket.New(wsHandler.HandleConnection))

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	app.Get("/metrics", metrics.MetricsHandler())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
