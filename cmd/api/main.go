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
	"go.uber.org/zap"

	"github.com/healthmate/backend/internal/api/handlers"
	"github.com/healthmate/backend/internal/ingestion"
	"github.com/healthmate/backend/internal/llm"
	"github.com/healthmate/backend/internal/metrics"
	"github.com/healthmate/backend/internal/middleware/ratelimit"
	"github.com/healthmate/backend/internal/middleware/security"
	"github.com/healthmate/backend/internal/prefs"
	"github.com/healthmate/backend/internal/report"
	"github.com/healthmate/backend/internal/storage/sqlite"
	"github.com/healthmate/backend/internal/workflow"
	"github.com/healthmate/backend/pkg/config"
	appLogger "github.com/healthmate/backend/pkg/logger"
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

	appLogger.Info("Starting HealthMate API Server")

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	if err := sqliteClient.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	prefsStore, err := prefs.NewStore(
		fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		cfg.Redis.Password,
		cfg.Redis.DB,
	)
	if err != nil {
		appLogger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer prefsStore.Close()

	llmClient := llm.NewClient(cfg.LLM)

	checker := workflow.NewChecker(llmClient, sqliteClient)
	explainer := workflow.NewExplainer(llmClient, sqliteClient)
	lookup := workflow.NewLookup(llmClient, sqliteClient)
	journal := workflow.NewJournal(llmClient, sqliteClient)
	generator := report.NewGenerator(sqliteClient, journal, llmClient)
	processor := ingestion.NewProcessor()

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: cfg.RateLimit.MaxRequestsPerMinute,
		Logger:               appLogger.GetLogger(),
	})
	defer limiter.Stop()

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, X-User-ID",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(limiter.Middleware())

	symptomHandler := handlers.NewSymptomHandler(checker, sqliteClient)
	prescriptionHandler := handlers.NewPrescriptionHandler(explainer, processor, sqliteClient)
	medicationHandler := handlers.NewMedicationHandler(lookup, sqliteClient)
	moodHandler := handlers.NewMoodHandler(journal)
	reportHandler := handlers.NewReportHandler(generator, prefsStore)
	prefsHandler := handlers.NewPrefsHandler(prefsStore)

	app.Get("/metrics", metrics.MetricsHandler())

	api := app.Group("/api/v1")

	api.Post("/symptom-check", symptomHandler.HandleCheck)
	api.Post("/symptom-check/:id/followup", symptomHandler.HandleFollowUp)
	api.Get("/symptom-check/history", symptomHandler.HandleHistory)
	api.Get("/symptom-check/:id", symptomHandler.HandleGetSession)
	api.Delete("/symptom-check/:id", symptomHandler.HandleDelete)

	api.Post("/prescriptions", prescriptionHandler.HandleAnalyze)
	api.Post("/prescriptions/pdf", prescriptionHandler.HandleAnalyzePDF)
	api.Get("/prescriptions", prescriptionHandler.HandleHistory)
	api.Delete("/prescriptions/:id", prescriptionHandler.HandleDelete)

	api.Post("/medications/search", medicationHandler.HandleSearch)
	api.Get("/medications/history", medicationHandler.HandleHistory)
	api.Delete("/medications/:id", medicationHandler.HandleDelete)

	api.Put("/mood", moodHandler.HandleSave)
	api.Get("/mood", moodHandler.HandleList)
	api.Get("/mood/analytics", moodHandler.HandleAnalytics)
	api.Get("/mood/insight", moodHandler.HandleInsight)
	api.Delete("/mood/:id", moodHandler.HandleDelete)

	api.Post("/reports", reportHandler.HandleGenerate)
	api.Get("/reports", reportHandler.HandleList)
	api.Get("/reports/:id", reportHandler.HandleGet)
	api.Get("/reports/:id/export", reportHandler.HandleExport)
	api.Delete("/reports/:id", reportHandler.HandleDelete)

	api.Get("/preferences", prefsHandler.HandleGet)
	api.Put("/preferences", prefsHandler.HandlePut)

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		if err := sqliteClient.Ping(); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "not ready",
			})
		}
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

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
