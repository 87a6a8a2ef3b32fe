package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ksy070822/petmily-backend/internal/audit"
	"github.com/ksy070822/petmily-backend/internal/blob"
	"github.com/ksy070822/petmily-backend/internal/config"
	"github.com/ksy070822/petmily-backend/internal/diagnosis"
	"github.com/ksy070822/petmily-backend/internal/handler"
	"github.com/ksy070822/petmily-backend/internal/llm"
	"github.com/ksy070822/petmily-backend/internal/middleware"
	"github.com/ksy070822/petmily-backend/internal/pdf"
	"github.com/ksy070822/petmily-backend/internal/repository"
	"github.com/ksy070822/petmily-backend/internal/service"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize Zap logger
	var logger *zap.Logger
	if cfg.Server.Environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("Configuration loaded successfully",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
		zap.Bool("model_backed", cfg.ModelBacked()),
	)

	// Initialize database connection pool with pgx
	pool, err := pgxpool.New(context.Background(), cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(context.Background()); err != nil {
		logger.Fatal("Failed to ping database", zap.Error(err))
	}
	logger.Info("Successfully connected to database")

	// Initialize the model client. Without an API key the pipeline runs
	// every agent on its rule-based strategy.
	var invoker llm.Invoker
	if cfg.ModelBacked() {
		client, err := llm.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL, logger)
		if err != nil {
			logger.Fatal("Failed to initialize model client", zap.Error(err))
		}
		invoker = client
	} else {
		logger.Warn("No model API key configured, running rule-based diagnosis only")
	}

	// Initialize blob storage, optional
	var storage blob.Storage
	if cfg.Storage.AccountName != "" {
		client, err := blob.NewClient(
			cfg.Storage.AccountName,
			cfg.Storage.AccountKey,
			cfg.Storage.PacketContainer,
			logger,
		)
		if err != nil {
			logger.Fatal("Failed to initialize blob storage client", zap.Error(err))
		}
		storage = client
	}

	// Initialize repositories
	petRepo := repository.NewPetRepository(pool, logger)
	careLogRepo := repository.NewCareLogRepository(pool, logger)
	diagnosisRepo := repository.NewDiagnosisRepository(pool, logger)
	faqRepo := repository.NewFAQRepository(pool, logger)
	clinicRepo := repository.NewClinicRepository(pool, logger)
	bookingRepo := repository.NewBookingRepository(pool, logger)

	// Initialize the diagnosis pipeline
	orchestrator := diagnosis.NewOrchestrator(invoker, faqRepo, diagnosisRepo, logger)

	// Initialize audit logging and the packet generator
	auditLogger := audit.NewLogger(pool, logger)
	packetGenerator := pdf.NewPacketGenerator(logger)

	// Initialize services
	petService := service.NewPetService(petRepo, logger)
	careLogService := service.NewCareLogService(careLogRepo, petService, logger)
	diagnosisService := service.NewDiagnosisService(
		orchestrator,
		diagnosisRepo,
		petService,
		careLogRepo,
		packetGenerator,
		storage,
		auditLogger,
		logger,
	)
	clinicService := service.NewClinicService(clinicRepo, logger)
	bookingService := service.NewBookingService(bookingRepo, clinicService, petService, auditLogger, logger)

	// Initialize handlers
	handlers := handler.Handlers{
		Pets:      handler.NewPetHandler(petService, logger),
		CareLogs:  handler.NewCareLogHandler(careLogService, logger),
		Diagnosis: handler.NewDiagnosisHandler(diagnosisService, logger),
		Clinics:   handler.NewClinicHandler(clinicService, logger),
		Bookings:  handler.NewBookingHandler(bookingService, logger),
	}

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize Gin router
	r := gin.New()

	// Recovery middleware must be first
	r.Use(middleware.RecoveryMiddleware(logger))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID", "X-Guardian-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RequestLoggingMiddleware(logger))
	r.Use(middleware.ErrorLoggingMiddleware(logger))
	r.Use(middleware.SlowRequestLoggingMiddleware(logger, 30*time.Second))

	handler.RegisterRoutes(r, handlers, pool, logger)

	// Start server with graceful shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	pool.Close()

	logger.Info("Server exited")
}
