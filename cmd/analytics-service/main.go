package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/pharmaconnect/stock-analytics/internal/analytics/consumers"
	"github.com/pharmaconnect/stock-analytics/internal/analytics/events"
	"github.com/pharmaconnect/stock-analytics/internal/analytics/handler"
	"github.com/pharmaconnect/stock-analytics/internal/analytics/repository"
	"github.com/pharmaconnect/stock-analytics/internal/analytics/service"
	"github.com/pharmaconnect/stock-analytics/pkg/config"
	"github.com/pharmaconnect/stock-analytics/pkg/database"
	"github.com/pharmaconnect/stock-analytics/pkg/httputil"
	"github.com/pharmaconnect/stock-analytics/pkg/logger"
	"github.com/pharmaconnect/stock-analytics/pkg/messaging"
)

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation("analytics-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("analytics-service", cfg.Server.Environment)
	log.Info().Msg("starting Analytics Service")

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Connect to RabbitMQ
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	// Initialize event publisher
	publisher, err := events.NewPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	// Initialize repositories
	projectRepo := repository.NewProjectRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	consumptionRepo := repository.NewConsumptionRepository(db)
	stockoutRepo := repository.NewStockoutRepository(db)
	countRepo := repository.NewCountRepository(db)
	alertRepo := repository.NewAlertRepository(db)
	dispensationRepo := repository.NewDispensationRepository(db)

	// Initialize services
	consumptionService := service.NewConsumptionService(consumptionRepo, cfg.Analytics.CMMWindowMonths, log)
	positionService := service.NewPositionService(batchRepo, dispensationRepo, consumptionService, log)
	stockoutTracker := service.NewStockoutTracker(stockoutRepo, publisher, log)
	alertEngine := service.NewAlertEngine(
		projectRepo, batchRepo, alertRepo, dispensationRepo,
		positionService, stockoutTracker, publisher, cfg.Analytics, log,
	)
	reportService := service.NewReportService(
		projectRepo, batchRepo, stockoutRepo, countRepo, alertRepo, dispensationRepo,
		positionService, consumptionService, cfg.Analytics, log,
	)

	// Initialize handlers
	alertHandler := handler.NewAlertHandler(alertRepo, alertEngine, log)
	reportHandler := handler.NewReportHandler(reportService, consumptionService, log)
	projectHandler := handler.NewProjectHandler(projectRepo, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start stock event consumer
	stockConsumer, err := consumers.NewStockEventConsumer(
		rmq, batchRepo, countRepo, dispensationRepo,
		consumptionService, positionService, alertEngine, log,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create stock event consumer")
	}
	if err := stockConsumer.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start stock event consumer")
	}

	// Start the periodic evaluation scheduler
	scheduler := service.NewEvaluationScheduler(alertEngine, projectRepo, cfg.Analytics.EvaluationInterval, log)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Organization-ID", "X-Project-ID", "X-Request-ID", "X-User-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(httputil.ScopeMiddleware)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "analytics-service",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	// API routes
	r.Route("/api/v1/analytics", func(r chi.Router) {
		// Project policy
		r.Get("/project", projectHandler.Get)
		r.Put("/project", projectHandler.Upsert)

		// Alert feed
		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", alertHandler.List)
			r.Get("/{id}", alertHandler.Get)
			r.Put("/{id}/resolve", alertHandler.Resolve)
		})

		// Reports
		r.Route("/reports", func(r chi.Router) {
			r.Get("/overview", reportHandler.Overview)
			r.Get("/reception", reportHandler.Reception)
			r.Get("/expiry", reportHandler.Expiry)
			r.Get("/variance", reportHandler.Variance)
			r.Get("/dispensations", reportHandler.Dispensations)
			r.Get("/medications/{medicationID}", reportHandler.Medication)
			r.Get("/medications/{medicationID}/consumption", reportHandler.ConsumptionSeries)
		})
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Cancel context to stop the consumer and the scheduler
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
