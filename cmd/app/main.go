package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pr-review-engine/api"
	"pr-review-engine/internal/analysis"
	"pr-review-engine/internal/config"
	"pr-review-engine/internal/database"
	"pr-review-engine/internal/domain"
	"pr-review-engine/internal/github"
	"pr-review-engine/internal/handler"
	"pr-review-engine/internal/publisher"
	"pr-review-engine/internal/repository"
	"pr-review-engine/internal/usecase"
	"pr-review-engine/internal/workerpool"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

func main() {
	// Логгер
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Конфиг
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Warnf(".env not found: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	} else {
		logger.Warnf("Unknown log level %q, using info", cfg.LogLevel)
	}

	scoring, err := config.LoadScoringConfig(cfg.ScoringFile)
	if err != nil {
		logger.Fatalf("Scoring config invalid: %v", err)
	}

	// Хранилище
	var reviewRepo domain.ReviewRepository
	switch cfg.Storage {
	case "memory":
		reviewRepo = repository.NewMemoryReviewRepository()
		logger.Warn("Using in-memory storage, reviews are lost on restart")
	default:
		var db *sql.DB
		db, err = database.NewPostgresDB(cfg)
		if err != nil {
			logger.Fatalf("Database connection failed: %v", err)
		}
		defer db.Close()
		logger.Info("Database connected")

		if err := database.MigrateDB(db); err != nil {
			logger.Fatalf("Migrations failed: %v", err)
		}

		// SQLC queries
		queries := database.New(db)
		reviewRepo = repository.NewReviewRepository(db, queries)
	}

	// Удалённый хост
	client, err := github.NewClient(github.ConfigFrom(cfg.GitHub), logger)
	if err != nil {
		logger.Fatalf("GitHub client init failed: %v", err)
	}
	defer client.Close()

	// Движок анализа
	engine, err := analysis.NewEngine(scoring,
		analysis.WithWorkerPool(workerpool.Config{MaxWorkers: cfg.Workers.MaxWorkers}),
		analysis.WithLogger(logger),
	)
	if err != nil {
		logger.Fatalf("Analysis engine init failed: %v", err)
	}

	// Публикация
	var poster publisher.CommentPoster
	if client.CanPublish() {
		poster = client
	} else {
		logger.Warn("GITHUB_TOKEN is empty, comment publishing disabled")
	}
	pub := publisher.New(poster, reviewRepo, publisher.Config{
		MaxCandidates: cfg.Publish.MaxCandidates,
		MaxInline:     cfg.Publish.MaxInline,
		MaxDetailed:   cfg.Publish.MaxDetailed,
	}, logger)

	// Use Case
	reviewUC := usecase.NewReviewUseCase(client, engine, pub, reviewRepo, logger)

	// Echo + Handlers
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(handler.LoggingMiddleware(logger))

	// Handlers
	apiHandler := handler.NewAPIHandler(reviewUC, logger)
	api.RegisterHandlers(e, apiHandler)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Запуск сервера
	go func() {
		if err := e.Start(":" + cfg.ServerPort); err != nil {
			logger.Infof("Server stopped: %v", err)
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Fatalf("Shutdown failed: %v", err)
	}

	logger.Info("Server exited")
}
