package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"shopple/internal/config"
	"shopple/internal/extractor"
	"shopple/internal/pkg/logger"
	"shopple/internal/pkg/metrics"
	"shopple/internal/repository/postgres"
	"shopple/internal/repository/redis"
	"shopple/internal/service/api"
	"shopple/internal/service/worker"
)

func main() {
	var (
		enqueueAll  = flag.Bool("enqueue-all", false, "Schedule commissionable products for refresh whenever the queue is empty")
		metricsPort = flag.String("metrics-port", "", "Serve /metrics on this port (empty disables)")
		once        = flag.Bool("once", false, "Run a single refresh cycle and exit")
	)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Validate worker-specific configuration
	if err := cfg.ValidateForWorker(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Setup logging
	log := logger.New(cfg.LogLevel)
	log.Info("Starting worker service...")

	// Connect to PostgreSQL
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(); err != nil {
		log.Error("Failed to ping database", "error", err)
		os.Exit(1)
	}

	// Run database migrations
	if err := postgres.RunMigrations(db, log); err != nil {
		log.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}

	// Connect to Redis
	redisClient, err := redis.NewClient(cfg.RedisURL, log)
	if err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// Create repositories
	queueRepo := redis.NewQueueRepository(redisClient, log)
	productRepo := postgres.NewProductRepository(db, log)

	m := metrics.New()

	// The refresher fetches pages itself, so the extractor only parses
	ex := extractor.New(nil, log, extractor.WithMetrics(m))

	userAgent := cfg.FetchUserAgent
	if userAgent == "" {
		userAgent = extractor.DefaultUserAgent
	}
	refresher := worker.NewRefresher(worker.RefresherConfig{
		UserAgent:   userAgent,
		Parallelism: cfg.RefreshParallelism,
		Timeout:     cfg.ExtractTimeout,
	}, ex, productRepo, m, log)

	// Create worker service
	workerService := worker.New(worker.Config{
		Interval:   cfg.RefreshInterval,
		Batch:      cfg.RefreshBatch,
		EnqueueAll: *enqueueAll,
	}, log, queueRepo, productRepo, refresher)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *once {
		if err := workerService.RunOnce(ctx); err != nil {
			log.Error("Refresh cycle failed", "error", err)
			os.Exit(1)
		}
		stats := workerService.GetStats()
		log.Info("Refresh cycle complete",
			"processed", stats.JobsProcessed,
			"succeeded", stats.JobsSucceeded,
			"failed", stats.JobsFailed,
		)
		return
	}

	var metricsServer *api.APIService
	if *metricsPort != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", m.Handler())
		metricsServer = api.New(*metricsPort, mux, log)
		go func() {
			if err := metricsServer.Start(); err != nil {
				log.Error("Metrics server failed", "error", err)
			}
		}()
	}

	// Run blocks until a shutdown signal cancels ctx
	if err := workerService.Run(ctx); err != nil {
		log.Error("Worker service failed", "error", err)
	}
	log.Info("Shutdown signal received, stopping worker service...")

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := metricsServer.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping metrics server", "error", err)
		}
	}

	log.Info("Worker service shutdown complete")
}
