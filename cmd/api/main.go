package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shopple/internal/auth"
	"shopple/internal/config"
	"shopple/internal/extractor"
	shopplehttp "shopple/internal/http"
	"shopple/internal/http/handlers"
	"shopple/internal/pkg/logger"
	"shopple/internal/pkg/metrics"
	"shopple/internal/repository/postgres"
	"shopple/internal/repository/redis"
	"shopple/internal/review"
	"shopple/internal/service/api"
	"shopple/internal/service/catalog"
	"shopple/internal/storage"

	_ "github.com/lib/pq"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Validate API-specific configuration
	if err := cfg.ValidateForAPI(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Setup logging
	log := logger.New(cfg.LogLevel)
	log.Info("Starting API service...")

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

	m := metrics.New()
	healthChecks := map[string]handlers.HealthCheck{"database": db.PingContext}

	// Redis is optional: without it the extraction cache is in-process and
	// background refresh is disabled
	var (
		cache extractor.Cache
		queue handlers.RefreshQueue
	)
	if cfg.RedisURL != "" {
		redisClient, err := redis.NewClient(cfg.RedisURL, log)
		if err != nil {
			log.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()

		cache = redis.NewProductCache(redisClient, cfg.CacheTTL, log)
		queue = redis.NewQueueRepository(redisClient, log)
		healthChecks["redis"] = func(ctx context.Context) error { return redis.HealthCheck(ctx, redisClient) }
	} else {
		log.Warn("REDIS_URL not set, using in-process cache and disabling background refresh")
		cache = extractor.NewLRUCache(cfg.CacheSize, cfg.CacheTTL)
	}

	// Page fetcher
	fetcher, closeFetcher, err := newFetcher(cfg, log)
	if err != nil {
		log.Error("Failed to create page fetcher", "error", err, "mode", cfg.FetchMode)
		os.Exit(1)
	}
	defer closeFetcher()

	ex := extractor.New(fetcher, log,
		extractor.WithCache(cache),
		extractor.WithMetrics(m),
	)

	// Create repositories
	productRepo := postgres.NewProductRepository(db, log)
	categoryRepo := postgres.NewCategoryRepository(db, log)
	userRepo := postgres.NewUserRepository(db, log)
	mediaRepo := postgres.NewMediaRepository(db, log)

	// Create and load category loader
	categoryLoader := catalog.NewLoader(categoryRepo, log)
	if err := categoryLoader.Load(context.Background()); err != nil {
		log.Error("Failed to load categories", "error", err)
		os.Exit(1)
	}
	log.Info("Category loader initialized",
		"category_count", categoryLoader.Count(),
		"using_defaults", categoryLoader.UsingDefaults(),
	)

	store, err := storage.NewLocalStore(cfg.MediaDir, cfg.MediaBaseURL, log)
	if err != nil {
		log.Error("Failed to prepare media storage", "error", err)
		os.Exit(1)
	}

	authManager := auth.NewManager(auth.Config{
		Username:     cfg.AdminUsername,
		PasswordHash: cfg.AdminPasswordHash,
		Secret:       cfg.SessionSecret,
		TTL:          cfg.SessionTTL,
	}, userRepo, log)

	router := shopplehttp.NewRouter(shopplehttp.Deps{
		Logger:            log,
		Metrics:           m,
		Products:          productRepo,
		Categories:        categoryRepo,
		Users:             userRepo,
		Media:             mediaRepo,
		Queue:             queue,
		CategoryCache:     categoryLoader,
		Extractor:         ex,
		Importer:          catalog.NewImporter(ex, productRepo, categoryRepo, log),
		Reviews:           review.NewGenerator(),
		Auth:              authManager,
		Store:             store,
		HealthChecks:      healthChecks,
		ShopOwner:         cfg.ShopOwner,
		AllowedOrigins:    cfg.AllowedOrigins,
		CookieSecure:      cfg.CookieSecure,
		ExtractTimeout:    cfg.ExtractTimeout,
		ExtractRatePerMin: cfg.ExtractRatePerMin,
		MediaBaseURL:      cfg.MediaBaseURL,
	})

	// Create API service
	apiService := api.New(cfg.Port, router.SetupRoutes(), log)

	// Create a channel to track shutdown completion
	done := make(chan struct{})

	// Start API service in a goroutine
	go func() {
		defer close(done)
		if err := apiService.Start(); err != nil {
			log.Error("API service failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Wait for either shutdown signal or service completion
	select {
	case <-quit:
		log.Info("Shutdown signal received, stopping API service...")
	case <-done:
		log.Info("API service completed")
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop API service
	if err := apiService.Stop(ctx); err != nil {
		log.Error("Error stopping API service", "error", err)
	}

	log.Info("API service shutdown complete")
}

// newFetcher builds the page fetcher selected by FETCH_MODE
func newFetcher(cfg *config.Config, log *slog.Logger) (extractor.Fetcher, func(), error) {
	if cfg.FetchMode == config.FetchModeBrowser {
		browser, err := extractor.NewBrowserFetcher(cfg.FetchUserAgent, 2, log)
		if err != nil {
			return nil, nil, err
		}
		return browser, func() {
			if err := browser.Close(); err != nil {
				log.Warn("Failed to close browser", "error", err)
			}
		}, nil
	}

	client := &http.Client{Timeout: cfg.ExtractTimeout}
	return extractor.NewHTTPFetcher(client, cfg.FetchUserAgent, cfg.FetchMaxBodyBytes), func() {}, nil
}
