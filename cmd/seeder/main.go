package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"shopple/internal/config"
	"shopple/internal/domain"
	"shopple/internal/extractor"
	"shopple/internal/pkg/logger"
	"shopple/internal/pkg/urldetector"
	"shopple/internal/repository/postgres"
	"shopple/internal/service/catalog"
)

func main() {
	var (
		file   = flag.String("file", "-", "File of pasted product links, one or more per line (- reads stdin)")
		owner  = flag.String("owner", "", "Username that will own the imported products (defaults to ADMIN_USERNAME)")
		limit  = flag.Int("limit", 0, "Maximum number of links to import (0 = no limit)")
		delay  = flag.Duration("delay", 2*time.Second, "Pause between marketplace requests")
		dryRun = flag.Bool("dry-run", false, "Extract and print products without storing them")
	)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	if *owner == "" {
		*owner = cfg.AdminUsername
	}

	// Setup logging
	log := logger.New(cfg.LogLevel)
	log.Info("Starting link seeder...")
	log.Info("Seeder configuration",
		"file", *file,
		"owner", *owner,
		"limit", *limit,
		"delay", *delay,
		"dry_run", *dryRun,
	)

	input, err := openInput(*file)
	if err != nil {
		log.Error("Failed to open input", "error", err)
		os.Exit(1)
	}
	defer input.Close()

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
	log.Info("Successfully connected to database")

	if cfg.FetchMode == config.FetchModeBrowser {
		log.Warn("Seeder always fetches over plain HTTP, ignoring FETCH_MODE=browser")
	}
	client := &http.Client{Timeout: cfg.ExtractTimeout}
	ex := extractor.New(extractor.NewHTTPFetcher(client, cfg.FetchUserAgent, cfg.FetchMaxBodyBytes), log)

	// Create repositories
	productRepo := postgres.NewProductRepository(db, log)
	categoryRepo := postgres.NewCategoryRepository(db, log)
	userRepo := postgres.NewUserRepository(db, log)

	seeder := &Seeder{
		importer:  catalog.NewImporter(ex, productRepo, categoryRepo, log),
		extractor: ex,
		products:  productRepo,
		users:     userRepo,
		logger:    log,
		owner:     *owner,
		limit:     *limit,
		delay:     *delay,
		dryRun:    *dryRun,
	}

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := seeder.Run(ctx, input); err != nil {
		log.Error("Seeder failed", "error", err)
		os.Exit(1)
	}

	log.Info("Seeder completed successfully")
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

// LinkImporter stores a product for a link
type LinkImporter interface {
	Import(ctx context.Context, userID uuid.UUID, rawURL string, categoryIDs []uuid.UUID) (*catalog.ImportResult, error)
}

// Seeder reads pasted links and imports each one as a catalog product
type Seeder struct {
	importer  LinkImporter
	extractor catalog.ProductExtractor
	products  domain.ProductRepository
	users     domain.UserRepository
	logger    *slog.Logger

	owner  string
	limit  int
	delay  time.Duration
	dryRun bool
}

// Run executes the seeding process
func (s *Seeder) Run(ctx context.Context, input io.Reader) error {
	user, err := s.ensureOwner(ctx)
	if err != nil {
		return fmt.Errorf("failed to ensure owner exists: %w", err)
	}

	links, err := readLinks(input)
	if err != nil {
		return fmt.Errorf("failed to read links: %w", err)
	}
	s.logger.Info("Read links from input", "total_links", len(links))

	known, err := s.knownSources(ctx, user)
	if err != nil {
		return fmt.Errorf("failed to list existing products: %w", err)
	}

	stats := s.processLinks(ctx, user, links, known)

	// Print summary
	s.logger.Info("Seeding completed",
		"links_detected", stats.LinksDetected,
		"products_created", stats.ProductsCreated,
		"products_skipped", stats.ProductsSkipped,
		"fallbacks", stats.Fallbacks,
		"errors", stats.Errors,
	)

	return nil
}

// ensureOwner returns the owning user, creating the profile when missing
func (s *Seeder) ensureOwner(ctx context.Context) (*domain.User, error) {
	user, err := s.users.GetByUsername(ctx, s.owner)
	if err == nil {
		s.logger.Info("Owner already exists in database",
			"user_id", user.ID,
			"username", user.Username,
		)
		return user, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	user = &domain.User{ID: uuid.New(), Username: s.owner, CreatedAt: time.Now()}
	if s.dryRun {
		s.logger.Info("[DRY RUN] Would create owner profile", "username", s.owner)
		return user, nil
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create owner: %w", err)
	}
	s.logger.Info("Created owner profile",
		"user_id", user.ID,
		"username", user.Username,
	)
	return user, nil
}

// knownSources returns the normalized source URLs the owner already sells
func (s *Seeder) knownSources(ctx context.Context, user *domain.User) (map[string]bool, error) {
	products, err := s.products.List(ctx, domain.ProductFilter{UserID: &user.ID, IncludeHidden: true})
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(products))
	for _, p := range products {
		if p.SourceURL != nil {
			known[*p.SourceURL] = true
		}
	}
	return known, nil
}

func (s *Seeder) processLinks(ctx context.Context, user *domain.User, links []string, known map[string]bool) *SeedingStats {
	stats := &SeedingStats{LinksDetected: len(links)}

	requests := 0
	for _, link := range links {
		// Check for cancellation
		select {
		case <-ctx.Done():
			s.logger.Warn("Context cancelled, stopping link processing")
			return stats
		default:
		}

		if s.limit > 0 && stats.ProductsCreated >= s.limit {
			s.logger.Info("Reached import limit", "limit", s.limit)
			break
		}

		// Skip root URLs (e.g., https://shopee.ph without a product path)
		if urldetector.IsRootURL(link) {
			s.logger.Debug("Skipping root URL (no specific product)", "url", link)
			stats.ProductsSkipped++
			continue
		}

		normalized, err := urldetector.NormalizeURL(link)
		if err != nil {
			s.logger.Warn("Skipping unparseable link", "url", link, "error", err)
			stats.Errors++
			continue
		}
		if known[normalized] {
			s.logger.Debug("Product already exists, skipping", "url", normalized)
			stats.ProductsSkipped++
			continue
		}
		known[normalized] = true

		if requests > 0 && s.delay > 0 {
			select {
			case <-ctx.Done():
				return stats
			case <-time.After(s.delay):
			}
		}

		requests++
		if err := s.processLink(ctx, user, link, stats); err != nil {
			s.logger.Error("Failed to import link", "error", err, "url", link)
			stats.Errors++
		}
	}

	return stats
}

// processLink extracts and stores a single link
func (s *Seeder) processLink(ctx context.Context, user *domain.User, link string, stats *SeedingStats) error {
	if s.dryRun {
		p, err := s.extractor.Extract(ctx, link)
		if err != nil {
			return err
		}
		s.logger.Info("[DRY RUN] Would create product",
			"url", link,
			"title", p.Title,
			"price", p.Price,
			"category", p.Category,
			"source", p.Source,
			"fallback", p.Fallback,
		)
		stats.ProductsCreated++
		if p.Fallback {
			stats.Fallbacks++
		}
		return nil
	}

	result, err := s.importer.Import(ctx, user.ID, link, nil)
	if err != nil {
		return err
	}

	s.logger.Info("Created product",
		"product_id", result.Product.ID,
		"url", link,
		"title", result.Product.Title,
	)
	stats.ProductsCreated++
	if result.Extracted.Fallback {
		stats.Fallbacks++
	}
	return nil
}

// SeedingStats tracks statistics for the seeding process
type SeedingStats struct {
	LinksDetected   int
	ProductsCreated int
	ProductsSkipped int
	Fallbacks       int
	Errors          int
}

// readLinks collects links from every line of input, keeping the first
// occurrence of each
func readLinks(r io.Reader) ([]string, error) {
	var links []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		for _, link := range urldetector.FindLinks(scanner.Text()) {
			if !seen[link] {
				seen[link] = true
				links = append(links, link)
			}
		}
	}
	return links, scanner.Err()
}
