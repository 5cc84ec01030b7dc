package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	_ "github.com/lib/pq"

	"shopple/internal/auth"
	"shopple/internal/config"
	"shopple/internal/domain"
	"shopple/internal/pkg/logger"
	"shopple/internal/repository/postgres"
)

func main() {
	var (
		reset         = flag.Bool("reset", false, "Reset database (WARNING: destroys all data)")
		clearProducts = flag.Bool("clear-products", false, "Clear only products and their media (keeps categories and profile)")
		migrate       = flag.Bool("migrate", false, "Run database migrations")
		status        = flag.Bool("status", false, "Show migration status")
		seed          = flag.Bool("seed", false, "Create the owner profile, default categories and sample products")
		hashPassword  = flag.Bool("hash-password", false, "Print a bcrypt hash for ADMIN_PASSWORD_HASH (password from argument or stdin)")
	)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Hashing needs no database
	if *hashPassword {
		hash, err := hashFromInput(flag.Arg(0), os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to hash password: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(hash)
		return
	}

	if !*reset && !*clearProducts && !*migrate && !*status && !*seed {
		usage()
		os.Exit(0)
	}

	// Setup logger
	log := logger.New(cfg.LogLevel)

	if cfg.DatabaseURL == "" {
		log.Error("DATABASE_URL is required (or pass -db)")
		os.Exit(1)
	}

	// Connect to database
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Test connection
	if err := db.Ping(); err != nil {
		log.Error("Failed to ping database", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Execute commands
	switch {
	case *clearProducts:
		if err := confirm(os.Stdin, "This will delete all products and media but keep categories. Type 'yes' to confirm: "); err != nil {
			log.Error("Clear products cancelled", "error", err)
			os.Exit(1)
		}

		log.Warn("Clearing products table...")
		if _, err := db.ExecContext(ctx, "DELETE FROM products"); err != nil {
			log.Error("Failed to clear products table", "error", err)
			os.Exit(1)
		}

		log.Info("Products table cleared successfully (categories preserved)")

	case *reset:
		if err := confirm(os.Stdin, "WARNING: This will delete ALL data in the database. Type 'yes' to confirm: "); err != nil {
			log.Error("Reset cancelled", "error", err)
			os.Exit(1)
		}

		log.Warn("Resetting database...")
		if err := postgres.ResetDatabase(ctx, db, log); err != nil {
			log.Error("Failed to reset database", "error", err)
			os.Exit(1)
		}

		log.Info("Database reset completed successfully")
		log.Info("Run with -migrate to recreate tables")

	case *migrate:
		if err := postgres.RunMigrations(db, log); err != nil {
			log.Error("Failed to run migrations", "error", err)
			os.Exit(1)
		}
		log.Info("Migrations completed successfully")

	case *status:
		version, err := postgres.GetMigrationStatus(db)
		if err != nil {
			log.Error("Failed to get migration status", "error", err)
			os.Exit(1)
		}
		latest := postgres.LatestMigrationVersion()
		log.Info("Migration status",
			"current_version", version,
			"latest_version", latest,
			"up_to_date", version >= latest,
		)

	case *seed:
		if err := postgres.RunMigrations(db, log); err != nil {
			log.Error("Failed to run migrations", "error", err)
			os.Exit(1)
		}

		result, err := postgres.Seed(ctx, db, log, domain.User{Username: cfg.AdminUsername})
		if errors.Is(err, postgres.ErrAlreadySeeded) {
			log.Warn("Database already seeded, nothing to do")
			return
		}
		if err != nil {
			log.Error("Failed to seed database", "error", err)
			os.Exit(1)
		}
		log.Info("Database seeded",
			"owner", result.Owner.Username,
			"categories", result.Categories,
			"products", result.Products,
		)
	}
}

func usage() {
	fmt.Println("Database utility for Shopple")
	fmt.Println("")
	fmt.Println("Usage:")
	fmt.Println("  -clear-products Clear only products and their media (keeps categories)")
	fmt.Println("  -reset          Reset database (WARNING: destroys all data)")
	fmt.Println("  -migrate        Run database migrations")
	fmt.Println("  -status         Show migration status")
	fmt.Println("  -seed           Create owner profile, default categories and sample products")
	fmt.Println("  -hash-password  Print a bcrypt hash for ADMIN_PASSWORD_HASH")
	fmt.Println("  -db             Database URL (optional)")
	fmt.Println("")
	fmt.Println("Examples:")
	fmt.Println("  go run ./cmd/dbutil -status")
	fmt.Println("  go run ./cmd/dbutil -seed")
	fmt.Println("  go run ./cmd/dbutil -hash-password 's3cret'")
	fmt.Println("  echo 's3cret' | go run ./cmd/dbutil -hash-password")
}

// hashFromInput hashes arg, or the first line of r when arg is empty
func hashFromInput(arg string, r io.Reader) (string, error) {
	password := arg
	if password == "" {
		line, err := bufio.NewReader(r).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		return "", errors.New("empty password")
	}
	return auth.HashPassword(password)
}

func confirm(r io.Reader, prompt string) error {
	fmt.Print(prompt)
	var response string
	fmt.Fscanln(r, &response)

	if response != "yes" {
		return errors.New("not confirmed")
	}

	return nil
}
