package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"shopple/internal/domain"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations contains all database migrations in order
var migrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		SQL: `
			CREATE TABLE IF NOT EXISTS users (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				username VARCHAR(100) NOT NULL UNIQUE,
				full_name VARCHAR(255),
				avatar_url TEXT,
				email VARCHAR(255) UNIQUE,
				created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
			);

			CREATE TABLE IF NOT EXISTS categories (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				name VARCHAR(100) NOT NULL,
				slug VARCHAR(100) NOT NULL UNIQUE,
				description TEXT,
				is_default BOOLEAN NOT NULL DEFAULT FALSE,
				display_order INTEGER NOT NULL DEFAULT 0,
				created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
			);

			CREATE TABLE IF NOT EXISTS products (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				title VARCHAR(500) NOT NULL,
				description TEXT,
				price NUMERIC(12, 2),
				discount_percentage INTEGER CHECK (discount_percentage BETWEEN 0 AND 100),
				image_url TEXT,
				source VARCHAR(255),
				source_url TEXT,
				rating NUMERIC(3, 2),
				review_count INTEGER NOT NULL DEFAULT 0,
				is_hidden BOOLEAN NOT NULL DEFAULT FALSE,
				is_pinned BOOLEAN NOT NULL DEFAULT FALSE,
				is_commissionable BOOLEAN NOT NULL DEFAULT FALSE,
				clicks INTEGER NOT NULL DEFAULT 0,
				shares INTEGER NOT NULL DEFAULT 0,
				commission NUMERIC(12, 2) NOT NULL DEFAULT 0,
				user_id UUID REFERENCES users(id) ON DELETE SET NULL,
				last_refreshed_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_products_listing
			ON products(is_pinned DESC, created_at DESC);

			CREATE INDEX IF NOT EXISTS idx_products_user
			ON products(user_id);

			CREATE TABLE IF NOT EXISTS product_categories (
				product_id UUID NOT NULL REFERENCES products(id) ON DELETE CASCADE,
				category_id UUID NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
				PRIMARY KEY (product_id, category_id)
			);

			CREATE INDEX IF NOT EXISTS idx_product_categories_category
			ON product_categories(category_id);
		`,
	},
	{
		Version: 2,
		Name:    "product_media",
		SQL: `
			CREATE TABLE IF NOT EXISTS product_media (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				product_id UUID NOT NULL REFERENCES products(id) ON DELETE CASCADE,
				url TEXT NOT NULL,
				type VARCHAR(20) NOT NULL ` + domain.GetMediaTypeConstraintSQL() + `,
				file_name TEXT,
				file_size BIGINT,
				width INTEGER,
				height INTEGER,
				duration DOUBLE PRECISION,
				sort_order INTEGER NOT NULL DEFAULT 0,
				created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_product_media_product
			ON product_media(product_id, sort_order);
		`,
	},
}

// RunMigrations executes all pending database migrations
func RunMigrations(db *sql.DB, logger *slog.Logger) error {
	logger.Info("Running database migrations...")

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			version INTEGER PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	currentVersion, err := GetMigrationStatus(db)
	if err != nil {
		return err
	}
	logger.Info("Current migration version", "version", currentVersion)

	applied := 0
	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		logger.Info("Applying migration",
			"version", migration.Version,
			"name", migration.Name,
		)

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		if _, err := tx.Exec(migration.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to apply migration %d (%s): %w", migration.Version, migration.Name, err)
		}

		if _, err := tx.Exec("INSERT INTO migrations (version, name) VALUES ($1, $2)",
			migration.Version, migration.Name); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}

		applied++
		logger.Info("Migration applied", "version", migration.Version)
	}

	if applied == 0 {
		logger.Info("Database schema is up to date")
	} else {
		logger.Info("Database migrations completed", "applied", applied)
	}

	return nil
}

// GetMigrationStatus returns the highest applied migration version
func GetMigrationStatus(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM migrations").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get migration status: %w", err)
	}
	return version, nil
}

// LatestMigrationVersion is the version RunMigrations brings the schema to
func LatestMigrationVersion() int {
	return migrations[len(migrations)-1].Version
}

// ResetDatabase drops all tables (for development)
func ResetDatabase(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	logger.Warn("Resetting database - all data will be lost")

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Reverse dependency order
	dropSQL := []string{
		"DROP TABLE IF EXISTS product_media CASCADE",
		"DROP TABLE IF EXISTS product_categories CASCADE",
		"DROP TABLE IF EXISTS products CASCADE",
		"DROP TABLE IF EXISTS categories CASCADE",
		"DROP TABLE IF EXISTS users CASCADE",
		"DROP TABLE IF EXISTS migrations CASCADE",
	}

	for _, stmt := range dropSQL {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute drop statement: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reset transaction: %w", err)
	}

	logger.Info("Database reset completed")
	return nil
}
