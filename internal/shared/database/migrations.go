package database

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cosmos-server/internal/shared/config"
)

// RunMigrations applies every pending .sql file from the configured
// migrations directory, in lexical order. Each file runs in its own
// transaction and is recorded in schema_migrations so reruns are no-ops.
func (db *DB) RunMigrations() error {
	logger := slog.With("component", "migrations")

	dir := config.GlobalConfig.Database.MigrationsPath
	if dir == "" {
		dir = "migrations"
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT NOW()
		)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	files, err := listMigrationFiles(dir)
	if err != nil {
		return err
	}
	logger.Info("Running database migrations", "dir", dir, "count", len(files))

	applied := 0
	for _, file := range files {
		ran, err := db.applyMigration(file)
		if err != nil {
			return fmt.Errorf("migration %s failed: %w", filepath.Base(file), err)
		}
		if ran {
			applied++
		}
	}

	logger.Info("Migrations complete", "applied", applied, "skipped", len(files)-applied)
	return nil
}

func listMigrationFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// applyMigration runs one migration file transactionally, returning false
// when the file was already applied.
func (db *DB) applyMigration(file string) (bool, error) {
	version := filepath.Base(file)
	logger := slog.With("component", "migrations", "migration", version)

	var exists bool
	if err := db.QueryRow(
		"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)", version,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check migration status: %w", err)
	}
	if exists {
		logger.Debug("Migration already applied")
		return false, nil
	}

	content, err := os.ReadFile(file)
	if err != nil {
		return false, fmt.Errorf("failed to read migration: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(string(content)); err != nil {
		return false, err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES ($1)", version); err != nil {
		return false, fmt.Errorf("failed to record migration: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit migration: %w", err)
	}

	logger.Info("Migration applied", "size_bytes", len(content))
	return true, nil
}
