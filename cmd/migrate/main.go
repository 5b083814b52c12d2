package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cinetpay-checkout/internal/config"
	"cinetpay-checkout/internal/db"
	"cinetpay-checkout/internal/logger"

	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv, cfg.LogFile)
	defer logger.Sync()

	mode := flag.String("mode", "up", "migration mode: up, down or status")
	dir := flag.String("dir", "./migrations", "directory holding *.sql migrations")
	flag.Parse()

	database, err := db.NewDatabase(cfg.DBURL)
	if err != nil {
		logger.L().Fatal("Migration database unavailable", zap.Error(err))
	}
	defer database.Close()

	if err := run(database, os.Stdout, *mode, *dir); err != nil {
		logger.L().Fatal("Migration failed", zap.String("mode", *mode), zap.Error(err))
	}
}

func run(db *sql.DB, out io.Writer, mode, migrationsDir string) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to ensure schema_migrations table: %w", err)
	}

	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.sql"))
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}
	sort.Strings(files)

	switch mode {
	case "up":
		return runMigrationsUp(db, out, files)
	case "down":
		return runMigrationsDown(db, out, files)
	case "status":
		return printStatus(db, out, files)
	default:
		return fmt.Errorf("unknown mode: %s (use 'up', 'down' or 'status')", mode)
	}
}

func isApplied(db *sql.DB, version string) (bool, error) {
	var exists bool
	err := db.QueryRow(`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`, version).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check migration status: %w", err)
	}
	return exists, nil
}

func runMigrationsUp(db *sql.DB, out io.Writer, files []string) error {
	for _, file := range files {
		version := filepath.Base(file)

		applied, err := isApplied(db, version)
		if err != nil {
			return err
		}
		if applied {
			fmt.Fprintf(out, "skip    %s\n", version)
			continue
		}

		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file, err)
		}

		upSQL := extractMigrationPart(string(content), "Up")
		if strings.TrimSpace(upSQL) == "" {
			return fmt.Errorf("migration %s has no Up section", version)
		}

		if _, err := db.Exec(upSQL); err != nil {
			return fmt.Errorf("migration failed (%s): %w", version, err)
		}
		if _, err := db.Exec(`INSERT INTO schema_migrations (version) VALUES ($1)`, version); err != nil {
			return fmt.Errorf("failed to record migration version: %w", err)
		}
		fmt.Fprintf(out, "applied %s\n", version)
	}
	return nil
}

func runMigrationsDown(db *sql.DB, out io.Writer, files []string) error {
	var lastVersion string
	err := db.QueryRow(`SELECT version FROM schema_migrations ORDER BY applied_at DESC, version DESC LIMIT 1`).Scan(&lastVersion)
	if errors.Is(err, sql.ErrNoRows) {
		fmt.Fprintln(out, "nothing to roll back")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get last applied migration: %w", err)
	}

	filePath := ""
	for _, f := range files {
		if filepath.Base(f) == lastVersion {
			filePath = f
			break
		}
	}
	if filePath == "" {
		return fmt.Errorf("migration file not found for version: %s", lastVersion)
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filePath, err)
	}

	if _, err := db.Exec(extractMigrationPart(string(content), "Down")); err != nil {
		return fmt.Errorf("rollback failed (%s): %w", lastVersion, err)
	}
	if _, err := db.Exec(`DELETE FROM schema_migrations WHERE version = $1`, lastVersion); err != nil {
		return fmt.Errorf("failed to remove migration record: %w", err)
	}

	fmt.Fprintf(out, "reverted %s\n", lastVersion)
	return nil
}

func printStatus(db *sql.DB, out io.Writer, files []string) error {
	for _, file := range files {
		version := filepath.Base(file)
		applied, err := isApplied(db, version)
		if err != nil {
			return err
		}
		state := "pending"
		if applied {
			state = "applied"
		}
		fmt.Fprintf(out, "%-8s %s\n", state, version)
	}
	return nil
}

// extractMigrationPart returns the lines between "-- +migrate <section>" and
// the next marker.
func extractMigrationPart(content string, section string) string {
	var part strings.Builder
	var inPart bool

	for _, line := range strings.Split(content, "\n") {
		if strings.Contains(line, "-- +migrate "+section) {
			inPart = true
			continue
		}
		if inPart && strings.HasPrefix(line, "-- +migrate") {
			break
		}
		if inPart {
			part.WriteString(line + "\n")
		}
	}
	return part.String()
}
