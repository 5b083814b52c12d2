package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cinetpay-checkout/internal/config"
	"cinetpay-checkout/internal/logger"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const pingTimeout = 5 * time.Second

var ErrMissingURL = errors.New("DB_URL is not set")

// NewDatabase opens and pings the Postgres database at dbURL.
func NewDatabase(dbURL string) (*sql.DB, error) {
	return newDatabaseWithDriver("postgres", dbURL)
}

func newDatabaseWithDriver(driver, dbURL string) (*sql.DB, error) {
	if dbURL == "" {
		return nil, ErrMissingURL
	}

	db, err := sql.Open(driver, dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to DB: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}

	return db, nil
}

// InitDB is NewDatabase for process startup: it exits on failure.
func InitDB(cfg *config.Config) *sql.DB {
	db, err := NewDatabase(cfg.DBURL)
	if err != nil {
		logger.L().Fatal("Database unavailable", zap.Error(err))
	}

	logger.L().Info("Database connection established")
	return db
}
