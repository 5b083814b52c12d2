package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

// PostgresStore keeps records in the payment_records table created by
// migrations/001_payment_records.sql.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM payment_records WHERE key = $1
	`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *PostgresStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payment_records (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, key, value)
	return err
}

func (s *PostgresStore) Remove(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM payment_records WHERE key = $1
	`, key)
	return err
}

func (s *PostgresStore) RemoveMany(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM payment_records WHERE key = ANY($1)
	`, pq.Array(keys))
	return err
}

func (s *PostgresStore) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key FROM payment_records ORDER BY key
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
