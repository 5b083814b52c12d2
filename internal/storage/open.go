package storage

import (
	"context"
	"fmt"
	"io"

	"cinetpay-checkout/internal/config"
	"cinetpay-checkout/internal/db"
)

const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverDynamoDB = "dynamodb"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open builds the store selected by cfg.StoreDriver. The returned closer
// releases its connection.
func Open(ctx context.Context, cfg *config.Config) (Store, io.Closer, error) {
	switch cfg.StoreDriver {
	case "", DriverMemory:
		return NewMemoryStore(), nopCloser{}, nil

	case DriverRedis:
		s := NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := s.Ping(ctx); err != nil {
			s.Close()
			return nil, nil, err
		}
		return s, s, nil

	case DriverPostgres:
		database, err := db.NewDatabase(cfg.DBURL)
		if err != nil {
			return nil, nil, err
		}
		return NewPostgresStore(database), database, nil

	case DriverDynamoDB:
		client, err := NewDynamoClient(ctx, cfg.AWSRegion, cfg.DynamoEndpoint)
		if err != nil {
			return nil, nil, err
		}
		return NewDynamoStore(client, cfg.DynamoTable), nopCloser{}, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
