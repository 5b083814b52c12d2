// Package storage holds the key/value primitives payment records are kept in.
package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("key not found")

// Store is a string key/value store. Writes are last-write-wins; there is no
// TTL and no eviction.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	RemoveMany(ctx context.Context, keys []string) error
	Keys(ctx context.Context) ([]string, error)
}
