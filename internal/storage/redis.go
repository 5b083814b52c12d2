package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const scanBatch = 100

// RedisStore keeps records as plain string keys. Namespace is prepended to
// every key so the store can share a database with other applications.
type RedisStore struct {
	client    *redis.Client
	namespace string
}

func NewRedisStore(addr, password string, db int) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewRedisStoreWithClient(rdb, "")
}

func NewRedisStoreWithClient(client *redis.Client, namespace string) *RedisStore {
	return &RedisStore{client: client, namespace: namespace}
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) key(k string) string {
	return r.namespace + k
}

func (r *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis GET error: %w", err)
	}
	return v, nil
}

func (r *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis SET error: %w", err)
	}
	return nil
}

func (r *RedisStore) Remove(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("redis DEL error: %w", err)
	}
	return nil
}

func (r *RedisStore) RemoveMany(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	if err := r.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("redis DEL error: %w", err)
	}
	return nil
}

// Keys walks the keyspace with SCAN so large databases are never blocked by KEYS.
func (r *RedisStore) Keys(ctx context.Context) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := r.client.Scan(ctx, cursor, r.namespace+"*", scanBatch).Result()
		if err != nil {
			return nil, fmt.Errorf("redis SCAN error: %w", err)
		}
		for _, k := range batch {
			keys = append(keys, k[len(r.namespace):])
		}
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}
