package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/party-queue-system/pkg/store"
)

type Options struct {
	Addr     string
	Password string
	DB       int
	// TTL applied on every write; 0 means records never expire.
	TTL time.Duration
}

type KVStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewKVStore creates a key-value store backed by the given Redis client
func NewKVStore(client *redis.Client, ttl time.Duration) *KVStore {
	return &KVStore{client: client, ttl: ttl}
}

// Connect opens a client and verifies the server answers PING
func Connect(ctx context.Context, opts Options) (*KVStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewKVStore(client, opts.TTL), nil
}

// Get retrieves the raw record stored under key
func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, nil
}

// Set overwrites the record stored under key
func (s *KVStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Delete removes a record; only used by tooling and tests
func (s *KVStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func (s *KVStore) Close() error {
	return s.client.Close()
}
