package localstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces every key written by RedisStore
const KeyPrefix = "testforge:local"

// RedisStore keeps values as plain Redis strings without expiry
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore wraps an existing client
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// NewRedisClient parses a redis:// URL and checks the connection
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("error connecting to redis: %w", err)
	}
	return client, nil
}

func redisKey(userID uuid.UUID, key string) string {
	return fmt.Sprintf("%s:%s:%s", KeyPrefix, userID, key)
}

// Get returns the value of key or ErrNotFound
func (r *RedisStore) Get(ctx context.Context, userID uuid.UUID, key string) (string, error) {
	value, err := r.client.Get(ctx, redisKey(userID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, nil
}

func (r *RedisStore) Set(ctx context.Context, userID uuid.UUID, key, value string) error {
	if err := r.client.Set(ctx, redisKey(userID, key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, userID uuid.UUID, key string) error {
	if err := r.client.Del(ctx, redisKey(userID, key)).Err(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
