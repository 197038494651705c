package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/crosspost/backend/internal/domain/shared"
	"github.com/crosspost/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

var _ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)

const idempotencyKeyPrefix = "crosspost:idempotency:"

// RedisIdempotencyStore shares processed-event marks across instances
// through Redis, so a sale webhook delivered to two replicas is still
// handled once.
type RedisIdempotencyStore struct {
	client *redis.Client
}

// NewRedisIdempotencyStore connects to Redis and verifies the
// connection before returning.
func NewRedisIdempotencyStore(cfg config.RedisConfig) (*RedisIdempotencyStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisIdempotencyStore{client: client}, nil
}

// MarkProcessed atomically claims an event ID for the TTL window via
// SETNX. The claim is fresh only when no live key existed.
func (s *RedisIdempotencyStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	fresh, err := s.client.SetNX(ctx, idempotencyKeyPrefix+eventID, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark event processed: %w", err)
	}
	return fresh, nil
}

// IsProcessed reports whether an event ID holds a live claim.
func (s *RedisIdempotencyStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	exists, err := s.client.Exists(ctx, idempotencyKeyPrefix+eventID).Result()
	if err != nil {
		return false, fmt.Errorf("check event processed: %w", err)
	}
	return exists > 0, nil
}

// Remove releases a claim so the event can be handled again.
func (s *RedisIdempotencyStore) Remove(ctx context.Context, eventID string) error {
	if err := s.client.Del(ctx, idempotencyKeyPrefix+eventID).Err(); err != nil {
		return fmt.Errorf("remove processed mark: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (s *RedisIdempotencyStore) Close() error {
	return s.client.Close()
}
