// Package cache provides the idempotency stores that keep webhook and
// event redeliveries from being processed twice.
package cache

import (
	"fmt"

	"github.com/crosspost/backend/internal/domain/shared"
	"github.com/crosspost/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NewIdempotencyStore connects to Redis for shared idempotency state.
// When Redis is unreachable and allowInMemoryFallback is set, it
// degrades to the in-memory store; a single instance then still dedupes
// its own redeliveries, but separate instances may double-process.
func NewIdempotencyStore(cfg config.RedisConfig, logger *zap.Logger, allowInMemoryFallback bool) (shared.IdempotencyStore, error) {
	store, err := NewRedisIdempotencyStore(cfg)
	if err == nil {
		logger.Info("using Redis idempotency store")
		return store, nil
	}

	if !allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for idempotency but unavailable: %w", err)
	}

	logger.Warn("Redis unavailable, falling back to in-memory idempotency store; "+
		"duplicate sale events are possible across instances",
		zap.Error(err),
	)
	return NewInMemoryIdempotencyStore(), nil
}
