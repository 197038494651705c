package notification

import (
	"context"
	"encoding/json"
	"fmt"

	syncdomain "github.com/crosspost/backend/internal/domain/sync"
	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the Redis pub/sub channel notifications are published to
const DefaultChannel = "crosspost:notifications"

// Ensure RedisSink implements sync.NotificationSink
var _ syncdomain.NotificationSink = (*RedisSink)(nil)

// RedisSink publishes notifications to a Redis pub/sub channel so external
// consumers (push gateways, dashboards) can subscribe without coupling to
// this service.
type RedisSink struct {
	client  *redis.Client
	channel string
}

// NewRedisSink creates a Redis-backed notification sink. An empty channel
// name falls back to DefaultChannel.
func NewRedisSink(client *redis.Client, channel string) *RedisSink {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisSink{client: client, channel: channel}
}

// Notify publishes the notification as JSON
func (s *RedisSink) Notify(ctx context.Context, n *syncdomain.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	if err := s.client.Publish(ctx, s.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

// FanoutSink delivers each notification to every configured sink. Errors
// from individual sinks are collected so one failing channel does not block
// the others.
type FanoutSink struct {
	sinks []syncdomain.NotificationSink
}

// Ensure FanoutSink implements sync.NotificationSink
var _ syncdomain.NotificationSink = (*FanoutSink)(nil)

// NewFanoutSink combines sinks into one
func NewFanoutSink(sinks ...syncdomain.NotificationSink) *FanoutSink {
	return &FanoutSink{sinks: sinks}
}

// Notify delivers to all sinks and returns the first error encountered
func (s *FanoutSink) Notify(ctx context.Context, n *syncdomain.Notification) error {
	var firstErr error
	for _, sink := range s.sinks {
		if err := sink.Notify(ctx, n); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
