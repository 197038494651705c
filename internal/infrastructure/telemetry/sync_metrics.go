// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"time"

	syncapp "github.com/crosspost/backend/internal/application/sync"
	syncdomain "github.com/crosspost/backend/internal/domain/sync"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Ensure SyncMetrics implements the orchestrator's recorder interface
var _ syncapp.MetricsRecorder = (*SyncMetrics)(nil)

// SyncMetrics records marketplace sync activity: post attempts, retries,
// delistings, and adapter round-trip latency, labeled by platform.
type SyncMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	postTotal      *Counter
	retryTotal     *Counter
	cancelTotal    *Counter
	adapterLatency *Histogram
}

// SyncMetricsConfig holds configuration for sync metrics.
type SyncMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewSyncMetrics creates a new SyncMetrics instance.
func NewSyncMetrics(cfg SyncMetricsConfig) (*SyncMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sm := &SyncMetrics{
		meter:  cfg.Meter,
		logger: logger,
	}

	var err error

	sm.postTotal, err = NewCounter(
		cfg.Meter,
		"crosspost_sync_post_total",
		"Total number of platform post attempts",
		"{attempts}",
	)
	if err != nil {
		return nil, err
	}

	sm.retryTotal, err = NewCounter(
		cfg.Meter,
		"crosspost_sync_retry_total",
		"Total number of platform post retries",
		"{attempts}",
	)
	if err != nil {
		return nil, err
	}

	sm.cancelTotal, err = NewCounter(
		cfg.Meter,
		"crosspost_sync_cancel_total",
		"Total number of platform delisting attempts",
		"{attempts}",
	)
	if err != nil {
		return nil, err
	}

	sm.adapterLatency, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "crosspost_adapter_duration_seconds",
		Description: "Marketplace adapter round-trip duration",
		Unit:        "s",
		Boundaries:  AdapterDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	return sm, nil
}

// RecordPost records a platform post attempt.
func (sm *SyncMetrics) RecordPost(ctx context.Context, platform syncdomain.PlatformCode, success bool) {
	sm.postTotal.Inc(ctx,
		AttrPlatform.String(string(platform)),
		AttrSyncResult.String(resultLabel(success)),
	)
}

// RecordRetry records a retry of a previously failed post.
func (sm *SyncMetrics) RecordRetry(ctx context.Context, platform syncdomain.PlatformCode, success bool) {
	sm.retryTotal.Inc(ctx,
		AttrPlatform.String(string(platform)),
		AttrSyncResult.String(resultLabel(success)),
	)
}

// RecordCancel records a platform delisting attempt.
func (sm *SyncMetrics) RecordCancel(ctx context.Context, platform syncdomain.PlatformCode, success bool) {
	sm.cancelTotal.Inc(ctx,
		AttrPlatform.String(string(platform)),
		AttrSyncResult.String(resultLabel(success)),
	)
}

// RecordAdapterLatency records the duration of one adapter round trip.
func (sm *SyncMetrics) RecordAdapterLatency(ctx context.Context, platform syncdomain.PlatformCode, op string, d time.Duration) {
	sm.adapterLatency.RecordDuration(ctx, d,
		AttrPlatform.String(string(platform)),
		AttrSyncOperation.String(op),
	)
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewSyncMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
