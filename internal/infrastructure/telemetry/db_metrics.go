// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBMetricsConfig holds configuration for database metrics.
type DBMetricsConfig struct {
	Enabled            bool
	SlowQueryThreshold time.Duration // Default: 200ms
	PoolStatsInterval  time.Duration // Default: 15s
}

// DBMetrics instruments GORM with query counters, duration histograms,
// a slow-query counter, and connection pool gauges. Queries are labeled
// by operation and table so hot listing/sync tables stand out.
type DBMetrics struct {
	logger *zap.Logger
	cfg    DBMetricsConfig
	sqlDB  *sql.DB

	queryTotal    *Counter
	queryDuration *Histogram
	slowQueries   *Counter
	poolState     *Gauge

	stopCh   chan struct{}
	stopOnce sync.Once
}

const dbMetricsStartKey = "crosspost:db_metrics:started_at"

// RegisterDBMetrics creates the database instruments and hooks them into
// the GORM callback chain. Returns (nil, nil) when disabled, so callers
// can wire it unconditionally.
func RegisterDBMetrics(db *gorm.DB, meter metric.Meter, cfg DBMetricsConfig, logger *zap.Logger) (*DBMetrics, error) {
	if !cfg.Enabled {
		if logger != nil {
			logger.Info("Database metrics disabled")
		}
		return nil, nil
	}
	if db == nil {
		return nil, &MetricsError{Op: "RegisterDBMetrics", Err: "db cannot be nil"}
	}
	if meter == nil {
		return nil, &MetricsError{Op: "RegisterDBMetrics", Err: "meter cannot be nil"}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThreshold <= 0 {
		cfg.SlowQueryThreshold = 200 * time.Millisecond
	}
	if cfg.PoolStatsInterval <= 0 {
		cfg.PoolStatsInterval = 15 * time.Second
	}

	m := &DBMetrics{
		logger: logger,
		cfg:    cfg,
		stopCh: make(chan struct{}),
	}

	var err error

	m.queryTotal, err = NewCounter(
		meter,
		"crosspost_db_query_total",
		"Total number of database queries",
		"{queries}",
	)
	if err != nil {
		return nil, err
	}

	m.queryDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "crosspost_db_query_duration_seconds",
		Description: "Database query duration",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	m.slowQueries, err = NewCounter(
		meter,
		"crosspost_db_slow_query_total",
		"Total number of queries slower than the configured threshold",
		"{queries}",
	)
	if err != nil {
		return nil, err
	}

	m.poolState, err = NewGauge(
		meter,
		"crosspost_db_pool_connections",
		"Database connection pool state",
		"{connections}",
	)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	m.sqlDB = sqlDB

	if err := m.registerCallbacks(db); err != nil {
		return nil, err
	}

	logger.Info("Database metrics registered",
		zap.Duration("slow_query_threshold", cfg.SlowQueryThreshold),
		zap.Duration("pool_stats_interval", cfg.PoolStatsInterval),
	)
	return m, nil
}

// registerCallbacks hooks a timing pair around every GORM operation type.
func (m *DBMetrics) registerCallbacks(db *gorm.DB) error {
	cb := db.Callback()
	hooks := []struct {
		op            string
		before, after func(string, func(*gorm.DB)) error
	}{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}
	for _, h := range hooks {
		if err := h.before("crosspost:db_metrics_before_"+h.op, m.markStart); err != nil {
			return fmt.Errorf("failed to register before-%s callback: %w", h.op, err)
		}
		if err := h.after("crosspost:db_metrics_after_"+h.op, m.recordFinish(h.op)); err != nil {
			return fmt.Errorf("failed to register after-%s callback: %w", h.op, err)
		}
	}
	return nil
}

func (m *DBMetrics) markStart(db *gorm.DB) {
	db.InstanceSet(dbMetricsStartKey, time.Now())
}

func (m *DBMetrics) recordFinish(op string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		v, ok := db.InstanceGet(dbMetricsStartKey)
		if !ok {
			return
		}
		start, ok := v.(time.Time)
		if !ok {
			return
		}
		elapsed := time.Since(start)

		// Row/Raw statements carry no operation type of their own, so
		// classify them from the SQL text.
		operation := op
		if op == "row" || op == "raw" {
			operation = classifySQL(db.Statement.SQL.String())
		}
		table := db.Statement.Table
		if table == "" {
			table = "unknown"
		}

		ctx := db.Statement.Context
		attrs := []attribute.KeyValue{
			AttrDBOperation.String(operation),
			AttrDBTable.String(table),
		}

		m.queryTotal.Inc(ctx, attrs...)
		m.queryDuration.RecordDuration(ctx, elapsed, attrs...)

		if elapsed >= m.cfg.SlowQueryThreshold {
			m.slowQueries.Inc(ctx, attrs...)
			m.logger.Warn("Slow database query",
				zap.String("operation", operation),
				zap.String("table", table),
				zap.Duration("elapsed", elapsed),
			)
		}
	}
}

// classifySQL maps a raw statement to a coarse operation label.
func classifySQL(sqlText string) string {
	s := strings.ToLower(strings.TrimSpace(sqlText))
	switch {
	case strings.HasPrefix(s, "select"):
		return "select"
	case strings.HasPrefix(s, "insert"):
		return "insert"
	case strings.HasPrefix(s, "update"):
		return "update"
	case strings.HasPrefix(s, "delete"):
		return "delete"
	default:
		return "other"
	}
}

// StartPoolSampling periodically records connection pool gauges until
// Stop is called or ctx is canceled.
func (m *DBMetrics) StartPoolSampling(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(m.cfg.PoolStatsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-m.stopCh:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.samplePool(ctx)
			}
		}
	}()
}

func (m *DBMetrics) samplePool(ctx context.Context) {
	stats := m.sqlDB.Stats()
	m.poolState.Record(ctx, int64(stats.Idle), AttrDBState.String("idle"))
	m.poolState.Record(ctx, int64(stats.InUse), AttrDBState.String("in_use"))
	m.poolState.Record(ctx, int64(stats.OpenConnections), AttrDBState.String("open"))
}

// Stop terminates pool sampling. Safe to call more than once.
func (m *DBMetrics) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
}
