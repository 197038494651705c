package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type tracedListing struct {
	ID    uint `gorm:"primaryKey"`
	Title string
}

func (tracedListing) TableName() string { return "listings" }

func newTracingTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tracedListing{}))
	return db
}

// newSpanRecorder installs a recording provider globally, where otelgorm
// picks its tracer from.
func newSpanRecorder(t *testing.T) (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return tp, recorder
}

func findAttr(attrs []attribute.KeyValue, key attribute.Key) (attribute.Value, bool) {
	for _, a := range attrs {
		if a.Key == key {
			return a.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestDefaultDBTracingConfig(t *testing.T) {
	cfg := DefaultDBTracingConfig()

	assert.False(t, cfg.Enabled)
	assert.False(t, cfg.LogFullSQL)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThresh)
	assert.Equal(t, "postgresql", cfg.DBSystem)
}

func TestDBTracingPlugin_RegisterOtelGorm_Disabled(t *testing.T) {
	db := newTracingTestDB(t)

	plugin := NewDBTracingPlugin(DefaultDBTracingConfig(), zap.NewNop())

	require.NoError(t, plugin.RegisterOtelGorm(db))

	// No callbacks were installed
	assert.Nil(t, db.Callback().Create().Get("crosspost:db_span_before_create"))
}

func TestDBTracingPlugin_RegisterOtelGorm_Enabled(t *testing.T) {
	db := newTracingTestDB(t)

	plugin := NewDBTracingPlugin(DBTracingConfig{
		Enabled:  true,
		DBSystem: "sqlite",
	}, zap.NewNop())

	require.NoError(t, plugin.RegisterOtelGorm(db))

	assert.NotNil(t, db.Callback().Create().Get("crosspost:db_span_before_create"))
	assert.NotNil(t, db.Callback().Raw().Get("crosspost:db_span_after_raw"))
}

func TestDBTracingPlugin_AnnotatesListingWrites(t *testing.T) {
	db := newTracingTestDB(t)
	tp, recorder := newSpanRecorder(t)

	plugin := NewDBTracingPlugin(DBTracingConfig{
		Enabled:         true,
		SlowQueryThresh: time.Minute,
		DBSystem:        "sqlite",
	}, zap.NewNop())
	require.NoError(t, plugin.RegisterOtelGorm(db))

	ctx, span := tp.Tracer("test").Start(context.Background(), "post-listing")
	require.NoError(t, db.WithContext(ctx).Create(&tracedListing{Title: "Vintage camera"}).Error)
	span.End()

	var createSpan sdktrace.ReadOnlySpan
	for _, s := range recorder.Ended() {
		if s.Name() != "post-listing" {
			createSpan = s
		}
	}
	require.NotNil(t, createSpan, "otelgorm should have recorded a statement span")

	rows, ok := findAttr(createSpan.Attributes(), "db.rows_affected")
	require.True(t, ok)
	assert.Equal(t, int64(1), rows.AsInt64())

	table, ok := findAttr(createSpan.Attributes(), "db.sql.table")
	require.True(t, ok)
	assert.Equal(t, "listings", table.AsString())

	// Fast statement, no slow-query marker
	_, slow := findAttr(createSpan.Attributes(), "db.slow_query")
	assert.False(t, slow)
}

func TestDBTracingPlugin_FlagsSlowStatements(t *testing.T) {
	db := newTracingTestDB(t)
	tp, recorder := newSpanRecorder(t)

	// Nanosecond threshold makes every statement slow
	plugin := NewDBTracingPlugin(DBTracingConfig{
		Enabled:         true,
		SlowQueryThresh: time.Nanosecond,
		DBSystem:        "sqlite",
	}, zap.NewNop())
	require.NoError(t, plugin.RegisterOtelGorm(db))

	ctx, span := tp.Tracer("test").Start(context.Background(), "slow-lookup")
	var items []tracedListing
	require.NoError(t, db.WithContext(ctx).Find(&items).Error)
	span.End()

	var flagged bool
	for _, s := range recorder.Ended() {
		if v, ok := findAttr(s.Attributes(), "db.slow_query"); ok && v.AsBool() {
			flagged = true
			for _, e := range s.Events() {
				if e.Name == "slow_query_warning" {
					return
				}
			}
		}
	}
	require.True(t, flagged, "slow statement should be marked on the span")
	t.Fatal("slow_query_warning event missing")
}

func TestDBTracingPlugin_MarksErrorsButNotMissingRows(t *testing.T) {
	db := newTracingTestDB(t)
	tp, recorder := newSpanRecorder(t)

	plugin := NewDBTracingPlugin(DBTracingConfig{
		Enabled:         true,
		SlowQueryThresh: time.Minute,
		DBSystem:        "sqlite",
	}, zap.NewNop())
	require.NoError(t, plugin.RegisterOtelGorm(db))

	ctx, span := tp.Tracer("test").Start(context.Background(), "lookups")

	// Missing row: expected outcome, span stays clean
	var missing tracedListing
	err := db.WithContext(ctx).First(&missing, 9999).Error
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	// Broken SQL: a real error
	require.Error(t, db.WithContext(ctx).Exec("UPDATE no_such_table SET x = 1").Error)
	span.End()

	var errorSpans, okSpans int
	for _, s := range recorder.Ended() {
		if s.Name() == "lookups" {
			continue
		}
		switch s.Status().Code {
		case codes.Error:
			errorSpans++
		default:
			okSpans++
		}
	}
	assert.Equal(t, 1, errorSpans, "only the broken statement should be marked")
	assert.GreaterOrEqual(t, okSpans, 1)
}

func TestWithQueryStartTime(t *testing.T) {
	ctx := WithQueryStartTime(context.Background())

	start, ok := ctx.Value(queryStartTimeKey).(time.Time)
	require.True(t, ok)
	assert.WithinDuration(t, time.Now(), start, time.Second)
}
