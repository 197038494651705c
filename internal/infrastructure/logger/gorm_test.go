package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

func listingQuery() (string, int64) {
	return "SELECT * FROM listings WHERE status = 'listed'", 3
}

func TestGormLogger_LogMode_ReturnsClone(t *testing.T) {
	log, _ := newObservedLogger()
	gl := NewGormLogger(log, gormlogger.Info)

	silent := gl.LogMode(gormlogger.Silent)

	clone, ok := silent.(*GormLogger)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Silent, clone.level)
	assert.Equal(t, gormlogger.Info, gl.level)
}

func TestGormLogger_Trace_Error(t *testing.T) {
	log, logs := newObservedLogger()
	gl := NewGormLogger(log, gormlogger.Error)

	gl.Trace(context.Background(), time.Now(), listingQuery, errors.New("connection reset"))

	entries := logs.FilterMessage("SQL Error").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.ErrorLevel, entries[0].Level)
	assert.Contains(t, entries[0].ContextMap()["sql"], "FROM listings")
}

func TestGormLogger_Trace_MissingRowsIgnored(t *testing.T) {
	log, logs := newObservedLogger()
	gl := NewGormLogger(log, gormlogger.Error)

	gl.Trace(context.Background(), time.Now(), listingQuery, gormlogger.ErrRecordNotFound)

	assert.Zero(t, logs.Len(), "missing rows are routine for external-ID lookups")
}

func TestGormLogger_Trace_MissingRowsLoggedWhenConfigured(t *testing.T) {
	log, logs := newObservedLogger()
	gl := NewGormLogger(log, gormlogger.Error, WithIgnoreRecordNotFoundError(false))

	gl.Trace(context.Background(), time.Now(), listingQuery, gormlogger.ErrRecordNotFound)

	assert.Equal(t, 1, logs.FilterMessage("SQL Error").Len())
}

func TestGormLogger_Trace_SlowQuery(t *testing.T) {
	log, logs := newObservedLogger()
	gl := NewGormLogger(log, gormlogger.Warn, WithSlowThreshold(time.Nanosecond))

	began := time.Now().Add(-time.Millisecond)
	gl.Trace(context.Background(), began, listingQuery, nil)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.WarnLevel, entries[0].Level)
	assert.Contains(t, entries[0].Message, "SLOW SQL")
}

func TestGormLogger_Trace_NormalQueryAtInfoLevel(t *testing.T) {
	log, logs := newObservedLogger()
	gl := NewGormLogger(log, gormlogger.Info)

	gl.Trace(context.Background(), time.Now(), listingQuery, nil)

	entries := logs.FilterMessage("SQL Query").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.DebugLevel, entries[0].Level)
	assert.Equal(t, int64(3), entries[0].ContextMap()["rows"])
}

func TestGormLogger_Trace_Silent(t *testing.T) {
	log, logs := newObservedLogger()
	gl := NewGormLogger(log, gormlogger.Silent)

	gl.Trace(context.Background(), time.Now(), listingQuery, errors.New("ignored"))

	assert.Zero(t, logs.Len())
}

func TestGormLogger_Trace_CarriesRequestID(t *testing.T) {
	log, logs := newObservedLogger()
	gl := NewGormLogger(log, gormlogger.Info)

	ctx, _ := WithRequestID(context.Background(), log, "req-9")
	gl.Trace(ctx, time.Now(), listingQuery, nil)

	entries := logs.FilterMessage("SQL Query").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "req-9", entries[0].ContextMap()["request_id"])
}

func TestMapGormLogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  gormlogger.LogLevel
	}{
		{"silent", gormlogger.Silent},
		{"error", gormlogger.Error},
		{"warn", gormlogger.Warn},
		{"info", gormlogger.Info},
		{"debug", gormlogger.Info},
		{"other", gormlogger.Warn},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MapGormLogLevel(tt.level), "level %q", tt.level)
	}
}

func TestGormLoggerImplementsInterface(t *testing.T) {
	var _ gormlogger.Interface = NewGormLogger(zap.NewNop(), gormlogger.Info)
}
