// Package testutil holds the small shared fixtures used across the
// backend's unit tests.
package testutil

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// MockDB is a GORM handle backed by sqlmock, for repository tests that
// assert on the SQL without a real database.
type MockDB struct {
	DB    *gorm.DB
	Mock  sqlmock.Sqlmock
	sqlDB *sql.DB
}

// NewMockDB opens a sqlmock-backed GORM connection. It is closed
// automatically when the test finishes.
func NewMockDB(t *testing.T) *MockDB {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err, "create sqlmock")
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       sqlDB,
		DriverName: "postgres",
	}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err, "open gorm over sqlmock")

	return &MockDB{DB: db, Mock: mock, sqlDB: sqlDB}
}

// ExpectationsWereMet fails the test if any expected statement was
// never executed.
func (m *MockDB) ExpectationsWereMet(t *testing.T) {
	t.Helper()
	require.NoError(t, m.Mock.ExpectationsWereMet(), "unmet database expectations")
}
