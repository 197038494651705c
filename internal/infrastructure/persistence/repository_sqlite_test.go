package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/crosspost/backend/internal/domain/listing"
	"github.com/crosspost/backend/internal/domain/shared"
	syncdomain "github.com/crosspost/backend/internal/domain/sync"
	"github.com/crosspost/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newSQLiteDB opens an in-memory database with the schema migrated.
// Postgres-only queries (ILIKE search) are not exercised here.
func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.ListingModel{},
		&models.PlatformListingModel{},
		&models.SyncLogModel{},
	)
	require.NoError(t, err)

	return db
}

func newPersistedListing(t *testing.T, repo *GormListingRepository) *listing.UnifiedListing {
	t.Helper()

	l, err := listing.NewUnifiedListing("Vintage camera", "Working condition", decimal.NewFromInt(120), listing.ConditionGood, nil)
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), l))
	return l
}

func TestListingRepository_RoundTrip(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewGormListingRepository(db)
	ctx := context.Background()

	t.Run("save and load preserve fields", func(t *testing.T) {
		l := newPersistedListing(t, repo)
		l.SetPhotos([]string{"listings/a.jpg", "listings/b.jpg"})
		cost := decimal.NewFromInt(40)
		require.NoError(t, l.SetAcquisitionCost(cost))
		require.NoError(t, repo.Update(ctx, l))

		loaded, err := repo.FindByID(ctx, l.ID)

		require.NoError(t, err)
		assert.Equal(t, l.Title, loaded.Title)
		assert.Equal(t, []string{"listings/a.jpg", "listings/b.jpg"}, loaded.Photos)
		require.NotNil(t, loaded.AcquisitionCost)
		assert.True(t, loaded.AcquisitionCost.Equal(cost))
		assert.Equal(t, listing.ListingStatusDraft, loaded.Status)
	})

	t.Run("stale version is rejected", func(t *testing.T) {
		l := newPersistedListing(t, repo)

		first, err := repo.FindByID(ctx, l.ID)
		require.NoError(t, err)
		second, err := repo.FindByID(ctx, l.ID)
		require.NoError(t, err)

		require.NoError(t, first.Update("Updated title", first.Description, first.Price))
		require.NoError(t, repo.Update(ctx, first))

		require.NoError(t, second.Update("Conflicting title", second.Description, second.Price))
		err = repo.Update(ctx, second)

		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})

	t.Run("FindSoldBefore returns only old sales", func(t *testing.T) {
		old := newPersistedListing(t, repo)
		require.NoError(t, old.MarkListed())
		require.NoError(t, old.MarkSold("ebay", decimal.NewFromInt(100), time.Now().Add(-40*24*time.Hour)))
		require.NoError(t, repo.Update(ctx, old))

		recent := newPersistedListing(t, repo)
		require.NoError(t, recent.MarkListed())
		require.NoError(t, recent.MarkSold("mercari", decimal.NewFromInt(80), time.Now()))
		require.NoError(t, repo.Update(ctx, recent))

		found, err := repo.FindSoldBefore(ctx, time.Now().Add(-30*24*time.Hour), 10)

		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, old.ID, found[0].ID)
	})

	t.Run("delete missing listing returns ErrNotFound", func(t *testing.T) {
		err := repo.Delete(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestPlatformListingRepository_RoundTrip(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewGormPlatformListingRepository(db)
	ctx := context.Background()

	t.Run("duplicate platform row is rejected", func(t *testing.T) {
		listingID := uuid.New()

		first, err := syncdomain.NewPlatformListing(listingID, syncdomain.PlatformCodeEbay)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, first))

		dup, err := syncdomain.NewPlatformListing(listingID, syncdomain.PlatformCodeEbay)
		require.NoError(t, err)
		err = repo.Create(ctx, dup)

		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})

	t.Run("CAS update applies once", func(t *testing.T) {
		row, err := syncdomain.NewPlatformListing(uuid.New(), syncdomain.PlatformCodePoshmark)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, row))

		expectedStatus := row.Status
		expectedAttempts := row.AttemptCount
		row.RecordAttempt(time.Now())
		require.NoError(t, row.MarkActive("POSH-9"))

		require.NoError(t, repo.UpdateWithCAS(ctx, row, expectedStatus, expectedAttempts))

		// Replaying the same transition against the already-updated row loses
		err = repo.UpdateWithCAS(ctx, row, expectedStatus, expectedAttempts)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

		loaded, err := repo.FindByListingAndPlatform(ctx, row.ListingID, row.Platform)
		require.NoError(t, err)
		assert.Equal(t, syncdomain.PostingStatusActive, loaded.Status)
		assert.Equal(t, "POSH-9", loaded.ExternalID)
		assert.Equal(t, 1, loaded.AttemptCount)
	})

	t.Run("FindByExternalID resolves the row", func(t *testing.T) {
		row, err := syncdomain.NewPlatformListing(uuid.New(), syncdomain.PlatformCodeDepop)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, row))

		expectedStatus := row.Status
		expectedAttempts := row.AttemptCount
		row.RecordAttempt(time.Now())
		require.NoError(t, row.MarkActive("DEP-77"))
		require.NoError(t, repo.UpdateWithCAS(ctx, row, expectedStatus, expectedAttempts))

		loaded, err := repo.FindByExternalID(ctx, syncdomain.PlatformCodeDepop, "DEP-77")

		require.NoError(t, err)
		assert.Equal(t, row.ID, loaded.ID)
	})

	t.Run("FindCancelDue returns only due active rows", func(t *testing.T) {
		due, err := syncdomain.NewPlatformListing(uuid.New(), syncdomain.PlatformCodeMercari)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, due))

		expectedStatus := due.Status
		expectedAttempts := due.AttemptCount
		due.RecordAttempt(time.Now())
		require.NoError(t, due.MarkActive("MER-1"))
		due.ScheduleCancel(time.Now().Add(-time.Minute))
		require.NoError(t, repo.UpdateWithCAS(ctx, due, expectedStatus, expectedAttempts))

		future, err := syncdomain.NewPlatformListing(uuid.New(), syncdomain.PlatformCodeMercari)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, future))

		expectedStatus = future.Status
		expectedAttempts = future.AttemptCount
		future.RecordAttempt(time.Now())
		require.NoError(t, future.MarkActive("MER-2"))
		future.ScheduleCancel(time.Now().Add(time.Hour))
		require.NoError(t, repo.UpdateWithCAS(ctx, future, expectedStatus, expectedAttempts))

		found, err := repo.FindCancelDue(ctx, time.Now(), 10)

		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, due.ID, found[0].ID)
	})
}

func TestSyncLogRepository_RoundTrip(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewGormSyncLogRepository(db)
	ctx := context.Background()

	listingID := uuid.New()

	post, err := syncdomain.NewSyncLogEntry(listingID, syncdomain.PlatformCodeEbay, syncdomain.SyncOperationPost, syncdomain.SyncResultSuccess, "")
	require.NoError(t, err)
	require.NoError(t, repo.Append(ctx, post))

	failed, err := syncdomain.NewSyncLogEntry(listingID, syncdomain.PlatformCodeMercari, syncdomain.SyncOperationPost, syncdomain.SyncResultFailure, "rate limited")
	require.NoError(t, err)
	require.NoError(t, repo.Append(ctx, failed))

	other, err := syncdomain.NewSyncLogEntry(uuid.New(), syncdomain.PlatformCodeEbay, syncdomain.SyncOperationCancel, syncdomain.SyncResultSuccess, "")
	require.NoError(t, err)
	require.NoError(t, repo.Append(ctx, other))

	t.Run("FindByListing scopes to one listing", func(t *testing.T) {
		entries, err := repo.FindByListing(ctx, listingID, 10)

		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})

	t.Run("Find filters by result", func(t *testing.T) {
		entries, total, err := repo.Find(ctx, syncdomain.SyncLogFilter{
			ListingID: &listingID,
			Result:    syncdomain.SyncResultFailure,
		})

		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, entries, 1)
		assert.Equal(t, "rate limited", entries[0].ErrorDetail)
	})
}
