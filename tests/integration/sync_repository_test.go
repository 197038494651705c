package integration

import (
	"context"
	"testing"
	"time"

	listingdomain "github.com/crosspost/backend/internal/domain/listing"
	"github.com/crosspost/backend/internal/domain/shared"
	syncdomain "github.com/crosspost/backend/internal/domain/sync"
	"github.com/crosspost/backend/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// saveParentListing creates a listing row so platform rows satisfy the
// foreign key constraint.
func saveParentListing(t *testing.T, repo listingdomain.Repository) uuid.UUID {
	t.Helper()

	l, err := listingdomain.NewUnifiedListing(
		"Pikachu Illustrator proxy",
		"Display item",
		decimal.NewFromFloat(19.99),
		listingdomain.ConditionGood,
		nil,
	)
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), l))
	return l.ID
}

// TestPlatformListingRepository_Integration tests the PlatformListingRepository
// against a real PostgreSQL database
func TestPlatformListingRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	listings := persistence.NewGormListingRepository(testDB.DB)
	repo := persistence.NewGormPlatformListingRepository(testDB.DB)
	ctx := context.Background()

	t.Run("Create and FindByListingAndPlatform", func(t *testing.T) {
		listingID := saveParentListing(t, listings)
		row, err := syncdomain.NewPlatformListing(listingID, syncdomain.PlatformCodeEbay)
		require.NoError(t, err)

		require.NoError(t, repo.Create(ctx, row))

		found, err := repo.FindByListingAndPlatform(ctx, listingID, syncdomain.PlatformCodeEbay)
		require.NoError(t, err)
		assert.Equal(t, row.ID, found.ID)
		assert.Equal(t, syncdomain.PostingStatusPending, found.Status)
		assert.Equal(t, 0, found.AttemptCount)
	})

	t.Run("Create enforces one row per listing and platform", func(t *testing.T) {
		listingID := saveParentListing(t, listings)
		first, err := syncdomain.NewPlatformListing(listingID, syncdomain.PlatformCodeMercari)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, first))

		second, err := syncdomain.NewPlatformListing(listingID, syncdomain.PlatformCodeMercari)
		require.NoError(t, err)
		err = repo.Create(ctx, second)
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})

	t.Run("FindByExternalID resolves webhook identifiers", func(t *testing.T) {
		listingID := saveParentListing(t, listings)
		row, err := syncdomain.NewPlatformListing(listingID, syncdomain.PlatformCodeDepop)
		require.NoError(t, err)
		row.RecordAttempt(time.Now())
		require.NoError(t, row.MarkActive("DEPOP-7f3a91"))
		require.NoError(t, repo.Create(ctx, row))

		found, err := repo.FindByExternalID(ctx, syncdomain.PlatformCodeDepop, "DEPOP-7f3a91")
		require.NoError(t, err)
		assert.Equal(t, row.ID, found.ID)

		_, err = repo.FindByExternalID(ctx, syncdomain.PlatformCodeDepop, "DEPOP-missing")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("UpdateWithCAS applies only on matching state", func(t *testing.T) {
		listingID := saveParentListing(t, listings)
		row, err := syncdomain.NewPlatformListing(listingID, syncdomain.PlatformCodePoshmark)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, row))

		row.RecordAttempt(time.Now())
		require.NoError(t, row.MarkActive("PM-abc123"))
		require.NoError(t, repo.UpdateWithCAS(ctx, row, syncdomain.PostingStatusPending, 0))

		found, err := repo.FindByListingAndPlatform(ctx, listingID, syncdomain.PlatformCodePoshmark)
		require.NoError(t, err)
		assert.Equal(t, syncdomain.PostingStatusActive, found.Status)
		assert.Equal(t, "PM-abc123", found.ExternalID)
		assert.Equal(t, 1, found.AttemptCount)

		// Stale expectations lose the race
		err = repo.UpdateWithCAS(ctx, row, syncdomain.PostingStatusPending, 0)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})

	t.Run("FindRetryable returns failed rows below the ceiling", func(t *testing.T) {
		testDB.CleanTables()

		makeRow := func(t *testing.T, attempts int) *syncdomain.PlatformListing {
			t.Helper()
			listingID := saveParentListing(t, listings)
			row, err := syncdomain.NewPlatformListing(listingID, syncdomain.PlatformCodeEbay)
			require.NoError(t, err)
			for i := 0; i < attempts; i++ {
				row.RecordAttempt(time.Now())
				require.NoError(t, row.MarkFailed("ebay: 503"))
			}
			require.NoError(t, repo.Create(ctx, row))
			return row
		}

		retryable := makeRow(t, 1)
		makeRow(t, 3) // exhausted

		rows, err := repo.FindRetryable(ctx, 3, 50)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, retryable.ID, rows[0].ID)
	})

	t.Run("FindCancelDue returns active rows whose takedown is due", func(t *testing.T) {
		testDB.CleanTables()

		listingID := saveParentListing(t, listings)
		due, err := syncdomain.NewPlatformListing(listingID, syncdomain.PlatformCodeEbay)
		require.NoError(t, err)
		due.RecordAttempt(time.Now())
		require.NoError(t, due.MarkActive("EBAY-due001"))
		require.NoError(t, due.ScheduleCancel(time.Now().Add(-time.Minute)))
		require.NoError(t, repo.Create(ctx, due))

		notDue, err := syncdomain.NewPlatformListing(listingID, syncdomain.PlatformCodeMercari)
		require.NoError(t, err)
		notDue.RecordAttempt(time.Now())
		require.NoError(t, notDue.MarkActive("m555666777"))
		require.NoError(t, notDue.ScheduleCancel(time.Now().Add(time.Hour)))
		require.NoError(t, repo.Create(ctx, notDue))

		rows, err := repo.FindCancelDue(ctx, time.Now(), 50)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, due.ID, rows[0].ID)
	})
}

// TestSyncLogRepository_Integration tests the SyncLogRepository against a real
// PostgreSQL database
func TestSyncLogRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	repo := persistence.NewGormSyncLogRepository(testDB.DB)
	ctx := context.Background()

	listingID := uuid.New()
	otherListingID := uuid.New()

	appendEntry := func(id uuid.UUID, platform syncdomain.PlatformCode, op syncdomain.SyncOperation, result syncdomain.SyncResult, detail string) {
		t.Helper()
		entry, err := syncdomain.NewSyncLogEntry(id, platform, op, result, detail)
		require.NoError(t, err)
		require.NoError(t, repo.Append(ctx, entry))
	}

	appendEntry(listingID, syncdomain.PlatformCodeEbay, syncdomain.SyncOperationPost, syncdomain.SyncResultSuccess, "")
	appendEntry(listingID, syncdomain.PlatformCodeMercari, syncdomain.SyncOperationPost, syncdomain.SyncResultFailure, "mercari: 503")
	appendEntry(listingID, syncdomain.PlatformCodeMercari, syncdomain.SyncOperationRetry, syncdomain.SyncResultSuccess, "")
	appendEntry(otherListingID, syncdomain.PlatformCodeEbay, syncdomain.SyncOperationCancel, syncdomain.SyncResultSuccess, "")

	t.Run("FindByListing returns the listing's entries newest first", func(t *testing.T) {
		found, err := repo.FindByListing(ctx, listingID, 10)
		require.NoError(t, err)
		require.Len(t, found, 3)
		for i := 1; i < len(found); i++ {
			assert.False(t, found[i].CreatedAt.After(found[i-1].CreatedAt))
		}
	})

	t.Run("Find filters by platform and result", func(t *testing.T) {
		found, total, err := repo.Find(ctx, syncdomain.SyncLogFilter{
			Platform: syncdomain.PlatformCodeMercari,
			Result:   syncdomain.SyncResultFailure,
			Page:     1,
			PageSize: 20,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, found, 1)
		assert.Equal(t, "mercari: 503", found[0].ErrorDetail)
	})

	t.Run("Find filters by operation with pagination", func(t *testing.T) {
		found, total, err := repo.Find(ctx, syncdomain.SyncLogFilter{
			Operation: syncdomain.SyncOperationPost,
			Page:      1,
			PageSize:  1,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, found, 1)
	})

	t.Run("Find filters by listing", func(t *testing.T) {
		found, total, err := repo.Find(ctx, syncdomain.SyncLogFilter{
			ListingID: &otherListingID,
			Page:      1,
			PageSize:  20,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, found, 1)
		assert.Equal(t, syncdomain.SyncOperationCancel, found[0].Operation)
	})
}
