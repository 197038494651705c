package listing

import (
	"testing"
	"time"

	"github.com/crosspost/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestListing(t *testing.T) *UnifiedListing {
	t.Helper()
	l, err := NewUnifiedListing("Vintage Band Tee", "1994 tour shirt", decimal.NewFromInt(45), ConditionGood, []string{"photos/a.jpg", "photos/b.jpg"})
	require.NoError(t, err)
	return l
}

func TestNewUnifiedListing(t *testing.T) {
	t.Run("creates draft", func(t *testing.T) {
		l := newTestListing(t)

		assert.Equal(t, ListingStatusDraft, l.Status)
		assert.Equal(t, "Vintage Band Tee", l.Title)
		assert.Equal(t, []string{"photos/a.jpg", "photos/b.jpg"}, l.Photos)
		assert.Len(t, l.GetDomainEvents(), 1)
		assert.Equal(t, EventTypeListingCreated, l.GetDomainEvents()[0].EventType())
	})

	t.Run("rejects empty title", func(t *testing.T) {
		_, err := NewUnifiedListing("  ", "d", decimal.NewFromInt(10), ConditionNew, nil)
		assert.Error(t, err)
	})

	t.Run("rejects non-positive price", func(t *testing.T) {
		_, err := NewUnifiedListing("Item", "d", decimal.Zero, ConditionNew, nil)
		assert.Error(t, err)

		_, err = NewUnifiedListing("Item", "d", decimal.NewFromInt(-5), ConditionNew, nil)
		assert.Error(t, err)
	})

	t.Run("rejects unknown condition", func(t *testing.T) {
		_, err := NewUnifiedListing("Item", "d", decimal.NewFromInt(10), Condition("mint"), nil)
		assert.Error(t, err)
	})
}

func TestUnifiedListing_Update(t *testing.T) {
	l := newTestListing(t)
	v := l.GetVersion()

	require.NoError(t, l.Update("New Title", "new desc", decimal.NewFromInt(50)))
	assert.Equal(t, "New Title", l.Title)
	assert.True(t, l.Price.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, v+1, l.GetVersion())

	require.NoError(t, l.MarkSold("ebay", decimal.NewFromInt(50), time.Now()))
	assert.ErrorIs(t, l.Update("x", "y", decimal.NewFromInt(1)), shared.ErrInvalidState)
}

func TestUnifiedListing_MarkListed(t *testing.T) {
	l := newTestListing(t)

	require.NoError(t, l.MarkListed())
	assert.Equal(t, ListingStatusListed, l.Status)

	// idempotent
	require.NoError(t, l.MarkListed())

	require.NoError(t, l.Archive())
	assert.ErrorIs(t, l.MarkListed(), shared.ErrInvalidState)
}

func TestUnifiedListing_MarkSold(t *testing.T) {
	t.Run("records sale details", func(t *testing.T) {
		l := newTestListing(t)
		require.NoError(t, l.MarkListed())
		soldAt := time.Now()

		require.NoError(t, l.MarkSold("mercari", decimal.NewFromInt(42), soldAt))

		assert.Equal(t, ListingStatusSold, l.Status)
		assert.Equal(t, "mercari", l.SoldPlatform)
		require.NotNil(t, l.SoldPrice)
		assert.True(t, l.SoldPrice.Equal(decimal.NewFromInt(42)))
		require.NotNil(t, l.SoldAt)
	})

	t.Run("idempotent on second sale", func(t *testing.T) {
		l := newTestListing(t)
		require.NoError(t, l.MarkSold("mercari", decimal.NewFromInt(42), time.Now()))
		l.ClearDomainEvents()

		require.NoError(t, l.MarkSold("ebay", decimal.NewFromInt(99), time.Now()))

		// first sale wins, no new event
		assert.Equal(t, "mercari", l.SoldPlatform)
		assert.True(t, l.SoldPrice.Equal(decimal.NewFromInt(42)))
		assert.Empty(t, l.GetDomainEvents())
	})

	t.Run("archived listings cannot sell", func(t *testing.T) {
		l := newTestListing(t)
		require.NoError(t, l.Archive())
		assert.ErrorIs(t, l.MarkSold("ebay", decimal.NewFromInt(10), time.Now()), shared.ErrInvalidState)
	})
}

func TestUnifiedListing_Profit(t *testing.T) {
	l := newTestListing(t)

	_, ok := l.Profit()
	assert.False(t, ok, "unsold listing has no profit")

	require.NoError(t, l.SetAcquisitionCost(decimal.NewFromInt(12)))
	require.NoError(t, l.MarkSold("depop", decimal.NewFromInt(45), time.Now()))

	profit, ok := l.Profit()
	require.True(t, ok)
	assert.True(t, profit.Equal(decimal.NewFromInt(33)))
}
