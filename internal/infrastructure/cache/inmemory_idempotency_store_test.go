package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotencyStore_MarkProcessed(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()

	t.Run("first mark returns true", func(t *testing.T) {
		fresh, err := store.MarkProcessed(ctx, "sale:ebay:evt-1", time.Minute)

		require.NoError(t, err)
		assert.True(t, fresh)
	})

	t.Run("duplicate mark returns false", func(t *testing.T) {
		_, err := store.MarkProcessed(ctx, "sale:ebay:evt-2", time.Minute)
		require.NoError(t, err)

		fresh, err := store.MarkProcessed(ctx, "sale:ebay:evt-2", time.Minute)

		require.NoError(t, err)
		assert.False(t, fresh)
	})

	t.Run("expired entry can be marked again", func(t *testing.T) {
		_, err := store.MarkProcessed(ctx, "sale:ebay:evt-3", time.Nanosecond)
		require.NoError(t, err)

		time.Sleep(time.Millisecond)

		fresh, err := store.MarkProcessed(ctx, "sale:ebay:evt-3", time.Minute)

		require.NoError(t, err)
		assert.True(t, fresh)
	})
}

func TestInMemoryIdempotencyStore_IsProcessed(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()

	t.Run("unknown event is not processed", func(t *testing.T) {
		processed, err := store.IsProcessed(ctx, "sale:depop:unknown")

		require.NoError(t, err)
		assert.False(t, processed)
	})

	t.Run("marked event is processed", func(t *testing.T) {
		_, err := store.MarkProcessed(ctx, "sale:depop:evt-1", time.Minute)
		require.NoError(t, err)

		processed, err := store.IsProcessed(ctx, "sale:depop:evt-1")

		require.NoError(t, err)
		assert.True(t, processed)
	})

	t.Run("expired event is not processed", func(t *testing.T) {
		_, err := store.MarkProcessed(ctx, "sale:depop:evt-2", time.Nanosecond)
		require.NoError(t, err)

		time.Sleep(time.Millisecond)

		processed, err := store.IsProcessed(ctx, "sale:depop:evt-2")

		require.NoError(t, err)
		assert.False(t, processed)
	})
}

func TestInMemoryIdempotencyStore_Close(t *testing.T) {
	store := NewInMemoryIdempotencyStore()

	require.NoError(t, store.Close())
	// Safe to call twice
	require.NoError(t, store.Close())
}

func TestInMemoryIdempotencyStore_Cleanup(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()

	_, err := store.MarkProcessed(ctx, "sale:mercari:evt-1", time.Nanosecond)
	require.NoError(t, err)
	_, err = store.MarkProcessed(ctx, "sale:mercari:evt-2", time.Hour)
	require.NoError(t, err)

	time.Sleep(time.Millisecond)
	store.evictExpired()

	assert.Equal(t, 1, store.Size())
}

func TestInMemoryIdempotencyStore_Remove(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()

	fresh, err := store.MarkProcessed(ctx, "sale:ebay:evt-9", time.Hour)
	require.NoError(t, err)
	require.True(t, fresh)

	require.NoError(t, store.Remove(ctx, "sale:ebay:evt-9"))

	// Released claim can be taken again before the TTL expires
	fresh, err = store.MarkProcessed(ctx, "sale:ebay:evt-9", time.Hour)
	require.NoError(t, err)
	assert.True(t, fresh)
}
