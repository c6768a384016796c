package services

import (
	"context"
	"testing"

	"giveaway/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferralService_RecordReferral(t *testing.T) {
	ctx := context.Background()

	t.Run("records a new edge", func(t *testing.T) {
		svc := NewReferralService(storage.NewMemoryStore())

		created, err := svc.RecordReferral(ctx, 1, 2)
		require.NoError(t, err)
		assert.True(t, created)
	})

	t.Run("self-referral is a no-op", func(t *testing.T) {
		store := storage.NewMemoryStore()
		svc := NewReferralService(store)

		created, err := svc.RecordReferral(ctx, 7, 7)
		require.NoError(t, err)
		assert.False(t, created)

		referred, err := svc.ListReferredBy(ctx, 7)
		require.NoError(t, err)
		assert.Empty(t, referred)
	})

	t.Run("a repeated edge is deduplicated", func(t *testing.T) {
		svc := NewReferralService(storage.NewMemoryStore())

		created, err := svc.RecordReferral(ctx, 1, 2)
		require.NoError(t, err)
		assert.True(t, created)

		created, err = svc.RecordReferral(ctx, 1, 2)
		require.NoError(t, err)
		assert.False(t, created)

		referred, err := svc.ListReferredBy(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, []int64{2}, referred)
	})

	t.Run("the first referrer of a user wins", func(t *testing.T) {
		svc := NewReferralService(storage.NewMemoryStore())

		created, err := svc.RecordReferral(ctx, 1, 3)
		require.NoError(t, err)
		assert.True(t, created)

		// A different referrer claiming the same user is silently ignored.
		created, err = svc.RecordReferral(ctx, 2, 3)
		require.NoError(t, err)
		assert.False(t, created)

		first, err := svc.ListReferredBy(ctx, 1)
		require.NoError(t, err)
		second, err := svc.ListReferredBy(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, []int64{3}, first)
		assert.Empty(t, second)
	})
}

func TestReferralService_ListReferredBy(t *testing.T) {
	ctx := context.Background()
	svc := NewReferralService(storage.NewMemoryStore())

	for _, referred := range []int64{10, 11, 12} {
		created, err := svc.RecordReferral(ctx, 1, referred)
		require.NoError(t, err)
		require.True(t, created)
	}

	referred, err := svc.ListReferredBy(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 11, 12}, referred, "creation order is preserved")

	none, err := svc.ListReferredBy(ctx, 99)
	require.NoError(t, err)
	assert.Empty(t, none)
}
