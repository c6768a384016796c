package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"giveaway/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The same conformance suite runs against both implementations, so the
// services can treat them as interchangeable.
func TestStoreConformance(t *testing.T) {
	backends := map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store {
			return NewMemoryStore()
		},
		"badger": func(t *testing.T) Store {
			db, err := OpenBadger("")
			require.NoError(t, err)
			t.Cleanup(func() { _ = db.Close() })
			return NewBadgerStore(db)
		},
	}

	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			t.Run("draw uniqueness and lifecycle", func(t *testing.T) {
				testDrawLifecycle(t, open(t))
			})
			t.Run("participant uniqueness", func(t *testing.T) {
				testParticipantUniqueness(t, open(t))
			})
			t.Run("referral edges", func(t *testing.T) {
				testReferralEdges(t, open(t))
			})
			t.Run("aggregation", func(t *testing.T) {
				testAggregation(t, open(t))
			})
			t.Run("counters", func(t *testing.T) {
				testCounters(t, open(t))
			})
		})
	}
}

func makeDraw(id string, status models.DrawStatus, createdAt time.Time) models.Draw {
	return models.Draw{ID: id, Title: "Draw " + id, Status: status, CreatedAt: createdAt}
}

func testDrawLifecycle(t *testing.T, store Store) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := store.FindActiveDraw(ctx)
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, store.CreateDraw(ctx, makeDraw("d1", models.DrawStatusActive, base)))

	// Second Active draw violates the unique-Active constraint.
	err = store.CreateDraw(ctx, makeDraw("d2", models.DrawStatusActive, base.Add(time.Minute)))
	assert.ErrorIs(t, err, models.ErrConflict)

	// Duplicate id is rejected regardless of status.
	err = store.CreateDraw(ctx, makeDraw("d1", models.DrawStatusClosed, base))
	assert.ErrorIs(t, err, models.ErrConflict)

	active, err := store.FindActiveDraw(ctx)
	require.NoError(t, err)
	assert.Equal(t, "d1", active.ID)

	// Close via CAS; the wrong expected status must not transition.
	_, err = store.UpdateDrawStatus(ctx, "d1", models.DrawStatusClosed, models.DrawStatusDrawn, nil)
	assert.ErrorIs(t, err, models.ErrInvalidState)

	closed, err := store.UpdateDrawStatus(ctx, "d1", models.DrawStatusActive, models.DrawStatusClosed, nil)
	require.NoError(t, err)
	assert.Equal(t, models.DrawStatusClosed, closed.Status)

	_, err = store.FindActiveDraw(ctx)
	assert.ErrorIs(t, err, models.ErrNotFound)

	// A second closed draw created later becomes the drawing target.
	require.NoError(t, store.CreateDraw(ctx, makeDraw("d3", models.DrawStatusActive, base.Add(2*time.Minute))))
	_, err = store.UpdateDrawStatus(ctx, "d3", models.DrawStatusActive, models.DrawStatusClosed, nil)
	require.NoError(t, err)

	target, err := store.FindClosedUndrawnDraw(ctx)
	require.NoError(t, err)
	assert.Equal(t, "d3", target.ID)

	// Drawing winners removes it from the queue; of two CAS calls only
	// the first succeeds.
	drawn, err := store.UpdateDrawStatus(ctx, "d3", models.DrawStatusClosed, models.DrawStatusDrawn, []int64{101})
	require.NoError(t, err)
	assert.Equal(t, []int64{101}, drawn.Winners)

	_, err = store.UpdateDrawStatus(ctx, "d3", models.DrawStatusClosed, models.DrawStatusDrawn, []int64{202})
	assert.ErrorIs(t, err, models.ErrInvalidState)

	target, err = store.FindClosedUndrawnDraw(ctx)
	require.NoError(t, err)
	assert.Equal(t, "d1", target.ID)

	_, err = store.UpdateDrawStatus(ctx, "missing", models.DrawStatusActive, models.DrawStatusClosed, nil)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func testParticipantUniqueness(t *testing.T, store Store) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := store.FindParticipant(ctx, "d1", 101)
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, store.CreateParticipant(ctx, models.Participant{DrawID: "d1", UserID: 101, JoinedAt: now}))
	err = store.CreateParticipant(ctx, models.Participant{DrawID: "d1", UserID: 101, JoinedAt: now.Add(time.Second)})
	assert.ErrorIs(t, err, models.ErrAlreadyJoined)

	// Same user in a different draw is fine.
	require.NoError(t, store.CreateParticipant(ctx, models.Participant{DrawID: "d2", UserID: 101, JoinedAt: now}))
	require.NoError(t, store.CreateParticipant(ctx, models.Participant{DrawID: "d1", UserID: 202, JoinedAt: now.Add(time.Minute)}))

	participants, err := store.ListParticipants(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, participants, 2)
	assert.Equal(t, int64(101), participants[0].UserID)
	assert.Equal(t, int64(202), participants[1].UserID)

	n, err := store.CountParticipants(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func testReferralEdges(t *testing.T, store Store) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.CreateReferral(ctx, models.Referral{ReferrerID: 1, ReferredID: 2, CreatedAt: now}))
	err := store.CreateReferral(ctx, models.Referral{ReferrerID: 1, ReferredID: 2, CreatedAt: now.Add(time.Second)})
	assert.ErrorIs(t, err, models.ErrConflict)

	// A referred user already claimed by referrer 1 cannot be claimed by
	// referrer 9; the first edge stands.
	err = store.CreateReferral(ctx, models.Referral{ReferrerID: 9, ReferredID: 2, CreatedAt: now.Add(time.Second)})
	assert.ErrorIs(t, err, models.ErrConflict)
	kept, err := store.FindReferralByReferred(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), kept.ReferrerID)

	require.NoError(t, store.CreateReferral(ctx, models.Referral{ReferrerID: 1, ReferredID: 3, CreatedAt: now.Add(time.Minute)}))

	edge, err := store.FindReferral(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), edge.ReferredID)

	_, err = store.FindReferral(ctx, 2, 1)
	assert.ErrorIs(t, err, models.ErrNotFound)

	byReferred, err := store.FindReferralByReferred(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(1), byReferred.ReferrerID)

	_, err = store.FindReferralByReferred(ctx, 99)
	assert.ErrorIs(t, err, models.ErrNotFound)

	edges, err := store.ListReferrals(ctx, 1)
	require.NoError(t, err)
	require.Len(t, edges, 2)
	assert.Equal(t, int64(2), edges[0].ReferredID, "creation order")
	assert.Equal(t, int64(3), edges[1].ReferredID)
}

func testAggregation(t *testing.T, store Store) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	counts, err := store.AggregateReferralCounts(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, counts)

	// Referrer 5 and 3 tie with two edges each, 9 has one.
	for i, referrer := range []int64{5, 5, 3, 3, 9} {
		require.NoError(t, store.CreateReferral(ctx, models.Referral{
			ReferrerID: referrer,
			ReferredID: int64(100 + i),
			CreatedAt:  now.Add(time.Duration(i) * time.Second),
		}))
	}

	counts, err = store.AggregateReferralCounts(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []models.ReferrerCount{
		{ReferrerID: 3, Count: 2},
		{ReferrerID: 5, Count: 2},
	}, counts)

	all, err := store.AggregateReferralCounts(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, models.ReferrerCount{ReferrerID: 9, Count: 1}, all[2])
}

func testCounters(t *testing.T, store Store) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	draws, err := store.CountDraws(ctx)
	require.NoError(t, err)
	assert.Zero(t, draws)

	require.NoError(t, store.CreateDraw(ctx, makeDraw("d1", models.DrawStatusActive, now)))
	require.NoError(t, store.CreateParticipant(ctx, models.Participant{DrawID: "d1", UserID: 101, JoinedAt: now}))
	require.NoError(t, store.CreateParticipant(ctx, models.Participant{DrawID: "d1", UserID: 202, JoinedAt: now}))

	draws, err = store.CountDraws(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, draws)

	total, err := store.CountAllParticipants(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

// Concurrent joins by the same user race to one success, and every
// loser observes ErrAlreadyJoined — whether it lost to an existing key
// or to a transaction conflict — never two entries.
func TestStore_ConcurrentJoins(t *testing.T) {
	backends := map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store {
			return NewMemoryStore()
		},
		"badger": func(t *testing.T) Store {
			db, err := OpenBadger("")
			require.NoError(t, err)
			t.Cleanup(func() { _ = db.Close() })
			return NewBadgerStore(db)
		},
	}

	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := open(t)
			now := time.Now().UTC()

			const attempts = 16
			var wg sync.WaitGroup
			errs := make([]error, attempts)
			for i := 0; i < attempts; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					errs[i] = store.CreateParticipant(ctx, models.Participant{DrawID: "d1", UserID: 101, JoinedAt: now})
				}(i)
			}
			wg.Wait()

			successes := 0
			for _, err := range errs {
				if err == nil {
					successes++
				} else {
					assert.ErrorIs(t, err, models.ErrAlreadyJoined)
				}
			}
			assert.Equal(t, 1, successes)

			n, err := store.CountParticipants(ctx, "d1")
			require.NoError(t, err)
			assert.Equal(t, 1, n)
		})
	}
}
