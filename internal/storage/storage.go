// Package storage defines the persistence port for the giveaway core and
// provides its two implementations: an in-memory store and a BadgerDB store.
// Uniqueness constraints (one Active draw, one entry per user per draw, one
// edge per referral pair) are enforced here, atomically, so the services
// above never race on read-then-write.
package storage

import (
	"context"
	"sort"

	"giveaway/internal/models"
)

// Store is the single source of truth for draws, participants and
// referral edges. Every method either succeeds or fails with an error
// wrapping models.ErrStorageUnavailable (infrastructure) or one of the
// constraint sentinels noted per method.
type Store interface {
	// FindDraw returns the draw with the given id, or models.ErrNotFound.
	FindDraw(ctx context.Context, id string) (models.Draw, error)
	// FindActiveDraw returns the single Active draw, or models.ErrNotFound.
	FindActiveDraw(ctx context.Context) (models.Draw, error)
	// FindClosedUndrawnDraw returns the most recently created draw that is
	// Closed with empty winners, or models.ErrNotFound.
	FindClosedUndrawnDraw(ctx context.Context) (models.Draw, error)
	// CreateDraw persists a new draw. Fails with models.ErrConflict if the
	// draw is Active and an Active draw already exists.
	CreateDraw(ctx context.Context, draw models.Draw) error
	// UpdateDrawStatus transitions a draw from one status to another,
	// atomically. Winners, if non-nil, are recorded in the same step.
	// Fails with models.ErrNotFound if the draw does not exist and with
	// models.ErrInvalidState if its status is not `from`.
	UpdateDrawStatus(ctx context.Context, id string, from, to models.DrawStatus, winners []int64) (models.Draw, error)

	// FindParticipant reports a user's entry in a draw, or models.ErrNotFound.
	FindParticipant(ctx context.Context, drawID string, userID int64) (models.Participant, error)
	// CreateParticipant persists an entry. Fails with models.ErrAlreadyJoined
	// if the (drawID, userID) pair already exists.
	CreateParticipant(ctx context.Context, p models.Participant) error
	// ListParticipants returns a draw's entries in insertion order.
	ListParticipants(ctx context.Context, drawID string) ([]models.Participant, error)
	// CountParticipants returns the number of entries in one draw.
	CountParticipants(ctx context.Context, drawID string) (int, error)

	// FindReferral returns the edge for the pair, or models.ErrNotFound.
	FindReferral(ctx context.Context, referrerID, referredID int64) (models.Referral, error)
	// FindReferralByReferred returns the edge pointing at referredID
	// regardless of referrer, or models.ErrNotFound.
	FindReferralByReferred(ctx context.Context, referredID int64) (models.Referral, error)
	// CreateReferral persists an edge. Fails with models.ErrConflict if the
	// (referrerID, referredID) pair already exists or the referred user is
	// already claimed by another referrer.
	CreateReferral(ctx context.Context, r models.Referral) error
	// ListReferrals returns a referrer's edges in creation order.
	ListReferrals(ctx context.Context, referrerID int64) ([]models.Referral, error)
	// AggregateReferralCounts groups edges by referrer and returns at most
	// limit rows, ordered per SortReferrerCounts.
	AggregateReferralCounts(ctx context.Context, limit int) ([]models.ReferrerCount, error)

	// CountDraws returns the total number of draws ever created.
	CountDraws(ctx context.Context) (int, error)
	// CountAllParticipants returns the total number of entries across all draws.
	CountAllParticipants(ctx context.Context) (int, error)
}

// SortReferrerCounts orders leaderboard rows by count descending, ties
// broken by referrer id ascending, and truncates to limit. Both store
// implementations use it so their output is identical.
func SortReferrerCounts(counts []models.ReferrerCount, limit int) []models.ReferrerCount {
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].ReferrerID < counts[j].ReferrerID
	})
	if limit >= 0 && len(counts) > limit {
		counts = counts[:limit]
	}
	return counts
}
