package services

import (
	"context"

	"giveaway/internal/models"
	"giveaway/internal/storage"
)

// LeaderboardService ranks referrers by how many users they brought in.
type LeaderboardService struct {
	store storage.Store
}

// NewLeaderboardService creates a LeaderboardService on top of the given
// store.
func NewLeaderboardService(store storage.Store) *LeaderboardService {
	return &LeaderboardService{store: store}
}

// TopReferrers returns at most limit (referrer, count) rows ordered by
// count descending with ties broken by referrer id ascending, so the
// ranking is deterministic. No referrals means an empty slice, not an
// error. A non-positive limit falls back to a single row.
func (s *LeaderboardService) TopReferrers(ctx context.Context, limit int) ([]models.ReferrerCount, error) {
	if limit < 1 {
		limit = 1
	}
	counts, err := s.store.AggregateReferralCounts(ctx, limit)
	if err != nil {
		return nil, err
	}
	if counts == nil {
		counts = []models.ReferrerCount{}
	}
	return counts, nil
}
