package services

import (
	"context"
	"math/rand"

	"giveaway/internal/models"
	"giveaway/internal/storage"

	"github.com/google/logger"
)

// WinnerService samples winners from a closed draw's participant set.
// Fairness needs uniform sampling, not unpredictability, so math/rand
// is enough.
type WinnerService struct {
	store storage.Store
	// shuffle defaults to the package-level rand.Shuffle, whose global
	// source is internally locked; handlers run concurrently and a bare
	// *rand.Rand is not safe to share. Tests swap in a seeded source.
	shuffle func(n int, swap func(i, j int))
}

// NewWinnerService creates a WinnerService.
func NewWinnerService(store storage.Store) *WinnerService {
	return &WinnerService{
		store:   store,
		shuffle: rand.Shuffle,
	}
}

// DrawWinners selects min(count, participants) distinct winners from the
// draw via an unbiased without-replacement shuffle, records them and
// transitions the draw to Drawn. A count below 1 is coerced to 1 so a
// bare draw command selects a single winner. The Closed→Drawn transition
// is a storage-level compare-and-set: of two concurrent calls exactly
// one succeeds, the other fails with models.ErrInvalidState.
func (s *WinnerService) DrawWinners(ctx context.Context, drawID string, count int) ([]int64, error) {
	if count < 1 {
		count = 1
	}

	draw, err := s.store.FindDraw(ctx, drawID)
	if err != nil {
		return nil, err
	}
	if draw.Status != models.DrawStatusClosed || len(draw.Winners) > 0 {
		return nil, models.ErrInvalidState
	}

	participants, err := s.store.ListParticipants(ctx, drawID)
	if err != nil {
		return nil, err
	}
	if len(participants) == 0 {
		return nil, models.ErrNoParticipants
	}

	pool := make([]int64, len(participants))
	for i, p := range participants {
		pool[i] = p.UserID
	}
	s.shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	if count > len(pool) {
		count = len(pool)
	}
	winners := pool[:count]

	if _, err := s.store.UpdateDrawStatus(ctx, drawID, models.DrawStatusClosed, models.DrawStatusDrawn, winners); err != nil {
		return nil, err
	}
	logger.Infof("drew %d winner(s) for draw %s", len(winners), drawID)
	return winners, nil
}
