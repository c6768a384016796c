package services

import (
	"context"
	"errors"
	"time"

	"giveaway/internal/models"
	"giveaway/internal/storage"

	"github.com/google/logger"
	"github.com/samber/lo"
)

// RegistrationService enforces one entry per user per draw.
type RegistrationService struct {
	store storage.Store
	now   func() time.Time
}

// NewRegistrationService creates a RegistrationService on top of the
// given store.
func NewRegistrationService(store storage.Store) *RegistrationService {
	return &RegistrationService{store: store, now: time.Now}
}

// Join enters userID into the current Active draw and returns that draw
// for caller-side acknowledgment. It fails with models.ErrNoActiveDraw
// when no draw is open and with models.ErrAlreadyJoined on a repeat
// entry. Concurrent joins by the same user race harmlessly: the store's
// unique pair constraint lets exactly one through.
func (s *RegistrationService) Join(ctx context.Context, userID int64) (models.Draw, error) {
	active, err := s.store.FindActiveDraw(ctx)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.Draw{}, models.ErrNoActiveDraw
		}
		return models.Draw{}, err
	}

	participant := models.Participant{
		DrawID:   active.ID,
		UserID:   userID,
		JoinedAt: s.now().UTC(),
	}
	if err := s.store.CreateParticipant(ctx, participant); err != nil {
		return models.Draw{}, err
	}
	logger.Infof("user %d joined draw %s", userID, active.ID)
	return active, nil
}

// HasJoined reports whether userID holds an entry in the current Active
// draw. It fails with models.ErrNoActiveDraw when no draw is open.
func (s *RegistrationService) HasJoined(ctx context.Context, userID int64) (bool, error) {
	active, err := s.store.FindActiveDraw(ctx)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return false, models.ErrNoActiveDraw
		}
		return false, err
	}
	_, err = s.store.FindParticipant(ctx, active.ID, userID)
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListParticipants returns the user ids entered in a draw. Order follows
// the store's insertion order and carries no semantic meaning.
func (s *RegistrationService) ListParticipants(ctx context.Context, drawID string) ([]int64, error) {
	participants, err := s.store.ListParticipants(ctx, drawID)
	if err != nil {
		return nil, err
	}
	return lo.Map(participants, func(p models.Participant, _ int) int64 {
		return p.UserID
	}), nil
}
