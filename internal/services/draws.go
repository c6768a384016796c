// Package services implements the giveaway core: draw lifecycle,
// participation, winner selection, referral bookkeeping and the
// leaderboard. Services hold no authoritative state; every call goes
// through the storage port, which owns the uniqueness constraints.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"giveaway/internal/models"
	"giveaway/internal/storage"

	"github.com/google/logger"
	"github.com/google/uuid"
)

// DrawService owns the Active→Closed→Drawn state machine.
type DrawService struct {
	store storage.Store
	now   func() time.Time
}

// NewDrawService creates a DrawService on top of the given store.
func NewDrawService(store storage.Store) *DrawService {
	return &DrawService{store: store, now: time.Now}
}

// newDrawID returns a time-ordered draw identifier, so "most recently
// created" is plain id ordering in the store.
func newDrawID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails if the random source does; fall back to v4.
		return uuid.NewString()
	}
	return id.String()
}

// CreateDraw opens a new draw for entries. It fails with
// models.ErrInvalidInput when the title is blank and with
// models.ErrConflict while another draw is still Active.
func (s *DrawService) CreateDraw(ctx context.Context, title string) (models.Draw, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return models.Draw{}, models.ErrInvalidInput
	}

	draw := models.Draw{
		ID:        newDrawID(),
		Title:     title,
		Status:    models.DrawStatusActive,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreateDraw(ctx, draw); err != nil {
		return models.Draw{}, err
	}
	logger.Infof("created draw %s (%q)", draw.ID, draw.Title)
	return draw, nil
}

// CloseDraw transitions the current Active draw to Closed. A second call
// fails with models.ErrNoActiveDraw because no Active draw remains.
func (s *DrawService) CloseDraw(ctx context.Context) (models.Draw, error) {
	active, err := s.store.FindActiveDraw(ctx)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.Draw{}, models.ErrNoActiveDraw
		}
		return models.Draw{}, err
	}
	closed, err := s.store.UpdateDrawStatus(ctx, active.ID, models.DrawStatusActive, models.DrawStatusClosed, nil)
	if err != nil {
		return models.Draw{}, err
	}
	logger.Infof("closed draw %s (%q)", closed.ID, closed.Title)
	return closed, nil
}

// SelectTargetForDrawing returns the most recently created Closed draw
// whose winners have not been selected yet, or models.ErrNotFound.
func (s *DrawService) SelectTargetForDrawing(ctx context.Context) (models.Draw, error) {
	return s.store.FindClosedUndrawnDraw(ctx)
}

// Stats reports the total number of draws and entries for operator
// reporting.
func (s *DrawService) Stats(ctx context.Context) (models.Stats, error) {
	draws, err := s.store.CountDraws(ctx)
	if err != nil {
		return models.Stats{}, err
	}
	participants, err := s.store.CountAllParticipants(ctx)
	if err != nil {
		return models.Stats{}, err
	}
	return models.Stats{Draws: draws, Participants: participants}, nil
}
