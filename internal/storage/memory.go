package storage

import (
	"context"
	"sync"

	"giveaway/internal/models"

	"github.com/samber/lo"
)

// MemoryStore keeps everything in process memory behind a single mutex.
// It backs tests and ephemeral deployments; durability comes from
// BadgerStore.
type MemoryStore struct {
	mu           sync.Mutex
	draws        []models.Draw
	participants []models.Participant
	referrals    []models.Referral
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// FindDraw returns the draw with the given id.
func (s *MemoryStore) FindDraw(_ context.Context, id string) (models.Draw, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.draws {
		if d.ID == id {
			return cloneDraw(d), nil
		}
	}
	return models.Draw{}, models.ErrNotFound
}

// FindActiveDraw returns the single Active draw.
func (s *MemoryStore) FindActiveDraw(_ context.Context) (models.Draw, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.draws {
		if d.Status == models.DrawStatusActive {
			return cloneDraw(d), nil
		}
	}
	return models.Draw{}, models.ErrNotFound
}

// FindClosedUndrawnDraw returns the most recently created Closed draw
// with empty winners.
func (s *MemoryStore) FindClosedUndrawnDraw(_ context.Context) (models.Draw, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	best := -1
	for i, d := range s.draws {
		if d.Status != models.DrawStatusClosed || len(d.Winners) > 0 {
			continue
		}
		if best < 0 || d.CreatedAt.After(s.draws[best].CreatedAt) {
			best = i
		}
	}
	if best < 0 {
		return models.Draw{}, models.ErrNotFound
	}
	return cloneDraw(s.draws[best]), nil
}

// CreateDraw persists a new draw, enforcing at most one Active draw.
func (s *MemoryStore) CreateDraw(_ context.Context, draw models.Draw) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.draws {
		if draw.Status == models.DrawStatusActive && d.Status == models.DrawStatusActive {
			return models.ErrConflict
		}
		if d.ID == draw.ID {
			return models.ErrConflict
		}
	}
	s.draws = append(s.draws, cloneDraw(draw))
	return nil
}

// UpdateDrawStatus performs the compare-and-set transition.
func (s *MemoryStore) UpdateDrawStatus(_ context.Context, id string, from, to models.DrawStatus, winners []int64) (models.Draw, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, d := range s.draws {
		if d.ID != id {
			continue
		}
		if d.Status != from {
			return models.Draw{}, models.ErrInvalidState
		}
		s.draws[i].Status = to
		if winners != nil {
			s.draws[i].Winners = append([]int64(nil), winners...)
		}
		return cloneDraw(s.draws[i]), nil
	}
	return models.Draw{}, models.ErrNotFound
}

// FindParticipant reports a user's entry in a draw.
func (s *MemoryStore) FindParticipant(_ context.Context, drawID string, userID int64) (models.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.participants {
		if p.DrawID == drawID && p.UserID == userID {
			return p, nil
		}
	}
	return models.Participant{}, models.ErrNotFound
}

// CreateParticipant persists an entry, enforcing the unique pair.
func (s *MemoryStore) CreateParticipant(_ context.Context, participant models.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.participants {
		if p.DrawID == participant.DrawID && p.UserID == participant.UserID {
			return models.ErrAlreadyJoined
		}
	}
	s.participants = append(s.participants, participant)
	return nil
}

// ListParticipants returns a draw's entries in insertion order.
func (s *MemoryStore) ListParticipants(_ context.Context, drawID string) ([]models.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.Filter(s.participants, func(p models.Participant, _ int) bool {
		return p.DrawID == drawID
	}), nil
}

// CountParticipants returns the number of entries in one draw.
func (s *MemoryStore) CountParticipants(_ context.Context, drawID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.CountBy(s.participants, func(p models.Participant) bool {
		return p.DrawID == drawID
	}), nil
}

// FindReferral returns the edge for the pair.
func (s *MemoryStore) FindReferral(_ context.Context, referrerID, referredID int64) (models.Referral, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.referrals {
		if r.ReferrerID == referrerID && r.ReferredID == referredID {
			return r, nil
		}
	}
	return models.Referral{}, models.ErrNotFound
}

// FindReferralByReferred returns the edge pointing at referredID.
func (s *MemoryStore) FindReferralByReferred(_ context.Context, referredID int64) (models.Referral, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.referrals {
		if r.ReferredID == referredID {
			return r, nil
		}
	}
	return models.Referral{}, models.ErrNotFound
}

// CreateReferral persists an edge. A referred user already claimed by
// any referrer rejects the new edge, keeping the first claim
// authoritative.
func (s *MemoryStore) CreateReferral(_ context.Context, referral models.Referral) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.referrals {
		if r.ReferredID == referral.ReferredID {
			return models.ErrConflict
		}
	}
	s.referrals = append(s.referrals, referral)
	return nil
}

// ListReferrals returns a referrer's edges in creation order.
func (s *MemoryStore) ListReferrals(_ context.Context, referrerID int64) ([]models.Referral, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.Filter(s.referrals, func(r models.Referral, _ int) bool {
		return r.ReferrerID == referrerID
	}), nil
}

// AggregateReferralCounts groups edges by referrer.
func (s *MemoryStore) AggregateReferralCounts(_ context.Context, limit int) ([]models.ReferrerCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byReferrer := lo.CountValuesBy(s.referrals, func(r models.Referral) int64 {
		return r.ReferrerID
	})
	counts := lo.MapToSlice(byReferrer, func(id int64, n int) models.ReferrerCount {
		return models.ReferrerCount{ReferrerID: id, Count: n}
	})
	return SortReferrerCounts(counts, limit), nil
}

// CountDraws returns the total number of draws.
func (s *MemoryStore) CountDraws(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.draws), nil
}

// CountAllParticipants returns the total number of entries across all draws.
func (s *MemoryStore) CountAllParticipants(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.participants), nil
}

func cloneDraw(d models.Draw) models.Draw {
	d.Winners = append([]int64(nil), d.Winners...)
	return d
}
