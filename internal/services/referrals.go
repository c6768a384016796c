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

// ReferralService records who invited whom. Edges are deduplicated and
// the first referrer of a user is authoritative.
type ReferralService struct {
	store storage.Store
	now   func() time.Time
}

// NewReferralService creates a ReferralService on top of the given store.
func NewReferralService(store storage.Store) *ReferralService {
	return &ReferralService{store: store, now: time.Now}
}

// RecordReferral attributes referredID's arrival to referrerID. It
// returns whether a new edge was created, so the caller can decide
// whether to notify the referrer. Self-referrals, repeated edges and
// claims on a user already attributed to another referrer are silent
// no-ops, not errors.
func (s *ReferralService) RecordReferral(ctx context.Context, referrerID, referredID int64) (bool, error) {
	if referrerID == referredID {
		return false, nil
	}

	// First recorded referrer wins; a later claim by someone else is ignored.
	_, err := s.store.FindReferralByReferred(ctx, referredID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return false, err
	}

	referral := models.Referral{
		ReferrerID: referrerID,
		ReferredID: referredID,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.store.CreateReferral(ctx, referral); err != nil {
		if errors.Is(err, models.ErrConflict) {
			// Lost a race against an identical or competing claim.
			return false, nil
		}
		return false, err
	}
	logger.Infof("recorded referral %d -> %d", referrerID, referredID)
	return true, nil
}

// ListReferredBy returns the users attributed to referrerID in the order
// the edges were created.
func (s *ReferralService) ListReferredBy(ctx context.Context, referrerID int64) ([]int64, error) {
	referrals, err := s.store.ListReferrals(ctx, referrerID)
	if err != nil {
		return nil, err
	}
	return lo.Map(referrals, func(r models.Referral, _ int) int64 {
		return r.ReferredID
	}), nil
}
