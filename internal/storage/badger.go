package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"giveaway/internal/models"

	"github.com/dgraph-io/badger/v4"
)

// Key layout. Draw ids are UUIDv7 so the draw prefix iterates in
// creation order.
const (
	keyDrawPrefix        = "draw:"
	keyActiveDraw        = "draw_active"
	keyParticipantPrefix = "participant:"
	keyReferralPrefix    = "referral:"
	keyReferredByPrefix  = "referredby:"
)

// BadgerStore is the durable implementation of Store on top of BadgerDB.
// Uniqueness is a get-then-set inside a single serializable transaction;
// concurrent writers to the same key lose with a conflict.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore wraps an open badger database.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// OpenBadger opens (or creates) the database under dir. An empty dir
// selects badger's in-memory mode, used by tests.
func OpenBadger(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLogger(nil)
	return badger.Open(opts)
}

func drawKey(id string) []byte {
	return []byte(keyDrawPrefix + id)
}

func participantKey(drawID string, userID int64) []byte {
	return []byte(keyParticipantPrefix + drawID + ":" + strconv.FormatInt(userID, 10))
}

func referralKey(referrerID, referredID int64) []byte {
	return []byte(keyReferralPrefix + strconv.FormatInt(referrerID, 10) + ":" + strconv.FormatInt(referredID, 10))
}

func referredByKey(referredID int64) []byte {
	return []byte(keyReferredByPrefix + strconv.FormatInt(referredID, 10))
}

// storageErr translates badger failures into the core taxonomy.
func storageErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return models.ErrNotFound
	case errors.Is(err, badger.ErrConflict):
		return models.ErrConflict
	case errors.Is(err, models.ErrNotFound),
		errors.Is(err, models.ErrConflict),
		errors.Is(err, models.ErrAlreadyJoined),
		errors.Is(err, models.ErrInvalidState):
		return err
	default:
		return fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
	}
}

func getJSON(txn *badger.Txn, key []byte, out any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}

func setJSON(txn *badger.Txn, key []byte, in any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

// FindDraw returns the draw with the given id.
func (s *BadgerStore) FindDraw(_ context.Context, id string) (models.Draw, error) {
	var draw models.Draw
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, drawKey(id), &draw)
	})
	return draw, storageErr(err)
}

// FindActiveDraw follows the active-draw pointer key.
func (s *BadgerStore) FindActiveDraw(_ context.Context) (models.Draw, error) {
	var draw models.Draw
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyActiveDraw))
		if err != nil {
			return err
		}
		var id string
		if err := item.Value(func(val []byte) error {
			id = string(val)
			return nil
		}); err != nil {
			return err
		}
		return getJSON(txn, drawKey(id), &draw)
	})
	return draw, storageErr(err)
}

// FindClosedUndrawnDraw scans draws and keeps the most recently created
// Closed one with empty winners.
func (s *BadgerStore) FindClosedUndrawnDraw(_ context.Context) (models.Draw, error) {
	var (
		best  models.Draw
		found bool
	)
	err := s.db.View(func(txn *badger.Txn) error {
		return forEachJSON(txn, keyDrawPrefix, func(d models.Draw) error {
			if d.Status != models.DrawStatusClosed || len(d.Winners) > 0 {
				return nil
			}
			if !found || d.CreatedAt.After(best.CreatedAt) {
				best = d
				found = true
			}
			return nil
		})
	})
	if err != nil {
		return models.Draw{}, storageErr(err)
	}
	if !found {
		return models.Draw{}, models.ErrNotFound
	}
	return best, nil
}

// CreateDraw persists a new draw. The active-draw pointer key doubles as
// the unique constraint on {status: Active}.
func (s *BadgerStore) CreateDraw(_ context.Context, draw models.Draw) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(drawKey(draw.ID)); err == nil {
			return models.ErrConflict
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if draw.Status == models.DrawStatusActive {
			if _, err := txn.Get([]byte(keyActiveDraw)); err == nil {
				return models.ErrConflict
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			if err := txn.Set([]byte(keyActiveDraw), []byte(draw.ID)); err != nil {
				return err
			}
		}
		return setJSON(txn, drawKey(draw.ID), draw)
	})
	return storageErr(err)
}

// UpdateDrawStatus performs the compare-and-set transition and keeps the
// active-draw pointer in sync.
func (s *BadgerStore) UpdateDrawStatus(_ context.Context, id string, from, to models.DrawStatus, winners []int64) (models.Draw, error) {
	var draw models.Draw
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := getJSON(txn, drawKey(id), &draw); err != nil {
			return err
		}
		if draw.Status != from {
			return models.ErrInvalidState
		}
		draw.Status = to
		if winners != nil {
			draw.Winners = winners
		}
		if from == models.DrawStatusActive && to != models.DrawStatusActive {
			if err := txn.Delete([]byte(keyActiveDraw)); err != nil {
				return err
			}
		}
		return setJSON(txn, drawKey(id), draw)
	})
	if err != nil {
		return models.Draw{}, storageErr(err)
	}
	return draw, nil
}

// FindParticipant reports a user's entry in a draw.
func (s *BadgerStore) FindParticipant(_ context.Context, drawID string, userID int64) (models.Participant, error) {
	var p models.Participant
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, participantKey(drawID, userID), &p)
	})
	return p, storageErr(err)
}

// CreateParticipant persists an entry, enforcing the unique pair. A
// transaction aborted by a concurrent identical join is reported as
// models.ErrAlreadyJoined too, so race losers see the same outcome as
// late arrivals.
func (s *BadgerStore) CreateParticipant(_ context.Context, p models.Participant) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		key := participantKey(p.DrawID, p.UserID)
		if _, err := txn.Get(key); err == nil {
			return models.ErrAlreadyJoined
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return setJSON(txn, key, p)
	})
	if errors.Is(err, badger.ErrConflict) {
		return models.ErrAlreadyJoined
	}
	return storageErr(err)
}

// ListParticipants returns a draw's entries ordered by join time.
func (s *BadgerStore) ListParticipants(_ context.Context, drawID string) ([]models.Participant, error) {
	var out []models.Participant
	err := s.db.View(func(txn *badger.Txn) error {
		return forEachJSON(txn, keyParticipantPrefix+drawID+":", func(p models.Participant) error {
			out = append(out, p)
			return nil
		})
	})
	if err != nil {
		return nil, storageErr(err)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out, nil
}

// CountParticipants returns the number of entries in one draw.
func (s *BadgerStore) CountParticipants(_ context.Context, drawID string) (int, error) {
	n, err := s.countPrefix(keyParticipantPrefix + drawID + ":")
	return n, storageErr(err)
}

// FindReferral returns the edge for the pair.
func (s *BadgerStore) FindReferral(_ context.Context, referrerID, referredID int64) (models.Referral, error) {
	var r models.Referral
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, referralKey(referrerID, referredID), &r)
	})
	return r, storageErr(err)
}

// FindReferralByReferred follows the reverse index.
func (s *BadgerStore) FindReferralByReferred(_ context.Context, referredID int64) (models.Referral, error) {
	var r models.Referral
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, referredByKey(referredID), &r)
	})
	return r, storageErr(err)
}

// CreateReferral persists an edge plus its reverse-index entry in one
// transaction. Reading the reverse-index key first both enforces the
// one-referrer-per-referred constraint and makes competing writers
// conflict at commit, so the first claim always stands.
func (s *BadgerStore) CreateReferral(_ context.Context, r models.Referral) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(referredByKey(r.ReferredID)); err == nil {
			return models.ErrConflict
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		key := referralKey(r.ReferrerID, r.ReferredID)
		if _, err := txn.Get(key); err == nil {
			return models.ErrConflict
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := setJSON(txn, key, r); err != nil {
			return err
		}
		return setJSON(txn, referredByKey(r.ReferredID), r)
	})
	return storageErr(err)
}

// ListReferrals returns a referrer's edges in creation order.
func (s *BadgerStore) ListReferrals(_ context.Context, referrerID int64) ([]models.Referral, error) {
	var out []models.Referral
	err := s.db.View(func(txn *badger.Txn) error {
		return forEachJSON(txn, keyReferralPrefix+strconv.FormatInt(referrerID, 10)+":", func(r models.Referral) error {
			out = append(out, r)
			return nil
		})
	})
	if err != nil {
		return nil, storageErr(err)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// AggregateReferralCounts scans all edges and groups them by referrer.
func (s *BadgerStore) AggregateReferralCounts(_ context.Context, limit int) ([]models.ReferrerCount, error) {
	byReferrer := make(map[int64]int)
	err := s.db.View(func(txn *badger.Txn) error {
		return forEachJSON(txn, keyReferralPrefix, func(r models.Referral) error {
			byReferrer[r.ReferrerID]++
			return nil
		})
	})
	if err != nil {
		return nil, storageErr(err)
	}
	counts := make([]models.ReferrerCount, 0, len(byReferrer))
	for id, n := range byReferrer {
		counts = append(counts, models.ReferrerCount{ReferrerID: id, Count: n})
	}
	return SortReferrerCounts(counts, limit), nil
}

// CountDraws returns the total number of draws.
func (s *BadgerStore) CountDraws(_ context.Context) (int, error) {
	n, err := s.countPrefix(keyDrawPrefix)
	return n, storageErr(err)
}

// CountAllParticipants returns the total number of entries across all draws.
func (s *BadgerStore) CountAllParticipants(_ context.Context) (int, error) {
	n, err := s.countPrefix(keyParticipantPrefix)
	return n, storageErr(err)
}

func (s *BadgerStore) countPrefix(prefix string) (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

func forEachJSON[T any](txn *badger.Txn, prefix string, fn func(T) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	it := txn.NewIterator(opts)
	defer it.Close()
	for it.Rewind(); it.Valid(); it.Next() {
		var v T
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &v)
		}); err != nil {
			return err
		}
		if err := fn(v); err != nil {
			return err
		}
	}
	return nil
}
