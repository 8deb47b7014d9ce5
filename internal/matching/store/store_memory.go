package store

import (
	"bytes"
	"context"
	"sync"
	"time"

	"kitmatch/internal/matching/models"
	id "kitmatch/pkg/domain"
	dErrors "kitmatch/pkg/domain-errors"
	"kitmatch/pkg/platform/sentinel"
)

const defaultTxTimeout = 5 * time.Second

type rwLocker interface {
	Lock()
	Unlock()
	RLock()
	RUnlock()
}

// heldLock is used by the store handed to a transaction function: the
// owning RunInTx already holds the real lock.
type heldLock struct{}

func (heldLock) Lock()    {}
func (heldLock) Unlock()  {}
func (heldLock) RLock()   {}
func (heldLock) RUnlock() {}

type memoryData struct {
	donors    map[id.DonorID]*models.Donor
	receivers map[id.ReceiverID]*models.Receiver
	matches   map[id.MatchID]*models.Match
	codes     map[string]id.MatchID
}

// InMemoryStore keeps donors, receivers and matches in maps. One mutex
// serializes transactions; mutations made inside RunInTx are journaled and
// undone when the transaction function fails.
type InMemoryStore struct {
	lock    rwLocker
	data    *memoryData
	journal *[]func()
	timeout time.Duration
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		lock: &sync.RWMutex{},
		data: &memoryData{
			donors:    make(map[id.DonorID]*models.Donor),
			receivers: make(map[id.ReceiverID]*models.Receiver),
			matches:   make(map[id.MatchID]*models.Match),
			codes:     make(map[string]id.MatchID),
		},
		timeout: defaultTxTimeout,
	}
}

// RunInTx runs fn while holding the store lock. A failing fn leaves the
// store exactly as it was.
func (s *InMemoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if s.journal != nil {
		// already inside a transaction
		return fn(ctx, s)
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	journal := make([]func(), 0, 4)
	tx := &InMemoryStore{lock: heldLock{}, data: s.data, journal: &journal, timeout: s.timeout}
	if err := fn(ctx, tx); err != nil {
		for i := len(journal) - 1; i >= 0; i-- {
			journal[i]()
		}
		return err
	}
	return nil
}

func (s *InMemoryStore) record(undo func()) {
	if s.journal != nil {
		*s.journal = append(*s.journal, undo)
	}
}

func (s *InMemoryStore) InsertDonor(_ context.Context, donor *models.Donor) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if _, ok := s.data.donors[donor.ID]; ok {
		return sentinel.ErrConflict
	}
	d := *donor
	s.data.donors[d.ID] = &d
	s.record(func() { delete(s.data.donors, d.ID) })
	return nil
}

func (s *InMemoryStore) InsertReceiver(_ context.Context, receiver *models.Receiver) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if _, ok := s.data.receivers[receiver.ID]; ok {
		return sentinel.ErrConflict
	}
	r := *receiver
	s.data.receivers[r.ID] = &r
	s.record(func() { delete(s.data.receivers, r.ID) })
	return nil
}

func (s *InMemoryStore) GetDonor(_ context.Context, donorID id.DonorID) (*models.Donor, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	d, ok := s.data.donors[donorID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *d
	return &out, nil
}

func (s *InMemoryStore) GetReceiver(_ context.Context, receiverID id.ReceiverID) (*models.Receiver, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	r, ok := s.data.receivers[receiverID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *r
	return &out, nil
}

// LockDonor is GetDonor; the transaction lock already excludes writers.
func (s *InMemoryStore) LockDonor(ctx context.Context, donorID id.DonorID) (*models.Donor, error) {
	return s.GetDonor(ctx, donorID)
}

func (s *InMemoryStore) LockReceiver(ctx context.Context, receiverID id.ReceiverID) (*models.Receiver, error) {
	return s.GetReceiver(ctx, receiverID)
}

// ClaimDonor returns the oldest active donor at post offering kit that has
// no open match.
func (s *InMemoryStore) ClaimDonor(_ context.Context, postID id.PostID, kit id.KitType) (*models.Donor, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	var best *models.Donor
	for _, d := range s.data.donors {
		if !d.Active || d.PostID != postID || d.Kit != kit || s.donorHasOpenMatch(d.ID) {
			continue
		}
		if best == nil || older(d.CreatedAt, d.ID[:], best.CreatedAt, best.ID[:]) {
			best = d
		}
	}
	if best == nil {
		return nil, sentinel.ErrNotFound
	}
	out := *best
	return &out, nil
}

// ClaimReceiver returns the oldest active receiver at post needing kit that
// has no open match.
func (s *InMemoryStore) ClaimReceiver(_ context.Context, postID id.PostID, kit id.KitType) (*models.Receiver, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	var best *models.Receiver
	for _, r := range s.data.receivers {
		if !r.Active || r.PostID != postID || r.Kit != kit || s.receiverHasOpenMatch(r.ID) {
			continue
		}
		if best == nil || older(r.CreatedAt, r.ID[:], best.CreatedAt, best.ID[:]) {
			best = r
		}
	}
	if best == nil {
		return nil, sentinel.ErrNotFound
	}
	out := *best
	return &out, nil
}

func (s *InMemoryStore) HasOpenMatchForDonor(_ context.Context, donorID id.DonorID) (bool, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.donorHasOpenMatch(donorID), nil
}

func (s *InMemoryStore) HasOpenMatchForReceiver(_ context.Context, receiverID id.ReceiverID) (bool, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.receiverHasOpenMatch(receiverID), nil
}

// LatestReceiverMatchAt returns when the receiver's newest match was created.
func (s *InMemoryStore) LatestReceiverMatchAt(_ context.Context, receiverID id.ReceiverID) (time.Time, bool, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	var latest time.Time
	found := false
	for _, m := range s.data.matches {
		if m.ReceiverID == receiverID && (!found || m.CreatedAt.After(latest)) {
			latest = m.CreatedAt
			found = true
		}
	}
	return latest, found, nil
}

// InsertMatch stores a match. A taken pickup code yields ErrAlreadyUsed; a
// second open match for the same donor or receiver yields ErrConflict.
func (s *InMemoryStore) InsertMatch(_ context.Context, match *models.Match) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if _, taken := s.data.codes[match.PickupCode]; taken {
		return sentinel.ErrAlreadyUsed
	}
	if _, ok := s.data.matches[match.ID]; ok {
		return sentinel.ErrConflict
	}
	if !match.IsCompleted && (s.donorHasOpenMatch(match.DonorID) || s.receiverHasOpenMatch(match.ReceiverID)) {
		return sentinel.ErrConflict
	}
	m := *match
	s.data.matches[m.ID] = &m
	s.data.codes[m.PickupCode] = m.ID
	s.record(func() {
		delete(s.data.matches, m.ID)
		delete(s.data.codes, m.PickupCode)
	})
	return nil
}

// DeactivateDonor flips active to false. Returns ErrInvalidState if the
// donor was already inactive.
func (s *InMemoryStore) DeactivateDonor(_ context.Context, donorID id.DonorID) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	d, ok := s.data.donors[donorID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if !d.Active {
		return sentinel.ErrInvalidState
	}
	d.Active = false
	s.record(func() { d.Active = true })
	return nil
}

func (s *InMemoryStore) GetMatch(_ context.Context, matchID id.MatchID) (*models.Match, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	m, ok := s.data.matches[matchID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyMatch(m), nil
}

func (s *InMemoryStore) GetMatchByCode(_ context.Context, code string) (*models.Match, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	matchID, ok := s.data.codes[code]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyMatch(s.data.matches[matchID]), nil
}

// ListMatches returns matches newest first.
func (s *InMemoryStore) ListMatches(_ context.Context, filter models.MatchFilter) ([]*models.Match, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	out := make([]*models.Match, 0)
	for _, m := range s.data.matches {
		if filter.PostID != nil && m.PostID != *filter.PostID {
			continue
		}
		if filter.Completed != nil && m.IsCompleted != *filter.Completed {
			continue
		}
		if len(filter.Kits) > 0 && !containsKit(filter.Kits, m.Kit) {
			continue
		}
		out = append(out, copyMatch(m))
	}
	sortNewestFirst(out)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// MarkNotified sets notified once. The bool is false if another caller got
// there first.
func (s *InMemoryStore) MarkNotified(_ context.Context, matchID id.MatchID, at time.Time) (bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	m, ok := s.data.matches[matchID]
	if !ok {
		return false, sentinel.ErrNotFound
	}
	if m.Notified {
		return false, nil
	}
	m.Notified = true
	m.NotifiedAt = &at
	s.record(func() {
		m.Notified = false
		m.NotifiedAt = nil
	})
	return true, nil
}

// CompleteMatch marks the match identified by (matchID, code) completed.
// The bool is false when no open match with that pair exists.
func (s *InMemoryStore) CompleteMatch(_ context.Context, matchID id.MatchID, code string, by id.OperatorID, at time.Time) (bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	m, ok := s.data.matches[matchID]
	if !ok || m.PickupCode != code || m.IsCompleted {
		return false, nil
	}
	m.IsCompleted = true
	m.CompletedAt = &at
	m.CompletedBy = &by
	s.record(func() {
		m.IsCompleted = false
		m.CompletedAt = nil
		m.CompletedBy = nil
	})
	return true, nil
}

// ListNotifiedSince returns matches notified at or after since, oldest first.
func (s *InMemoryStore) ListNotifiedSince(_ context.Context, since time.Time) ([]*models.Match, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	out := make([]*models.Match, 0)
	for _, m := range s.data.matches {
		if m.Notified && m.NotifiedAt != nil && !m.NotifiedAt.Before(since) {
			out = append(out, copyMatch(m))
		}
	}
	sortNotifiedOldestFirst(out)
	return out, nil
}

func (s *InMemoryStore) ActiveDonorWithPhone(_ context.Context, phone string) (bool, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	for _, d := range s.data.donors {
		if d.Active && d.Phone == phone {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemoryStore) ActiveReceiverWith(_ context.Context, phone string, kit id.KitType, postID id.PostID) (bool, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	for _, r := range s.data.receivers {
		if r.Active && r.Phone == phone && r.Kit == kit && r.PostID == postID {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemoryStore) donorHasOpenMatch(donorID id.DonorID) bool {
	for _, m := range s.data.matches {
		if m.DonorID == donorID && !m.IsCompleted {
			return true
		}
	}
	return false
}

func (s *InMemoryStore) receiverHasOpenMatch(receiverID id.ReceiverID) bool {
	for _, m := range s.data.matches {
		if m.ReceiverID == receiverID && !m.IsCompleted {
			return true
		}
	}
	return false
}

func older(aAt time.Time, aID []byte, bAt time.Time, bID []byte) bool {
	if !aAt.Equal(bAt) {
		return aAt.Before(bAt)
	}
	return bytes.Compare(aID, bID) < 0
}

func containsKit(kits []id.KitType, kit id.KitType) bool {
	for _, k := range kits {
		if k == kit {
			return true
		}
	}
	return false
}

func copyMatch(m *models.Match) *models.Match {
	out := *m
	if m.CompletedAt != nil {
		t := *m.CompletedAt
		out.CompletedAt = &t
	}
	if m.CompletedBy != nil {
		by := *m.CompletedBy
		out.CompletedBy = &by
	}
	if m.NotifiedAt != nil {
		t := *m.NotifiedAt
		out.NotifiedAt = &t
	}
	return &out
}
