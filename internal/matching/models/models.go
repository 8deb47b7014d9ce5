package models

import (
	"time"

	id "kitmatch/pkg/domain"
)

// Donor offers one kit at a post. A donor is consumed by its first match and
// never selected again.
type Donor struct {
	ID        id.DonorID
	Name      string
	Phone     string
	Kit       id.KitType
	PostID    id.PostID
	Active    bool
	CreatedAt time.Time
}

// Receiver needs one kit at a post. Receivers stay active after a match and
// become eligible again once that match is completed.
type Receiver struct {
	ID           id.ReceiverID
	Name         string
	Phone        string
	City         string
	Neighborhood string
	// Clinical marks post-surgery or breast-cancer treatment patients.
	Clinical  bool
	Kit       id.KitType
	PostID    id.PostID
	Notes     string
	Active    bool
	CreatedAt time.Time
}

// Match pairs a donor with a receiver and carries the pickup code.
type Match struct {
	ID          id.MatchID
	DonorID     id.DonorID
	ReceiverID  id.ReceiverID
	PostID      id.PostID
	Kit         id.KitType
	PickupCode  string
	IsCompleted bool
	CompletedAt *time.Time
	CompletedBy *id.OperatorID
	Notified    bool
	NotifiedAt  *time.Time
	CreatedAt   time.Time
}

// MatchFilter narrows ListMatches. Nil fields match everything.
type MatchFilter struct {
	PostID    *id.PostID
	Completed *bool
	Kits      []id.KitType
	Limit     int
}

// NewMatch builds an open match; the kit is taken from the donor.
func NewMatch(donor *Donor, receiver *Receiver, code string, now time.Time) *Match {
	return &Match{
		ID:         id.NewMatchID(),
		DonorID:    donor.ID,
		ReceiverID: receiver.ID,
		PostID:     donor.PostID,
		Kit:        donor.Kit,
		PickupCode: code,
		CreatedAt:  now,
	}
}

// Compatible reports whether donor and receiver may be paired: same post
// and same kit, both active.
func Compatible(donor *Donor, receiver *Receiver) bool {
	return donor.Active && receiver.Active &&
		donor.PostID == receiver.PostID &&
		donor.Kit == receiver.Kit
}
