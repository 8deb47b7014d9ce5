// Package store persists donors, receivers and matches.
package store

import (
	"context"
	"slices"
	"time"

	"kitmatch/internal/matching/models"
	id "kitmatch/pkg/domain"
)

// Store is the record store surface shared by the in-memory and Postgres
// implementations. Conditional writes report whether they won.
type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error

	InsertDonor(ctx context.Context, donor *models.Donor) error
	InsertReceiver(ctx context.Context, receiver *models.Receiver) error
	GetDonor(ctx context.Context, donorID id.DonorID) (*models.Donor, error)
	GetReceiver(ctx context.Context, receiverID id.ReceiverID) (*models.Receiver, error)
	LockDonor(ctx context.Context, donorID id.DonorID) (*models.Donor, error)
	LockReceiver(ctx context.Context, receiverID id.ReceiverID) (*models.Receiver, error)
	ClaimDonor(ctx context.Context, postID id.PostID, kit id.KitType) (*models.Donor, error)
	ClaimReceiver(ctx context.Context, postID id.PostID, kit id.KitType) (*models.Receiver, error)
	HasOpenMatchForDonor(ctx context.Context, donorID id.DonorID) (bool, error)
	HasOpenMatchForReceiver(ctx context.Context, receiverID id.ReceiverID) (bool, error)
	LatestReceiverMatchAt(ctx context.Context, receiverID id.ReceiverID) (time.Time, bool, error)
	InsertMatch(ctx context.Context, match *models.Match) error
	DeactivateDonor(ctx context.Context, donorID id.DonorID) error
	GetMatch(ctx context.Context, matchID id.MatchID) (*models.Match, error)
	GetMatchByCode(ctx context.Context, code string) (*models.Match, error)
	ListMatches(ctx context.Context, filter models.MatchFilter) ([]*models.Match, error)
	MarkNotified(ctx context.Context, matchID id.MatchID, at time.Time) (bool, error)
	CompleteMatch(ctx context.Context, matchID id.MatchID, code string, by id.OperatorID, at time.Time) (bool, error)
	ListNotifiedSince(ctx context.Context, since time.Time) ([]*models.Match, error)
	ActiveDonorWithPhone(ctx context.Context, phone string) (bool, error)
	ActiveReceiverWith(ctx context.Context, phone string, kit id.KitType, postID id.PostID) (bool, error)
}

var (
	_ Store = (*InMemoryStore)(nil)
	_ Store = (*PostgresStore)(nil)
)

func sortNewestFirst(matches []*models.Match) {
	slices.SortFunc(matches, func(a, b *models.Match) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}

func sortNotifiedOldestFirst(matches []*models.Match) {
	slices.SortFunc(matches, func(a, b *models.Match) int {
		return a.NotifiedAt.Compare(*b.NotifiedAt)
	})
}
