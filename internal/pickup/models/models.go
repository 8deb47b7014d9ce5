package models

import (
	"time"

	matchmodels "kitmatch/internal/matching/models"
	id "kitmatch/pkg/domain"
)

// Outcome is the result of a confirm attempt. Re-confirming a completed
// pickup is a benign race and is reported, not failed.
type Outcome string

const (
	OutcomeCompleted        Outcome = "completed"
	OutcomeAlreadyCompleted Outcome = "already_completed"
)

// MatchView is the read-only projection shown to the operator at the post.
type MatchView struct {
	MatchID      id.MatchID
	PickupCode   string
	Kit          id.KitType
	PostID       id.PostID
	ReceiverName string
	IsCompleted  bool
	CompletedAt  *time.Time
	CompletedBy  *id.OperatorID
	CreatedAt    time.Time
}

func NewMatchView(m *matchmodels.Match, receiverName string) *MatchView {
	return &MatchView{
		MatchID:      m.ID,
		PickupCode:   m.PickupCode,
		Kit:          m.Kit,
		PostID:       m.PostID,
		ReceiverName: receiverName,
		IsCompleted:  m.IsCompleted,
		CompletedAt:  m.CompletedAt,
		CompletedBy:  m.CompletedBy,
		CreatedAt:    m.CreatedAt,
	}
}

type ConfirmResult struct {
	Outcome Outcome
	View    *MatchView
}
