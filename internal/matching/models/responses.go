package models

import "time"

type MatchResponse struct {
	ID          string     `json:"id"`
	DonorID     string     `json:"donor_id"`
	ReceiverID  string     `json:"receiver_id"`
	PostID      string     `json:"post_id"`
	Kit         string     `json:"kit_type"`
	KitLabel    string     `json:"kit_label"`
	PickupCode  string     `json:"pickup_code"`
	IsCompleted bool       `json:"is_completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Notified    bool       `json:"notified"`
	CreatedAt   time.Time  `json:"created_at"`
}

type ListMatchesResponse struct {
	Matches []MatchResponse `json:"matches"`
}

type CreateMatchResponse struct {
	Match   MatchResponse `json:"match"`
	Warning string        `json:"warning,omitempty"`
}

func ToMatchResponse(m *Match) MatchResponse {
	return MatchResponse{
		ID:          m.ID.String(),
		DonorID:     m.DonorID.String(),
		ReceiverID:  m.ReceiverID.String(),
		PostID:      m.PostID.String(),
		Kit:         string(m.Kit),
		KitLabel:    m.Kit.Label(),
		PickupCode:  m.PickupCode,
		IsCompleted: m.IsCompleted,
		CompletedAt: m.CompletedAt,
		Notified:    m.Notified,
		CreatedAt:   m.CreatedAt,
	}
}

func ToListMatchesResponse(matches []*Match) ListMatchesResponse {
	out := ListMatchesResponse{Matches: make([]MatchResponse, 0, len(matches))}
	for _, m := range matches {
		out.Matches = append(out.Matches, ToMatchResponse(m))
	}
	return out
}
