package models

import "time"

type MatchViewResponse struct {
	MatchID      string     `json:"match_id"`
	PickupCode   string     `json:"pickup_code"`
	Kit          string     `json:"kit_type"`
	KitLabel     string     `json:"kit_label"`
	PostID       string     `json:"post_id"`
	ReceiverName string     `json:"receiver_name"`
	IsCompleted  bool       `json:"is_completed"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CompletedBy  string     `json:"completed_by,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type ConfirmResponse struct {
	Outcome string            `json:"outcome"`
	Match   MatchViewResponse `json:"match"`
}

type TargetResponse struct {
	URL string `json:"url"`
}

func ToMatchViewResponse(v *MatchView) MatchViewResponse {
	resp := MatchViewResponse{
		MatchID:      v.MatchID.String(),
		PickupCode:   v.PickupCode,
		Kit:          string(v.Kit),
		KitLabel:     v.Kit.Label(),
		PostID:       v.PostID.String(),
		ReceiverName: v.ReceiverName,
		IsCompleted:  v.IsCompleted,
		CompletedAt:  v.CompletedAt,
		CreatedAt:    v.CreatedAt,
	}
	if v.CompletedBy != nil {
		resp.CompletedBy = v.CompletedBy.String()
	}
	return resp
}

func ToConfirmResponse(r *ConfirmResult) ConfirmResponse {
	return ConfirmResponse{Outcome: string(r.Outcome), Match: ToMatchViewResponse(r.View)}
}
