package models

import "time"

type OperatorResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	PostID    string    `json:"post_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type LoginResponse struct {
	AccessToken string           `json:"access_token"`
	TokenType   string           `json:"token_type"`
	ExpiresAt   time.Time        `json:"expires_at"`
	Operator    OperatorResponse `json:"operator"`
}

func ToOperatorResponse(o *Operator) OperatorResponse {
	resp := OperatorResponse{
		ID:        o.ID.String(),
		Username:  o.Username,
		Role:      o.Role.String(),
		CreatedAt: o.CreatedAt,
	}
	if o.PostID != nil {
		resp.PostID = o.PostID.String()
	}
	return resp
}

func ToLoginResponse(s *Session) LoginResponse {
	return LoginResponse{
		AccessToken: s.Token,
		TokenType:   "Bearer",
		ExpiresAt:   s.ExpiresAt,
		Operator:    ToOperatorResponse(s.Operator),
	}
}
