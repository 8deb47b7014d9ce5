package models

type RegistrationResponse struct {
	ID         string `json:"id"`
	Matched    bool   `json:"matched"`
	MatchID    string `json:"match_id,omitempty"`
	PickupCode string `json:"pickup_code,omitempty"`
	Warning    string `json:"warning,omitempty"`
}

// ToDonorResponse never exposes the pickup code: it belongs to the receiver.
func ToDonorResponse(r *Registration) RegistrationResponse {
	resp := RegistrationResponse{ID: r.ID, Matched: r.Matched(), Warning: r.Warning}
	if r.Match != nil {
		resp.MatchID = r.Match.ID.String()
	}
	return resp
}

func ToReceiverResponse(r *Registration) RegistrationResponse {
	resp := ToDonorResponse(r)
	if r.Match != nil {
		resp.PickupCode = r.Match.PickupCode
	}
	return resp
}
