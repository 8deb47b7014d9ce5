package models

import (
	"strings"

	id "kitmatch/pkg/domain"
	dErrors "kitmatch/pkg/domain-errors"
)

// CreateMatchRequest is the admin manual pairing payload.
type CreateMatchRequest struct {
	DonorID    string `json:"donor_id"`
	ReceiverID string `json:"receiver_id"`
}

func (r *CreateMatchRequest) Normalize() {
	r.DonorID = strings.TrimSpace(r.DonorID)
	r.ReceiverID = strings.TrimSpace(r.ReceiverID)
}

func (r *CreateMatchRequest) Validate() error {
	var fields []dErrors.FieldError
	if r.DonorID == "" {
		fields = append(fields, dErrors.FieldError{Field: "donor_id", Message: "required"})
	} else if _, err := id.ParseDonorID(r.DonorID); err != nil {
		fields = append(fields, dErrors.FieldError{Field: "donor_id", Message: "must be a UUID"})
	}
	if r.ReceiverID == "" {
		fields = append(fields, dErrors.FieldError{Field: "receiver_id", Message: "required"})
	} else if _, err := id.ParseReceiverID(r.ReceiverID); err != nil {
		fields = append(fields, dErrors.FieldError{Field: "receiver_id", Message: "must be a UUID"})
	}
	if len(fields) > 0 {
		return dErrors.Validation(fields...)
	}
	return nil
}
