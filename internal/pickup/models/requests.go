package models

import (
	"strings"

	id "kitmatch/pkg/domain"
	dErrors "kitmatch/pkg/domain-errors"
)

type CheckRequest struct {
	Code string `json:"code"`
}

// Normalize drops surrounding whitespace only; codes are case-sensitive.
func (r *CheckRequest) Normalize() {
	r.Code = strings.TrimSpace(r.Code)
}

func (r *CheckRequest) Validate() error {
	if r.Code == "" {
		return dErrors.Validation(dErrors.FieldError{Field: "code", Message: "required"})
	}
	return nil
}

type ConfirmRequest struct {
	MatchID string `json:"match_id"`
	Code    string `json:"code"`
}

func (r *ConfirmRequest) Normalize() {
	r.MatchID = strings.TrimSpace(r.MatchID)
	r.Code = strings.TrimSpace(r.Code)
}

func (r *ConfirmRequest) Validate() error {
	var fields []dErrors.FieldError
	if r.MatchID == "" {
		fields = append(fields, dErrors.FieldError{Field: "match_id", Message: "required"})
	} else if _, err := id.ParseMatchID(r.MatchID); err != nil {
		fields = append(fields, dErrors.FieldError{Field: "match_id", Message: "must be a UUID"})
	}
	if r.Code == "" {
		fields = append(fields, dErrors.FieldError{Field: "code", Message: "required"})
	}
	if len(fields) > 0 {
		return dErrors.Validation(fields...)
	}
	return nil
}
