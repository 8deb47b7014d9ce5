package models

import (
	"strings"

	dErrors "kitmatch/pkg/domain-errors"
)

type CreatePostRequest struct {
	Name                 string `json:"name"`
	Type                 string `json:"type"`
	Address              string `json:"address"`
	City                 string `json:"city"`
	NeighborhoodCoverage string `json:"neighborhood_coverage"`
	Phone                string `json:"phone"`
	ContactName          string `json:"contact_name"`
	OpeningHours         string `json:"opening_hours"`
	CanReceiveDonations  bool   `json:"can_receive_donations"`
	Public               *bool  `json:"public"`
}

func (r *CreatePostRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Type = strings.ToUpper(strings.TrimSpace(r.Type))
	r.Address = strings.TrimSpace(r.Address)
	r.City = strings.TrimSpace(r.City)
	r.NeighborhoodCoverage = strings.TrimSpace(r.NeighborhoodCoverage)
	r.Phone = strings.TrimSpace(r.Phone)
	r.ContactName = strings.TrimSpace(r.ContactName)
	r.OpeningHours = strings.TrimSpace(r.OpeningHours)
}

func (r *CreatePostRequest) Validate() error {
	var fields []dErrors.FieldError
	if r.Name == "" {
		fields = append(fields, dErrors.FieldError{Field: "name", Message: "required"})
	} else if len(r.Name) > 150 {
		fields = append(fields, dErrors.FieldError{Field: "name", Message: "must be at most 150 characters"})
	}
	if _, err := ParsePostType(r.Type); err != nil {
		fields = append(fields, dErrors.FieldError{Field: "type", Message: "must be one of UBS, CRAS, ASSOCIACAO, ONG, OUTRO"})
	}
	if r.City == "" {
		fields = append(fields, dErrors.FieldError{Field: "city", Message: "required"})
	}
	if len(fields) > 0 {
		return dErrors.Validation(fields...)
	}
	return nil
}

// IsPublic defaults to true when the field is omitted.
func (r *CreatePostRequest) IsPublic() bool {
	return r.Public == nil || *r.Public
}
