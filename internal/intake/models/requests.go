package models

import (
	"strings"
	"time"

	matchmodels "kitmatch/internal/matching/models"
	id "kitmatch/pkg/domain"
	dErrors "kitmatch/pkg/domain-errors"
	pstrings "kitmatch/pkg/platform/strings"
)

const (
	maxNameLen  = 80
	maxCityLen  = 40
	maxPlaceLen = 60
)

// blockedWords are matched against folded text, so they are written without
// accents.
var blockedWords = []string{
	"matar", "suic", "bomba", "arma", "odio", "nazi", "estupr",
	"vaga de emprego", "pix gratis", "golpe",
	"puta", "viado", "bicha", "arrombado", "caralho", "porra", "desgraca",
	"idiota", "retardado", "macaco", "biscate", "lixo",
}

// ContainsBlockedWords reports whether any of texts carries offensive or
// spam content.
func ContainsBlockedWords(texts ...string) bool {
	return pstrings.ContainsAnyFolded(blockedWords, texts...)
}

// RegisterDonorRequest is the public donation form.
type RegisterDonorRequest struct {
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Kit    string `json:"kit_type"`
	PostID string `json:"post_id"`

	rawPhone string
}

func (r *RegisterDonorRequest) Normalize() {
	r.Name = pstrings.CleanText(r.Name, maxNameLen)
	r.rawPhone = r.Phone
	r.Phone = normalizePhoneField(r.Phone)
	r.Kit = strings.TrimSpace(r.Kit)
	r.PostID = strings.TrimSpace(r.PostID)
}

func (r *RegisterDonorRequest) Validate() error {
	fields := validateCommon(r.Name, r.Phone, r.Kit, r.PostID)
	if ContainsBlockedWords(r.Name, r.Kit, r.rawPhone) {
		fields = append(fields, blockedField)
	}
	if len(fields) > 0 {
		return dErrors.Validation(fields...)
	}
	return nil
}

// Donor builds the record to store. Validate must have passed.
func (r *RegisterDonorRequest) Donor(now time.Time) *matchmodels.Donor {
	kit, _ := id.ParseKitType(r.Kit)
	postID, _ := id.ParsePostID(r.PostID)
	return &matchmodels.Donor{
		ID:        id.NewDonorID(),
		Name:      r.Name,
		Phone:     r.Phone,
		Kit:       kit,
		PostID:    postID,
		Active:    true,
		CreatedAt: now,
	}
}

// RegisterReceiverRequest is the public request-a-kit form.
type RegisterReceiverRequest struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	City         string `json:"city"`
	Neighborhood string `json:"neighborhood"`
	Clinical     bool   `json:"clinical"`
	Kit          string `json:"kit_type"`
	PostID       string `json:"post_id"`
	Notes        string `json:"notes"`

	rawPhone string
}

func (r *RegisterReceiverRequest) Normalize() {
	r.Name = pstrings.CleanText(r.Name, maxNameLen)
	r.rawPhone = r.Phone
	r.Phone = normalizePhoneField(r.Phone)
	r.City = pstrings.CleanText(r.City, maxCityLen)
	r.Neighborhood = pstrings.CleanText(r.Neighborhood, maxPlaceLen)
	r.Kit = strings.TrimSpace(r.Kit)
	r.PostID = strings.TrimSpace(r.PostID)
	r.Notes = pstrings.CleanText(r.Notes, 0)
}

func (r *RegisterReceiverRequest) Validate() error {
	fields := validateCommon(r.Name, r.Phone, r.Kit, r.PostID)
	if ContainsBlockedWords(r.Name, r.Kit, r.rawPhone) {
		fields = append(fields, blockedField)
	}
	if len(fields) > 0 {
		return dErrors.Validation(fields...)
	}
	return nil
}

// Receiver builds the record to store. Validate must have passed.
func (r *RegisterReceiverRequest) Receiver(now time.Time) *matchmodels.Receiver {
	kit, _ := id.ParseKitType(r.Kit)
	postID, _ := id.ParsePostID(r.PostID)
	return &matchmodels.Receiver{
		ID:           id.NewReceiverID(),
		Name:         r.Name,
		Phone:        r.Phone,
		City:         r.City,
		Neighborhood: r.Neighborhood,
		Clinical:     r.Clinical,
		Kit:          kit,
		PostID:       postID,
		Notes:        r.Notes,
		Active:       true,
		CreatedAt:    now,
	}
}

var blockedField = dErrors.FieldError{Field: "content", Message: "contains words that are not allowed"}

// normalizePhoneField keeps the trimmed input when it cannot be normalized so
// Validate can reject it.
func normalizePhoneField(raw string) string {
	if phone, ok := NormalizePhone(raw); ok {
		return phone
	}
	return strings.TrimSpace(raw)
}

func validateCommon(name, phone, kit, postID string) []dErrors.FieldError {
	var fields []dErrors.FieldError
	if name == "" {
		fields = append(fields, dErrors.FieldError{Field: "name", Message: "required"})
	}
	if phone == "" {
		fields = append(fields, dErrors.FieldError{Field: "phone", Message: "required"})
	} else if _, ok := NormalizePhone(phone); !ok {
		fields = append(fields, dErrors.FieldError{Field: "phone", Message: "must be a Brazilian mobile number, e.g. (81) 99123-4567"})
	}
	if kit == "" {
		fields = append(fields, dErrors.FieldError{Field: "kit_type", Message: "required"})
	} else if _, err := id.ParseKitType(kit); err != nil {
		fields = append(fields, dErrors.FieldError{Field: "kit_type", Message: "unknown kit type"})
	}
	if postID == "" {
		fields = append(fields, dErrors.FieldError{Field: "post_id", Message: "required"})
	} else if _, err := id.ParsePostID(postID); err != nil {
		fields = append(fields, dErrors.FieldError{Field: "post_id", Message: "must be a UUID"})
	}
	return fields
}
