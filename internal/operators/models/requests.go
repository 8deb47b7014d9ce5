package models

import (
	"strings"

	id "kitmatch/pkg/domain"
	dErrors "kitmatch/pkg/domain-errors"
)

const (
	minPasswordLen = 8
	maxUsernameLen = 64
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r *LoginRequest) Normalize() {
	r.Username = CanonicalUsername(r.Username)
}

func (r *LoginRequest) Validate() error {
	var fields []dErrors.FieldError
	if r.Username == "" {
		fields = append(fields, dErrors.FieldError{Field: "username", Message: "required"})
	}
	if r.Password == "" {
		fields = append(fields, dErrors.FieldError{Field: "password", Message: "required"})
	}
	if len(fields) > 0 {
		return dErrors.Validation(fields...)
	}
	return nil
}

// CreateOperatorRequest is the admin payload for a new staff account.
type CreateOperatorRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
	PostID   string `json:"post_id,omitempty"`
}

func (r *CreateOperatorRequest) Normalize() {
	r.Username = CanonicalUsername(r.Username)
	r.Role = strings.ToLower(strings.TrimSpace(r.Role))
	r.PostID = strings.TrimSpace(r.PostID)
}

func (r *CreateOperatorRequest) Validate() error {
	var fields []dErrors.FieldError
	switch {
	case r.Username == "":
		fields = append(fields, dErrors.FieldError{Field: "username", Message: "required"})
	case len(r.Username) > maxUsernameLen:
		fields = append(fields, dErrors.FieldError{Field: "username", Message: "must be at most 64 characters"})
	case strings.ContainsAny(r.Username, " \t\n"):
		fields = append(fields, dErrors.FieldError{Field: "username", Message: "must not contain spaces"})
	}
	if len(r.Password) < minPasswordLen {
		fields = append(fields, dErrors.FieldError{Field: "password", Message: "must be at least 8 characters"})
	}
	role, err := id.ParseRole(r.Role)
	if err != nil {
		fields = append(fields, dErrors.FieldError{Field: "role", Message: "must be admin, manager or operator"})
	}
	switch {
	case r.PostID != "":
		if _, err := id.ParsePostID(r.PostID); err != nil {
			fields = append(fields, dErrors.FieldError{Field: "post_id", Message: "must be a UUID"})
		}
	case role.IsPostScoped():
		fields = append(fields, dErrors.FieldError{Field: "post_id", Message: "required for " + string(role)})
	}
	if len(fields) > 0 {
		return dErrors.Validation(fields...)
	}
	return nil
}

// ParsedRole and ParsedPost assume Validate passed. Admins never carry a post.
func (r *CreateOperatorRequest) ParsedRole() id.Role {
	role, _ := id.ParseRole(r.Role)
	return role
}

func (r *CreateOperatorRequest) ParsedPost() *id.PostID {
	if r.PostID == "" || r.ParsedRole() == id.RoleAdmin {
		return nil
	}
	postID, _ := id.ParsePostID(r.PostID)
	return &postID
}
