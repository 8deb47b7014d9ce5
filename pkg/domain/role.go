package domain

import (
	"strings"

	dErrors "kitmatch/pkg/domain-errors"
)

// Role is an operator's authority level.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleOperator Role = "operator"
)

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown role: "+s)
	}
	return r, nil
}

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleOperator:
		return true
	}
	return false
}

// IsPostScoped reports whether the role is restricted to its assigned post.
func (r Role) IsPostScoped() bool {
	return r == RoleManager || r == RoleOperator
}

func (r Role) String() string {
	return string(r)
}

// Actor is the authenticated operator performing a request.
type Actor struct {
	OperatorID OperatorID
	Username   string
	Role       Role
	// PostID is nil for admins and set for post-scoped roles.
	PostID *PostID
}

// CanAccess is the single authorization rule for match-level operations:
// admins reach every post, managers and operators only their assigned post,
// and anything else is denied.
func CanAccess(role Role, actorPost *PostID, matchPost PostID) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleManager, RoleOperator:
		return actorPost != nil && *actorPost == matchPost
	default:
		return false
	}
}

// CanAccess applies the access rule to this actor. A nil actor is denied.
func (a *Actor) CanAccess(matchPost PostID) bool {
	if a == nil {
		return false
	}
	return CanAccess(a.Role, a.PostID, matchPost)
}

func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}
