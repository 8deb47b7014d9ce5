package models

import (
	"strings"
	"time"

	id "kitmatch/pkg/domain"
)

// Operator is a staff account. Admins have no post; managers and operators
// are bound to exactly one.
type Operator struct {
	ID           id.OperatorID
	Username     string
	PasswordHash string
	Role         id.Role
	PostID       *id.PostID
	Active       bool
	CreatedAt    time.Time
}

func (o *Operator) Actor() *id.Actor {
	return &id.Actor{OperatorID: o.ID, Username: o.Username, Role: o.Role, PostID: o.PostID}
}

// CanonicalUsername is the lookup key; usernames are case-insensitive.
func CanonicalUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Session is the result of a successful login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Operator  *Operator
}
