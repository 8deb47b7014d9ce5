package testutil

import (
	"context"
	"net/http"

	id "kitmatch/pkg/domain"
	"kitmatch/pkg/requestcontext"
)

// WithActor adds an authenticated operator to the request context.
// This simulates what the operator middleware would do.
func WithActor(req *http.Request, actor *id.Actor) *http.Request {
	return req.WithContext(requestcontext.WithActor(req.Context(), actor))
}

// Operator builds a post-scoped actor for the given role.
func Operator(role id.Role, post id.PostID) *id.Actor {
	return &id.Actor{OperatorID: id.NewOperatorID(), Username: string(role) + "-user", Role: role, PostID: &post}
}

// Admin builds an admin actor without an assigned post.
func Admin() *id.Actor {
	return &id.Actor{OperatorID: id.NewOperatorID(), Username: "admin", Role: id.RoleAdmin}
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
