package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	id "kitmatch/pkg/domain"
	"kitmatch/pkg/requestcontext"
)

// TokenValidator validates an operator bearer token.
type TokenValidator interface {
	ValidateToken(tokenString string) (*OperatorClaims, error)
}

// OperatorClaims represents the claims we expect from the token validator.
type OperatorClaims struct {
	OperatorID string
	Username   string
	Role       string
	PostID     string
}

// Actor converts validated claims into the domain actor. Claims with an
// unparseable operator, role or post are rejected.
func (c *OperatorClaims) Actor() (*id.Actor, error) {
	operatorID, err := id.ParseOperatorID(c.OperatorID)
	if err != nil {
		return nil, err
	}
	role, err := id.ParseRole(c.Role)
	if err != nil {
		return nil, err
	}
	actor := &id.Actor{OperatorID: operatorID, Username: c.Username, Role: role}
	if c.PostID != "" {
		postID, err := id.ParsePostID(c.PostID)
		if err != nil {
			return nil, err
		}
		actor.PostID = &postID
	}
	return actor, nil
}

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// RequireOperator resolves the bearer token into an actor. Pickup and match
// endpoints treat an unauthenticated caller as forbidden, so every rejection
// here is a 403.
func RequireOperator(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "forbidden - missing operator token",
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusForbidden, "forbidden", "operator authentication required")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "forbidden - invalid operator token",
					"error", err,
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusForbidden, "forbidden", "invalid or expired token")
				return
			}

			actor, err := claims.Actor()
			if err != nil {
				logger.WarnContext(ctx, "forbidden - malformed operator claims",
					"error", err,
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusForbidden, "forbidden", "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithActor(ctx, actor)))
		})
	}
}

// RequireAdmin must run after RequireOperator.
func RequireAdmin(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			actor := requestcontext.Actor(ctx)
			if !actor.IsAdmin() {
				logger.WarnContext(ctx, "forbidden - admin role required",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusForbidden, "forbidden", "admin role required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
