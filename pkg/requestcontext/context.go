// Package requestcontext carries request-scoped values from the HTTP
// middleware down to services without importing net/http.
//
// Middleware sets the request id, client metadata, request time and the
// authenticated operator; services only read them. Tests inject values with
// the With* helpers instead of running the middleware chain.
package requestcontext

import (
	"context"
	"time"

	id "kitmatch/pkg/domain"
)

type key int

const (
	actorKey key = iota
	clientIPKey
	userAgentKey
	requestIDKey
	requestTimeKey
)

func value[T any](ctx context.Context, k key) T {
	v, _ := ctx.Value(k).(T)
	return v
}

// Actor returns the authenticated operator, or nil for public requests.
func Actor(ctx context.Context) *id.Actor {
	return value[*id.Actor](ctx, actorKey)
}

func WithActor(ctx context.Context, actor *id.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ClientIP is the address the rate limiter keys on.
func ClientIP(ctx context.Context) string {
	return value[string](ctx, clientIPKey)
}

func UserAgent(ctx context.Context) string {
	return value[string](ctx, userAgentKey)
}

func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey, clientIP)
	return context.WithValue(ctx, userAgentKey, userAgent)
}

func RequestID(ctx context.Context) string {
	return value[string](ctx, requestIDKey)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// Now returns the time the request was received. Outside a request it falls
// back to the wall clock.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime pins the request time, so every timestamp written while handling
// one request agrees.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey, t)
}
