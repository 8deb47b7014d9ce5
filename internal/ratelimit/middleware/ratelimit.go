package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"kitmatch/internal/ratelimit/models"
	"kitmatch/pkg/platform/httputil"
	metadata "kitmatch/pkg/platform/middleware/metadata"
)

type RateLimiter interface {
	Allow(ctx context.Context, identity string, action models.Action, limit int, window time.Duration) (*models.Result, error)
}

type Middleware struct {
	limiter  RateLimiter
	logger   *slog.Logger
	disabled bool
}

type Option func(*Middleware)

// WithDisabled turns Limit into a pass-through (RATE_LIMIT_DISABLED).
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func New(limiter RateLimiter, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		limiter: limiter,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// Limit counts each request against the client IP for action. Rejected
// requests never reach next.
func (m *Middleware) Limit(action models.Action, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m.disabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.admit(w, r, action, limit, window) {
				next.ServeHTTP(w, r)
			}
		})
	}
}

// admit writes the X-RateLimit-* headers and, when the request is over the
// limit or the limiter failed closed, the error response.
func (m *Middleware) admit(w http.ResponseWriter, r *http.Request, action models.Action, limit int, window time.Duration) bool {
	ctx := r.Context()
	ip := metadata.GetClientIP(ctx)
	log := m.logger.With("action", string(action), "ip_prefix", metadata.AnonymizeIP(ip))

	result, err := m.limiter.Allow(ctx, ip, action, limit, window)
	if err != nil {
		log.ErrorContext(ctx, "rate limit check failed", "error", err)
		httputil.WriteError(w, err)
		return false
	}

	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
	if result.Degraded {
		h.Set("X-RateLimit-Status", "degraded")
	}
	if result.Allowed {
		return true
	}

	log.WarnContext(ctx, "rate limit exceeded", "degraded", result.Degraded)
	h.Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.RateLimitExceededResponse{
		Error:      "rate_limit_exceeded",
		Message:    "too many attempts from this address, try again later",
		RetryAfter: result.RetryAfter,
	})
	return false
}
