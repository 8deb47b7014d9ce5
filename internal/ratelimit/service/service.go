// Package service decides whether a client may perform an action using
// fixed-window counters.
//
// A window starts at a client's first hit and lasts the configured length.
// Hits are allowed while the window count is at most the limit, so the
// (limit+1)-th attempt is rejected until the window expires.
//
// When the counter store fails, the configured failure policy decides:
// "open" allows the request, "closed" rejects it. Either way the result is
// marked Degraded. Store failures feed a circuit breaker; while it is open
// the store is skipped except for a periodic probe.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"kitmatch/internal/ratelimit/metrics"
	"kitmatch/internal/ratelimit/models"
	"kitmatch/internal/ratelimit/observability"
	dErrors "kitmatch/pkg/domain-errors"
	"kitmatch/pkg/platform/audit"
	"kitmatch/pkg/platform/circuit"
	"kitmatch/pkg/platform/middleware/metadata"
)

// Counter increments the hit count of a window, starting it on first use.
// It returns the new count and the time left in the window.
type Counter interface {
	Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

type Service struct {
	counter      Counter
	policy       models.FailurePolicy
	breaker      *circuit.Breaker
	metrics      *metrics.Metrics
	auditor      observability.AuditPublisher
	logger       *slog.Logger
	now          func() time.Time
	storeTimeout time.Duration
}

type Option func(*Service)

func WithFailurePolicy(p models.FailurePolicy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(s *Service) {
		s.breaker = b
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(p observability.AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = p
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithStoreTimeout bounds each counter store call.
func WithStoreTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.storeTimeout = d
		}
	}
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(counter Counter, opts ...Option) (*Service, error) {
	if counter == nil {
		return nil, fmt.Errorf("counter store is required")
	}
	s := &Service{
		counter:      counter,
		policy:       models.FailOpen,
		logger:       slog.Default(),
		now:          time.Now,
		storeTimeout: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.breaker == nil {
		s.breaker = circuit.New("ratelimit-store")
	}
	return s, nil
}

// Allow records one hit for identity on action and reports whether it fits
// in the current window.
func (s *Service) Allow(ctx context.Context, identity string, action models.Action, limit int, window time.Duration) (*models.Result, error) {
	if limit <= 0 || window <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "limit and window must be positive")
	}
	if identity == "" {
		identity = "unknown"
	}
	key := models.NewKey(action, identity)

	if !s.breaker.AllowProbe() {
		return s.applyPolicy(ctx, action, identity, limit, window, "breaker_open"), nil
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	count, ttl, err := s.counter.Increment(storeCtx, key, window)
	cancel()
	if err != nil {
		s.metrics.IncrementStoreFailures()
		_, change := s.breaker.RecordFailure()
		if change.Opened {
			s.metrics.SetBreakerOpen(true)
			s.logger.ErrorContext(ctx, "rate limit store circuit opened", "error", err)
		} else {
			s.logger.WarnContext(ctx, "rate limit store failed", "error", err, "action", string(action))
		}
		return s.applyPolicy(ctx, action, identity, limit, window, "store_error"), nil
	}
	if _, change := s.breaker.RecordSuccess(); change.Closed {
		s.metrics.SetBreakerOpen(false)
		s.logger.InfoContext(ctx, "rate limit store circuit closed")
	}

	now := s.now()
	result := &models.Result{
		Allowed:   count <= int64(limit),
		Limit:     limit,
		Remaining: max(limit-int(count), 0),
		ResetAt:   now.Add(ttl),
	}
	if !result.Allowed {
		result.RetryAfter = retryAfterSeconds(ttl)
		s.metrics.IncrementRejections(string(action))
		s.auditRejection(ctx, action, identity, "limit_exceeded")
	}
	return result, nil
}

// Check is Allow for callers that only need a yes/no: rejection is returned
// as a rate_limited error.
func (s *Service) Check(ctx context.Context, identity string, action models.Action, limit int, window time.Duration) error {
	result, err := s.Allow(ctx, identity, action, limit, window)
	if err != nil {
		return err
	}
	if !result.Allowed {
		return dErrors.New(dErrors.CodeRateLimited,
			fmt.Sprintf("too many attempts, retry in %d seconds", result.RetryAfter))
	}
	return nil
}

func (s *Service) applyPolicy(ctx context.Context, action models.Action, identity string, limit int, window time.Duration, reason string) *models.Result {
	s.metrics.IncrementPolicyDecisions(string(s.policy))
	result := &models.Result{
		Limit:    limit,
		ResetAt:  s.now().Add(window),
		Degraded: true,
	}
	if s.policy == models.FailClosed {
		result.RetryAfter = retryAfterSeconds(window)
		s.metrics.IncrementRejections(string(action))
		s.auditRejection(ctx, action, identity, "fail_closed_"+reason)
		return result
	}
	result.Allowed = true
	result.Remaining = limit
	return result
}

func (s *Service) auditRejection(ctx context.Context, action models.Action, identity, reason string) {
	subject := metadata.AnonymizeIP(identity)
	if subject == "" {
		subject = identity
	}
	observability.LogAudit(ctx, s.logger, s.auditor, audit.EventRateLimitExceeded,
		"identity", subject,
		"action", string(action),
		"reason", reason,
	)
}

func retryAfterSeconds(d time.Duration) int {
	return max(int(math.Ceil(d.Seconds())), 1)
}
