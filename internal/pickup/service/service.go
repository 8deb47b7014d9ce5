// Package service implements pickup verification.
//
// A match moves from unverified to completed in two operator steps: Check
// looks the code up without side effects, Confirm flips is_completed with a
// conditional write so that exactly one of any number of concurrent confirms
// wins. The checked state is never persisted.
package service

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	matchmodels "kitmatch/internal/matching/models"
	"kitmatch/internal/pickup/metrics"
	"kitmatch/internal/pickup/models"
	"kitmatch/internal/pickupcode"
	id "kitmatch/pkg/domain"
	dErrors "kitmatch/pkg/domain-errors"
	"kitmatch/pkg/platform/audit"
	"kitmatch/pkg/platform/sentinel"
	"kitmatch/pkg/requestcontext"
)

const (
	opCheck   = "check"
	opConfirm = "confirm"
)

// Store is the slice of the matching record store pickup needs.
type Store interface {
	GetMatch(ctx context.Context, matchID id.MatchID) (*matchmodels.Match, error)
	GetMatchByCode(ctx context.Context, code string) (*matchmodels.Match, error)
	GetReceiver(ctx context.Context, receiverID id.ReceiverID) (*matchmodels.Receiver, error)
	CompleteMatch(ctx context.Context, matchID id.MatchID, code string, by id.OperatorID, at time.Time) (bool, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store         Store
	publicBaseURL string
	auditor       AuditPublisher
	metrics       *metrics.Metrics
	logger        *slog.Logger
	tracer        trace.Tracer
	now           func() time.Time
}

type Option func(*Service)

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = p
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New builds the service. publicBaseURL prefixes redemption targets and has
// no trailing slash.
func New(st Store, publicBaseURL string, opts ...Option) *Service {
	s := &Service{
		store:         st,
		publicBaseURL: publicBaseURL,
		logger:        slog.Default(),
		tracer:        otel.Tracer("kitmatch/pickup"),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check returns the match behind code without changing it.
func (s *Service) Check(ctx context.Context, code string, actor *id.Actor) (*models.MatchView, error) {
	if err := s.authenticate(ctx, opCheck, code, actor); err != nil {
		return nil, err
	}
	if !pickupcode.Valid(code) {
		s.metrics.IncrementOutcome(opCheck, "not_found")
		return nil, dErrors.New(dErrors.CodeNotFound, "pickup code not found")
	}
	match, err := s.store.GetMatchByCode(ctx, code)
	if err != nil {
		s.metrics.IncrementOutcome(opCheck, "not_found")
		return nil, translate(err, "pickup code not found")
	}
	if err := s.authorize(ctx, opCheck, match, actor); err != nil {
		return nil, err
	}

	view, err := s.view(ctx, match)
	if err != nil {
		return nil, err
	}
	s.metrics.IncrementOutcome(opCheck, "ok")
	s.emit(ctx, audit.EventPickupChecked, match, actor, "")
	return view, nil
}

// Confirm completes the match identified by (matchID, code). A match that is
// already completed yields OutcomeAlreadyCompleted with its current view.
func (s *Service) Confirm(ctx context.Context, matchID id.MatchID, code string, actor *id.Actor) (*models.ConfirmResult, error) {
	ctx, span := s.tracer.Start(ctx, "pickup.Confirm", trace.WithAttributes(
		attribute.String("match_id", matchID.String()),
	))
	defer span.End()
	start := s.now()
	defer func() {
		s.metrics.ObserveConfirmDuration(s.now().Sub(start).Seconds())
	}()

	result, err := s.confirm(ctx, matchID, code, actor)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		return nil, err
	}
	span.SetAttributes(attribute.String("outcome", string(result.Outcome)))
	return result, nil
}

func (s *Service) confirm(ctx context.Context, matchID id.MatchID, code string, actor *id.Actor) (*models.ConfirmResult, error) {
	if err := s.authenticate(ctx, opConfirm, matchID.String(), actor); err != nil {
		return nil, err
	}
	match, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		s.metrics.IncrementOutcome(opConfirm, "not_found")
		return nil, translate(err, "match not found")
	}
	// Post scope is checked before the code so a foreign post learns
	// nothing about code validity.
	if err := s.authorize(ctx, opConfirm, match, actor); err != nil {
		return nil, err
	}
	if match.PickupCode != code {
		s.metrics.IncrementOutcome(opConfirm, "not_found")
		return nil, dErrors.New(dErrors.CodeNotFound, "pickup code does not belong to this match")
	}

	if !match.IsCompleted {
		won, err := s.store.CompleteMatch(ctx, matchID, code, actor.OperatorID, s.now())
		if err != nil {
			return nil, translate(err, "match not found")
		}
		if won {
			if match, err = s.store.GetMatch(ctx, matchID); err != nil {
				return nil, translate(err, "match not found")
			}
			view, err := s.view(ctx, match)
			if err != nil {
				return nil, err
			}
			s.metrics.IncrementOutcome(opConfirm, string(models.OutcomeCompleted))
			s.emit(ctx, audit.EventPickupConfirmed, match, actor, "")
			s.logger.InfoContext(ctx, "pickup confirmed",
				"match_id", matchID.String(),
				"post_id", match.PostID.String(),
				"operator_id", actor.OperatorID.String(),
				"request_id", requestcontext.RequestID(ctx),
			)
			return &models.ConfirmResult{Outcome: models.OutcomeCompleted, View: view}, nil
		}
		// Lost the race to a concurrent confirm.
		if match, err = s.store.GetMatch(ctx, matchID); err != nil {
			return nil, translate(err, "match not found")
		}
	}

	view, err := s.view(ctx, match)
	if err != nil {
		return nil, err
	}
	s.metrics.IncrementOutcome(opConfirm, string(models.OutcomeAlreadyCompleted))
	s.emit(ctx, audit.EventPickupAlreadyCompleted, match, actor, "")
	return &models.ConfirmResult{Outcome: models.OutcomeAlreadyCompleted, View: view}, nil
}

// RedemptionTarget returns the absolute URL a QR code for this pickup should
// point to.
func (s *Service) RedemptionTarget(ctx context.Context, code string) (string, error) {
	if !pickupcode.Valid(code) {
		return "", dErrors.New(dErrors.CodeNotFound, "pickup code not found")
	}
	if _, err := s.store.GetMatchByCode(ctx, code); err != nil {
		return "", translate(err, "pickup code not found")
	}
	return s.publicBaseURL + "/pickup?" + url.Values{"code": {code}}.Encode(), nil
}

// authenticate rejects missing actors and unknown roles before any lookup.
func (s *Service) authenticate(ctx context.Context, op, subject string, actor *id.Actor) error {
	if actor != nil && actor.Role.IsValid() {
		return nil
	}
	reason := "unauthenticated"
	if actor != nil {
		reason = "unknown_role"
	}
	s.metrics.IncrementOutcome(op, "forbidden")
	s.audit(ctx, audit.Event{
		Action:  string(audit.EventPickupForbidden),
		Subject: subject,
		ActorID: actorID(actor),
		Reason:  op + ":" + reason,
	})
	return dErrors.New(dErrors.CodeForbidden, "operator authentication required")
}

func (s *Service) authorize(ctx context.Context, op string, match *matchmodels.Match, actor *id.Actor) error {
	if actor.CanAccess(match.PostID) {
		return nil
	}
	s.metrics.IncrementOutcome(op, "forbidden")
	s.emit(ctx, audit.EventPickupForbidden, match, actor, op+":wrong_post")
	s.logger.WarnContext(ctx, "pickup on another post refused",
		"match_id", match.ID.String(),
		"operator_id", actor.OperatorID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return dErrors.New(dErrors.CodeForbidden, "match belongs to another post")
}

func (s *Service) view(ctx context.Context, m *matchmodels.Match) (*models.MatchView, error) {
	r, err := s.store.GetReceiver(ctx, m.ReceiverID)
	if err != nil {
		return nil, translate(err, "receiver of match not found")
	}
	return models.NewMatchView(m, r.Name), nil
}

func (s *Service) emit(ctx context.Context, action audit.AuditEvent, m *matchmodels.Match, actor *id.Actor, reason string) {
	s.audit(ctx, audit.Event{
		Action:  string(action),
		Subject: m.ID.String(),
		PostID:  m.PostID.String(),
		ActorID: actorID(actor),
		Reason:  reason,
	})
}

func (s *Service) audit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", event.Action, "error", err)
	}
}

func actorID(actor *id.Actor) string {
	if actor == nil {
		return ""
	}
	return actor.OperatorID.String()
}

func translate(err error, notFound string) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, notFound)
	case errors.Is(err, sentinel.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "record store unavailable")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "pickup lookup failed")
}
