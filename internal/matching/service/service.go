// Package service pairs donors and receivers.
//
// Matching is event driven: each new donor or receiver triggers one search
// for the oldest compatible counterpart (same post, same kit, active, no open
// match). The whole pairing runs in one record store transaction; the
// notification is dispatched explicitly after commit and never rolls the
// match back.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"kitmatch/internal/matching/metrics"
	"kitmatch/internal/matching/models"
	"kitmatch/internal/matching/store"
	notifymodels "kitmatch/internal/notify/models"
	id "kitmatch/pkg/domain"
	dErrors "kitmatch/pkg/domain-errors"
	"kitmatch/pkg/platform/audit"
	"kitmatch/pkg/platform/sentinel"
	"kitmatch/pkg/requestcontext"
)

// ManualMatchCooldown is how long a receiver must wait after their last match
// before an administrator may pair them manually again.
const ManualMatchCooldown = 7 * 24 * time.Hour

const (
	triggerDonor    = "donor"
	triggerReceiver = "receiver"
	triggerManual   = "manual"
)

// CodeAssigner hands fresh pickup codes to insert until one sticks.
type CodeAssigner interface {
	Assign(ctx context.Context, insert func(code string) error) (string, error)
}

// Notifier dispatches the notification for a committed match.
type Notifier interface {
	Notify(ctx context.Context, matchID id.MatchID) (*notifymodels.Message, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store    store.Store
	codes    CodeAssigner
	notifier Notifier
	auditor  AuditPublisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

type Option func(*Service)

func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

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

func New(st store.Store, codes CodeAssigner, opts ...Option) *Service {
	s := &Service{
		store:  st,
		codes:  codes,
		logger: slog.Default(),
		tracer: otel.Tracer("kitmatch/matching"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnNewDonor looks for a receiver for a freshly stored donor. It returns
// (nil, nil) when nobody is waiting for that kit at that post.
func (s *Service) OnNewDonor(ctx context.Context, donor *models.Donor) (*models.Match, error) {
	ctx, span := s.tracer.Start(ctx, "matching.OnNewDonor", trace.WithAttributes(
		attribute.String("donor_id", donor.ID.String()),
		attribute.String("post_id", donor.PostID.String()),
	))
	defer span.End()

	var match *models.Match
	err := s.timed(func() error {
		return s.store.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
			d, err := tx.LockDonor(ctx, donor.ID)
			if err != nil {
				return err
			}
			if eligible, err := donorEligible(ctx, tx, d); err != nil || !eligible {
				return err
			}
			r, err := tx.ClaimReceiver(ctx, d.PostID, d.Kit)
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			match, err = s.pair(ctx, tx, d, r)
			return err
		})
	})
	return s.finish(ctx, span, triggerDonor, match, err, nil)
}

// OnNewReceiver looks for a donor for a freshly stored receiver. It returns
// (nil, nil) when no donor is available.
func (s *Service) OnNewReceiver(ctx context.Context, receiver *models.Receiver) (*models.Match, error) {
	ctx, span := s.tracer.Start(ctx, "matching.OnNewReceiver", trace.WithAttributes(
		attribute.String("receiver_id", receiver.ID.String()),
		attribute.String("post_id", receiver.PostID.String()),
	))
	defer span.End()

	var match *models.Match
	err := s.timed(func() error {
		return s.store.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
			r, err := tx.LockReceiver(ctx, receiver.ID)
			if err != nil {
				return err
			}
			if eligible, err := receiverEligible(ctx, tx, r); err != nil || !eligible {
				return err
			}
			d, err := tx.ClaimDonor(ctx, r.PostID, r.Kit)
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			match, err = s.pair(ctx, tx, d, r)
			return err
		})
	})
	return s.finish(ctx, span, triggerReceiver, match, err, nil)
}

// CreateManual pairs a chosen donor and receiver. Administrators only.
func (s *Service) CreateManual(ctx context.Context, actor *id.Actor, donorID id.DonorID, receiverID id.ReceiverID) (*models.Match, error) {
	if !actor.IsAdmin() {
		return nil, dErrors.New(dErrors.CodeForbidden, "only administrators can create matches manually")
	}
	ctx, span := s.tracer.Start(ctx, "matching.CreateManual", trace.WithAttributes(
		attribute.String("donor_id", donorID.String()),
		attribute.String("receiver_id", receiverID.String()),
	))
	defer span.End()

	var match *models.Match
	err := s.timed(func() error {
		return s.store.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
			d, err := tx.LockDonor(ctx, donorID)
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "donor not found")
			}
			if err != nil {
				return err
			}
			r, err := tx.LockReceiver(ctx, receiverID)
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "receiver not found")
			}
			if err != nil {
				return err
			}
			if err := s.checkManualPair(ctx, tx, d, r); err != nil {
				return err
			}
			match, err = s.pair(ctx, tx, d, r)
			return err
		})
	})
	return s.finish(ctx, span, triggerManual, match, err, actor)
}

func (s *Service) checkManualPair(ctx context.Context, tx store.Store, d *models.Donor, r *models.Receiver) error {
	if d.PostID != r.PostID {
		return dErrors.New(dErrors.CodeConflict, "donor and receiver belong to different posts")
	}
	if d.Kit != r.Kit {
		return dErrors.New(dErrors.CodeConflict, "donor kit does not match the receiver's need")
	}
	eligible, err := donorEligible(ctx, tx, d)
	if err != nil {
		return err
	}
	if !eligible {
		return dErrors.New(dErrors.CodeConflict, "donor is no longer available")
	}
	eligible, err = receiverEligible(ctx, tx, r)
	if err != nil {
		return err
	}
	if !eligible {
		return dErrors.New(dErrors.CodeConflict, "receiver already has an open match")
	}
	last, found, err := tx.LatestReceiverMatchAt(ctx, r.ID)
	if err != nil {
		return err
	}
	if found && s.at(ctx).Sub(last) < ManualMatchCooldown {
		return dErrors.New(dErrors.CodeConflict, "receiver was matched in the last 7 days")
	}
	return nil
}

// ListMatches returns matches visible to actor. Post-scoped roles only see
// their own post.
func (s *Service) ListMatches(ctx context.Context, actor *id.Actor, filter models.MatchFilter) ([]*models.Match, error) {
	if actor == nil || !actor.Role.IsValid() {
		return nil, dErrors.New(dErrors.CodeForbidden, "operator authentication required")
	}
	if !actor.IsAdmin() {
		if actor.PostID == nil {
			return nil, dErrors.New(dErrors.CodeForbidden, "operator has no assigned post")
		}
		if filter.PostID != nil && *filter.PostID != *actor.PostID {
			return nil, dErrors.New(dErrors.CodeForbidden, "matches of another post are not visible")
		}
		filter.PostID = actor.PostID
	}
	matches, err := s.store.ListMatches(ctx, filter)
	if err != nil {
		return nil, translate(err, "failed to list matches")
	}
	return matches, nil
}

// pair inserts the match with a fresh pickup code and consumes the donor.
func (s *Service) pair(ctx context.Context, tx store.Store, d *models.Donor, r *models.Receiver) (*models.Match, error) {
	if !models.Compatible(d, r) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "claimed counterpart is not compatible")
	}
	var match *models.Match
	now := s.at(ctx)
	_, err := s.codes.Assign(ctx, func(code string) error {
		match = models.NewMatch(d, r, code, now)
		return tx.InsertMatch(ctx, match)
	})
	if err != nil {
		return nil, err
	}
	if err := tx.DeactivateDonor(ctx, d.ID); err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "donor was consumed concurrently")
		}
		return nil, err
	}
	return match, nil
}

// finish runs everything that happens after the transaction: metrics,
// audit and the notification.
func (s *Service) finish(ctx context.Context, span trace.Span, trigger string, match *models.Match, err error, actor *id.Actor) (*models.Match, error) {
	if err != nil {
		err = translate(err, "failed to create match")
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		if !dErrors.CodeOf(err).IsClientError() {
			s.logger.ErrorContext(ctx, "match transaction failed",
				"trigger", trigger,
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		return nil, err
	}
	if match == nil {
		s.metrics.IncrementNoCounterpart(trigger)
		s.logger.InfoContext(ctx, "no compatible counterpart",
			"trigger", trigger,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, nil
	}

	span.SetAttributes(attribute.String("match_id", match.ID.String()))
	s.metrics.IncrementMatchesCreated(trigger)
	event := audit.Event{
		Action:  string(audit.EventMatchCreated),
		Subject: match.ID.String(),
		PostID:  match.PostID.String(),
		Reason:  trigger,
	}
	if actor != nil {
		event.Action = string(audit.EventMatchCreatedManual)
		event.ActorID = actor.OperatorID.String()
	}
	s.emit(ctx, event)
	s.logger.InfoContext(ctx, "match created",
		"match_id", match.ID.String(),
		"post_id", match.PostID.String(),
		"kit", string(match.Kit),
		"trigger", trigger,
		"request_id", requestcontext.RequestID(ctx),
	)

	if s.notifier == nil {
		return match, nil
	}
	if _, nerr := s.notifier.Notify(ctx, match.ID); nerr != nil {
		s.metrics.IncrementNotificationFailures()
		s.logger.WarnContext(ctx, "match notification failed",
			"match_id", match.ID.String(),
			"error", nerr,
			"request_id", requestcontext.RequestID(ctx),
		)
		return match, dErrors.Wrap(nerr, dErrors.CodeNotificationFailed, "match created but notification failed")
	}
	if latest, gerr := s.store.GetMatch(ctx, match.ID); gerr == nil {
		match = latest
	}
	return match, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", event.Action, "error", err)
	}
}

func (s *Service) timed(fn func() error) error {
	start := time.Now()
	err := fn()
	s.metrics.ObserveMatchDuration(time.Since(start).Seconds())
	return err
}

// at is the injected clock, or the time the request started.
func (s *Service) at(ctx context.Context) time.Time {
	if s.now != nil {
		return s.now()
	}
	return requestcontext.Now(ctx)
}

func donorEligible(ctx context.Context, tx store.Store, d *models.Donor) (bool, error) {
	if !d.Active {
		return false, nil
	}
	open, err := tx.HasOpenMatchForDonor(ctx, d.ID)
	if err != nil {
		return false, err
	}
	return !open, nil
}

func receiverEligible(ctx context.Context, tx store.Store, r *models.Receiver) (bool, error) {
	if !r.Active {
		return false, nil
	}
	open, err := tx.HasOpenMatchForReceiver(ctx, r.ID)
	if err != nil {
		return false, err
	}
	return !open, nil
}

// translate turns store sentinels into domain errors; domain errors pass
// through unchanged.
func translate(err error, message string) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "record not found")
	case errors.Is(err, sentinel.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "record store unavailable")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "record changed concurrently")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, message)
}
