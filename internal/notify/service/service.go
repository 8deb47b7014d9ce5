// Package service dispatches match notifications.
//
// The notified flag is claimed with a conditional update before any
// transport runs, so a match is announced at most once even when Notify
// races with itself. Delivery failures are reported but never clear the flag;
// Resend is the recovery path.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	matchmodels "kitmatch/internal/matching/models"
	"kitmatch/internal/notify/metrics"
	"kitmatch/internal/notify/models"
	"kitmatch/internal/notify/transport"
	postmodels "kitmatch/internal/posts/models"
	id "kitmatch/pkg/domain"
	dErrors "kitmatch/pkg/domain-errors"
	"kitmatch/pkg/platform/audit"
	"kitmatch/pkg/platform/sentinel"
	"kitmatch/pkg/requestcontext"
)

// MatchStore is the slice of the matching record store the dispatcher uses.
type MatchStore interface {
	GetMatch(ctx context.Context, matchID id.MatchID) (*matchmodels.Match, error)
	GetDonor(ctx context.Context, donorID id.DonorID) (*matchmodels.Donor, error)
	GetReceiver(ctx context.Context, receiverID id.ReceiverID) (*matchmodels.Receiver, error)
	MarkNotified(ctx context.Context, matchID id.MatchID, at time.Time) (bool, error)
	ListNotifiedSince(ctx context.Context, since time.Time) ([]*matchmodels.Match, error)
}

type PostLookup interface {
	Get(ctx context.Context, postID id.PostID) (*postmodels.Post, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

const defaultDeliveryTimeout = 3 * time.Second

type Service struct {
	matches    MatchStore
	posts      PostLookup
	transports []transport.Transport
	auditor    AuditPublisher
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time
	timeout    time.Duration
}

type Option func(*Service)

func WithTransports(t ...transport.Transport) Option {
	return func(s *Service) {
		s.transports = append(s.transports, t...)
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

// WithDeliveryTimeout caps how long one notification may wait on its
// transports. Notify runs inside the registration request.
func WithDeliveryTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(matches MatchStore, posts PostLookup, opts ...Option) *Service {
	s := &Service{
		matches: matches,
		posts:   posts,
		logger:  slog.Default(),
		now:     time.Now,
		timeout: defaultDeliveryTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Notify announces a freshly committed match. It returns (nil, nil) when the
// match was already notified, by this call's competitor or earlier. A
// delivery failure returns the message together with a NotificationFailed
// error; the match stays marked as notified.
func (s *Service) Notify(ctx context.Context, matchID id.MatchID) (*models.Message, error) {
	match, err := s.matches.GetMatch(ctx, matchID)
	if err != nil {
		return nil, translate(err, "match not found")
	}
	if match.Notified {
		s.metrics.IncrementNotifications(metrics.OutcomeSkipped)
		return nil, nil
	}
	msg, err := s.load(ctx, match)
	if err != nil {
		return nil, err
	}

	claimed, err := s.matches.MarkNotified(ctx, matchID, s.now())
	if err != nil {
		return nil, translate(err, "match not found")
	}
	if !claimed {
		s.metrics.IncrementNotifications(metrics.OutcomeSkipped)
		return nil, nil
	}

	if err := s.deliver(ctx, msg); err != nil {
		s.metrics.IncrementNotifications(metrics.OutcomeFailed)
		s.emit(ctx, audit.EventNotificationFailed, match, err.Error())
		s.logger.WarnContext(ctx, "notification delivery failed",
			"match_id", matchID.String(),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return msg, dErrors.Wrap(err, dErrors.CodeNotificationFailed, "notification not delivered")
	}
	s.metrics.IncrementNotifications(metrics.OutcomeSent)
	s.emit(ctx, audit.EventNotificationSent, match, "")
	return msg, nil
}

// Resend delivers the notification of an already notified match again
// without touching the bookkeeping. A match that was never notified goes
// through Notify instead.
func (s *Service) Resend(ctx context.Context, matchID id.MatchID) (*models.Message, error) {
	match, err := s.matches.GetMatch(ctx, matchID)
	if err != nil {
		return nil, translate(err, "match not found")
	}
	if !match.Notified {
		return s.Notify(ctx, matchID)
	}
	msg, err := s.load(ctx, match)
	if err != nil {
		return nil, err
	}
	if err := s.deliver(ctx, msg); err != nil {
		s.metrics.IncrementNotifications(metrics.OutcomeFailed)
		s.emit(ctx, audit.EventNotificationFailed, match, err.Error())
		return msg, dErrors.Wrap(err, dErrors.CodeNotificationFailed, "notification not delivered")
	}
	s.metrics.IncrementNotifications(metrics.OutcomeResent)
	s.emit(ctx, audit.EventNotificationResent, match, "")
	return msg, nil
}

// Pending lists the texts of every match notified since the given time,
// oldest first, for an external WhatsApp sender to pick up.
func (s *Service) Pending(ctx context.Context, since time.Time) ([]models.Outbound, error) {
	matches, err := s.matches.ListNotifiedSince(ctx, since)
	if err != nil {
		return nil, translate(err, "failed to list notified matches")
	}
	out := make([]models.Outbound, 0, 2*len(matches))
	for _, m := range matches {
		msg, err := s.load(ctx, m)
		if err != nil {
			return nil, err
		}
		out = append(out, msg.Outbounds()...)
	}
	return out, nil
}

func (s *Service) load(ctx context.Context, m *matchmodels.Match) (*models.Message, error) {
	donor, err := s.matches.GetDonor(ctx, m.DonorID)
	if err != nil {
		return nil, translate(err, "donor of match not found")
	}
	receiver, err := s.matches.GetReceiver(ctx, m.ReceiverID)
	if err != nil {
		return nil, translate(err, "receiver of match not found")
	}
	post, err := s.posts.Get(ctx, m.PostID)
	if err != nil {
		return nil, translate(err, "post of match not found")
	}
	return compose(m, donor, receiver, post), nil
}

// deliver fans out to every transport and joins their failures. Transports
// still running at the deadline see their context cancelled.
func (s *Service) deliver(ctx context.Context, msg *models.Message) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	errs := make([]error, len(s.transports))
	var g errgroup.Group
	for i, t := range s.transports {
		g.Go(func() error {
			if err := t.Send(ctx, msg); err != nil {
				s.metrics.IncrementTransportFailures(t.Name())
				errs[i] = fmt.Errorf("%s: %w", t.Name(), err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

func (s *Service) emit(ctx context.Context, action audit.AuditEvent, m *matchmodels.Match, reason string) {
	if s.auditor == nil {
		return
	}
	err := s.auditor.Emit(ctx, audit.Event{
		Action:    string(action),
		Subject:   m.ID.String(),
		PostID:    m.PostID.String(),
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", action, "error", err)
	}
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
	return dErrors.Wrap(err, dErrors.CodeInternal, "notification lookup failed")
}
