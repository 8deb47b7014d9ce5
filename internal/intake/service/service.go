// Package service accepts public donor and receiver registrations and hands
// each stored record to the matching engine.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"kitmatch/internal/intake/metrics"
	"kitmatch/internal/intake/models"
	matchmodels "kitmatch/internal/matching/models"
	matchstore "kitmatch/internal/matching/store"
	postmodels "kitmatch/internal/posts/models"
	id "kitmatch/pkg/domain"
	dErrors "kitmatch/pkg/domain-errors"
	"kitmatch/pkg/platform/audit"
	"kitmatch/pkg/platform/sentinel"
	"kitmatch/pkg/requestcontext"
)

const (
	kindDonor    = "donor"
	kindReceiver = "receiver"

	outcomeAccepted  = "accepted"
	outcomeInvalid   = "invalid"
	outcomeDuplicate = "duplicate"
	outcomeFailed    = "failed"

	donorTaken    = "this phone already has an active donation"
	receiverTaken = "this phone already requested this kit at this post"
)

// PostLookup resolves the reference post named on the form.
type PostLookup interface {
	Get(ctx context.Context, postID id.PostID) (*postmodels.Post, error)
}

// Matcher runs one matching attempt for a freshly stored record.
type Matcher interface {
	OnNewDonor(ctx context.Context, donor *matchmodels.Donor) (*matchmodels.Match, error)
	OnNewReceiver(ctx context.Context, receiver *matchmodels.Receiver) (*matchmodels.Match, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store   matchstore.Store
	posts   PostLookup
	matcher Matcher
	auditor AuditPublisher
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
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

func New(st matchstore.Store, posts PostLookup, matcher Matcher, opts ...Option) *Service {
	s := &Service{
		store:   st,
		posts:   posts,
		matcher: matcher,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterDonor stores a donation offer and tries to pair it right away.
// A donor whose phone already has an active offer is a Conflict.
func (s *Service) RegisterDonor(ctx context.Context, req *models.RegisterDonorRequest) (*models.Registration, error) {
	if err := req.Validate(); err != nil {
		s.metrics.IncrementRegistration(kindDonor, outcomeInvalid)
		return nil, err
	}
	donor := req.Donor(s.at(ctx))
	if err := s.checkPost(ctx, donor.PostID); err != nil {
		s.metrics.IncrementRegistration(kindDonor, outcomeOf(err))
		return nil, err
	}

	err := s.store.RunInTx(ctx, func(ctx context.Context, tx matchstore.Store) error {
		dup, err := tx.ActiveDonorWithPhone(ctx, donor.Phone)
		if err != nil {
			return err
		}
		if dup {
			return dErrors.New(dErrors.CodeConflict, donorTaken)
		}
		// a concurrent registration can commit between the check and the
		// insert; the store's unique index catches it
		err = tx.InsertDonor(ctx, donor)
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.Wrap(err, dErrors.CodeConflict, donorTaken)
		}
		return err
	})
	if err != nil {
		err = translate(err, "failed to register donor")
		s.metrics.IncrementRegistration(kindDonor, outcomeOf(err))
		return nil, err
	}

	s.metrics.IncrementRegistration(kindDonor, outcomeAccepted)
	s.emit(ctx, audit.Event{
		Action:  string(audit.EventDonorRegistered),
		Subject: donor.ID.String(),
		PostID:  donor.PostID.String(),
		Reason:  string(donor.Kit),
	})
	s.logger.InfoContext(ctx, "donor registered",
		"donor_id", donor.ID.String(),
		"post_id", donor.PostID.String(),
		"kit", string(donor.Kit),
		"request_id", requestcontext.RequestID(ctx),
	)

	reg := &models.Registration{ID: donor.ID.String()}
	match, err := s.matcher.OnNewDonor(ctx, donor)
	s.attach(ctx, reg, match, err)
	return reg, nil
}

// RegisterReceiver stores a kit request and tries to pair it right away. The
// same phone may ask for different kits or at different posts, but not twice
// for the same kit at the same post.
func (s *Service) RegisterReceiver(ctx context.Context, req *models.RegisterReceiverRequest) (*models.Registration, error) {
	if err := req.Validate(); err != nil {
		s.metrics.IncrementRegistration(kindReceiver, outcomeInvalid)
		return nil, err
	}
	receiver := req.Receiver(s.at(ctx))
	if err := s.checkPost(ctx, receiver.PostID); err != nil {
		s.metrics.IncrementRegistration(kindReceiver, outcomeOf(err))
		return nil, err
	}

	err := s.store.RunInTx(ctx, func(ctx context.Context, tx matchstore.Store) error {
		dup, err := tx.ActiveReceiverWith(ctx, receiver.Phone, receiver.Kit, receiver.PostID)
		if err != nil {
			return err
		}
		if dup {
			return dErrors.New(dErrors.CodeConflict, receiverTaken)
		}
		err = tx.InsertReceiver(ctx, receiver)
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.Wrap(err, dErrors.CodeConflict, receiverTaken)
		}
		return err
	})
	if err != nil {
		err = translate(err, "failed to register receiver")
		s.metrics.IncrementRegistration(kindReceiver, outcomeOf(err))
		return nil, err
	}

	s.metrics.IncrementRegistration(kindReceiver, outcomeAccepted)
	s.emit(ctx, audit.Event{
		Action:  string(audit.EventReceiverRegistered),
		Subject: receiver.ID.String(),
		PostID:  receiver.PostID.String(),
		Reason:  string(receiver.Kit),
	})
	s.logger.InfoContext(ctx, "receiver registered",
		"receiver_id", receiver.ID.String(),
		"post_id", receiver.PostID.String(),
		"kit", string(receiver.Kit),
		"clinical", receiver.Clinical,
		"request_id", requestcontext.RequestID(ctx),
	)

	reg := &models.Registration{ID: receiver.ID.String()}
	match, err := s.matcher.OnNewReceiver(ctx, receiver)
	s.attach(ctx, reg, match, err)
	return reg, nil
}

// attach records the matching outcome on the registration. The record is
// already stored, so matching problems become warnings: failing the request
// would only make the person submit again and hit the duplicate check.
func (s *Service) attach(ctx context.Context, reg *models.Registration, match *matchmodels.Match, err error) {
	reg.Match = match
	if err == nil {
		return
	}
	reg.Warning = string(dErrors.CodeOf(err))
	if match == nil {
		s.logger.ErrorContext(ctx, "matching after registration failed",
			"registration_id", reg.ID,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

func (s *Service) checkPost(ctx context.Context, postID id.PostID) error {
	post, err := s.posts.Get(ctx, postID)
	if dErrors.HasCode(err, dErrors.CodeNotFound) {
		return dErrors.Validation(dErrors.FieldError{Field: "post_id", Message: "unknown post"})
	}
	if err != nil {
		return err
	}
	if !post.AcceptsDonations() {
		return dErrors.Validation(dErrors.FieldError{Field: "post_id", Message: "post does not accept donations"})
	}
	return nil
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

func outcomeOf(err error) string {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeValidation:
		return outcomeInvalid
	case dErrors.CodeConflict:
		return outcomeDuplicate
	}
	return outcomeFailed
}

func translate(err error, message string) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "record already exists")
	case errors.Is(err, sentinel.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "record store unavailable")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, message)
}

func (s *Service) at(ctx context.Context) time.Time {
	if s.now != nil {
		return s.now()
	}
	return requestcontext.Now(ctx)
}
