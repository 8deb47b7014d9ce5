// Package service exposes the reference post catalogue.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"kitmatch/internal/posts/models"
	"kitmatch/internal/posts/store"
	id "kitmatch/pkg/domain"
	dErrors "kitmatch/pkg/domain-errors"
	"kitmatch/pkg/platform/audit"
	"kitmatch/pkg/platform/sentinel"
	"kitmatch/pkg/requestcontext"
)

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store   store.Store
	auditor AuditPublisher
	logger  *slog.Logger
	now     func() time.Time
}

type Option func(*Service)

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = p
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

func New(st store.Store, opts ...Option) *Service {
	s := &Service{store: st, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListPublic returns the posts shown on the registration forms.
func (s *Service) ListPublic(ctx context.Context) ([]*models.Post, error) {
	posts, err := s.store.ListListed(ctx)
	if err != nil {
		return nil, translate(err, "failed to list posts")
	}
	return posts, nil
}

func (s *Service) Get(ctx context.Context, postID id.PostID) (*models.Post, error) {
	post, err := s.store.Get(ctx, postID)
	if err != nil {
		return nil, translate(err, "failed to load post")
	}
	return post, nil
}

// Create registers a new reference post. Administrators only.
func (s *Service) Create(ctx context.Context, actor *id.Actor, req *models.CreatePostRequest) (*models.Post, error) {
	if !actor.IsAdmin() {
		return nil, dErrors.New(dErrors.CodeForbidden, "only administrators can create posts")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	postType, _ := models.ParsePostType(req.Type)
	post := &models.Post{
		ID:                   id.NewPostID(),
		Name:                 req.Name,
		Type:                 postType,
		Address:              req.Address,
		City:                 req.City,
		NeighborhoodCoverage: req.NeighborhoodCoverage,
		Phone:                req.Phone,
		ContactName:          req.ContactName,
		OpeningHours:         req.OpeningHours,
		CanReceiveDonations:  req.CanReceiveDonations,
		Public:               req.IsPublic(),
		CreatedAt:            s.now(),
	}
	if err := s.store.Insert(ctx, post); err != nil {
		return nil, translate(err, "failed to create post")
	}

	s.logger.InfoContext(ctx, "post created",
		"post_id", post.ID.String(),
		"city", post.City,
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.auditor != nil {
		err := s.auditor.Emit(ctx, audit.Event{
			Action:    string(audit.EventPostCreated),
			Subject:   post.ID.String(),
			PostID:    post.ID.String(),
			ActorID:   actor.OperatorID.String(),
			RequestID: requestcontext.RequestID(ctx),
		})
		if err != nil {
			s.logger.WarnContext(ctx, "failed to emit audit event", "action", audit.EventPostCreated, "error", err)
		}
	}
	return post, nil
}

func translate(err error, message string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "post not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "post already exists")
	case errors.Is(err, sentinel.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "record store unavailable")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, message)
}
