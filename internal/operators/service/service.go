// Package service authenticates staff and manages their accounts.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"kitmatch/internal/operators/models"
	"kitmatch/internal/operators/secrets"
	"kitmatch/internal/operators/store"
	postmodels "kitmatch/internal/posts/models"
	id "kitmatch/pkg/domain"
	dErrors "kitmatch/pkg/domain-errors"
	"kitmatch/pkg/platform/audit"
	"kitmatch/pkg/platform/sentinel"
	"kitmatch/pkg/requestcontext"
)

// TokenIssuer signs access tokens for authenticated operators.
type TokenIssuer interface {
	GenerateAccessToken(operatorID id.OperatorID, username string, role id.Role, postID *id.PostID) (string, time.Time, error)
}

type PostLookup interface {
	Get(ctx context.Context, postID id.PostID) (*postmodels.Post, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store   store.Store
	tokens  TokenIssuer
	posts   PostLookup
	auditor AuditPublisher
	logger  *slog.Logger
	now     func() time.Time
}

type Option func(*Service)

// WithPostLookup makes Create reject posts that do not exist.
func WithPostLookup(p PostLookup) Option {
	return func(s *Service) {
		s.posts = p
	}
}

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

func New(st store.Store, tokens TokenIssuer, opts ...Option) *Service {
	s := &Service{store: st, tokens: tokens, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var errBadCredentials = dErrors.New(dErrors.CodeUnauthorized, "invalid username or password")

// Login verifies the password and issues an access token. Unknown users,
// wrong passwords and disabled accounts fail identically.
func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (*models.Session, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	username := models.CanonicalUsername(req.Username)

	op, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, translate(err, "failed to load operator")
		}
		secrets.BurnVerify(req.Password)
		s.loginFailed(ctx, username, "unknown_user")
		return nil, errBadCredentials
	}
	if err := secrets.Verify(req.Password, op.PasswordHash); err != nil {
		if !dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			s.logger.ErrorContext(ctx, "password verification failed",
				"operator_id", op.ID.String(),
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		s.loginFailed(ctx, username, "bad_password")
		return nil, errBadCredentials
	}
	if !op.Active {
		s.loginFailed(ctx, username, "inactive")
		return nil, errBadCredentials
	}

	token, expiresAt, err := s.tokens.GenerateAccessToken(op.ID, op.Username, op.Role, op.PostID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}

	event := audit.Event{
		Action:  string(audit.EventOperatorLogin),
		Subject: op.ID.String(),
		ActorID: op.ID.String(),
	}
	if op.PostID != nil {
		event.PostID = op.PostID.String()
	}
	s.emit(ctx, event)
	s.logger.InfoContext(ctx, "operator logged in",
		"operator_id", op.ID.String(),
		"role", op.Role.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return &models.Session{Token: token, ExpiresAt: expiresAt, Operator: op}, nil
}

// Create adds a staff account. Administrators only.
func (s *Service) Create(ctx context.Context, actor *id.Actor, req *models.CreateOperatorRequest) (*models.Operator, error) {
	if !actor.IsAdmin() {
		return nil, dErrors.New(dErrors.CodeForbidden, "only administrators can create operators")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	postID := req.ParsedPost()
	if postID != nil && s.posts != nil {
		if _, err := s.posts.Get(ctx, *postID); err != nil {
			if dErrors.HasCode(err, dErrors.CodeNotFound) {
				return nil, dErrors.Validation(dErrors.FieldError{Field: "post_id", Message: "unknown post"})
			}
			return nil, err
		}
	}

	op, err := s.insert(ctx, req.Username, req.Password, req.ParsedRole(), postID)
	if err != nil {
		return nil, err
	}
	event := audit.Event{
		Action:  string(audit.EventOperatorCreated),
		Subject: op.ID.String(),
		ActorID: actor.OperatorID.String(),
		Reason:  op.Role.String(),
	}
	if postID != nil {
		event.PostID = postID.String()
	}
	s.emit(ctx, event)
	return op, nil
}

// SeedAdmin creates the first administrator when the store has no operators
// at all. It reports whether an account was created.
func (s *Service) SeedAdmin(ctx context.Context, username, password string) (bool, error) {
	if username == "" || password == "" {
		return false, nil
	}
	n, err := s.store.Count(ctx)
	if err != nil {
		return false, translate(err, "failed to count operators")
	}
	if n > 0 {
		return false, nil
	}
	op, err := s.insert(ctx, models.CanonicalUsername(username), password, id.RoleAdmin, nil)
	if dErrors.HasCode(err, dErrors.CodeConflict) {
		// another instance seeded first
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.emit(ctx, audit.Event{
		Action:  string(audit.EventOperatorCreated),
		Subject: op.ID.String(),
		Reason:  "bootstrap",
	})
	s.logger.InfoContext(ctx, "bootstrap administrator created", "operator_id", op.ID.String())
	return true, nil
}

func (s *Service) insert(ctx context.Context, username, password string, role id.Role, postID *id.PostID) (*models.Operator, error) {
	hash, err := secrets.Hash(password)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvalidInput) {
			return nil, dErrors.Validation(dErrors.FieldError{Field: "password", Message: "must be at most 72 bytes"})
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	op := &models.Operator{
		ID:           id.NewOperatorID(),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		PostID:       postID,
		Active:       true,
		CreatedAt:    s.now(),
	}
	if err := s.store.Insert(ctx, op); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "username already taken")
		}
		return nil, translate(err, "failed to create operator")
	}
	return op, nil
}

func (s *Service) loginFailed(ctx context.Context, username, reason string) {
	s.emit(ctx, audit.Event{
		Action:  string(audit.EventOperatorLoginFailed),
		Subject: username,
		Reason:  reason,
	})
	s.logger.WarnContext(ctx, "operator login failed",
		"reason", reason,
		"request_id", requestcontext.RequestID(ctx),
	)
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

func translate(err error, message string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "operator not found")
	case errors.Is(err, sentinel.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "operator store unavailable")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, message)
}
