package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kitmatch/internal/operators/models"
	id "kitmatch/pkg/domain"
	"kitmatch/pkg/platform/httputil"
	"kitmatch/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/service-mocks.go -package=mocks Service

type Service interface {
	Login(ctx context.Context, req *models.LoginRequest) (*models.Session, error)
	Create(ctx context.Context, actor *id.Actor, req *models.CreateOperatorRequest) (*models.Operator, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterAdmin mounts account management. The router must already require
// an administrator.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/operators", h.HandleCreate)
}

// HandleLogin handles POST /auth/login. It is mounted by the caller behind
// the login rate limit.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.LoginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	session, err := h.service.Login(ctx, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	httputil.WriteJSON(w, http.StatusOK, models.ToLoginResponse(session))
}

// HandleCreate handles POST /admin/operators.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.CreateOperatorRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	op, err := h.service.Create(ctx, requestcontext.Actor(ctx), req)
	if err != nil {
		h.logger.WarnContext(ctx, "operator creation failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, models.ToOperatorResponse(op))
}
