package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"kitmatch/internal/notify/models"
	id "kitmatch/pkg/domain"
	dErrors "kitmatch/pkg/domain-errors"
	"kitmatch/pkg/platform/httputil"
	"kitmatch/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/service-mocks.go -package=mocks Service

const defaultPendingWindow = 24 * time.Hour

type Service interface {
	Resend(ctx context.Context, matchID id.MatchID) (*models.Message, error)
	Pending(ctx context.Context, since time.Time) ([]models.Outbound, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
	now     func() time.Time
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger, now: time.Now}
}

// RegisterAdmin mounts notification management. The router must already
// require an administrator.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/matches/{id}/notify", h.HandleResend)
	r.Get("/admin/notifications", h.HandlePending)
}

func (h *Handler) HandleResend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	matchID, err := id.ParseMatchID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	msg, err := h.service.Resend(ctx, matchID)
	if err != nil && msg == nil {
		h.logger.WarnContext(ctx, "notification resend failed",
			"request_id", requestID,
			"match_id", matchID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	resp := models.ResendResponse{Message: msg}
	if err != nil {
		resp.Warning = string(dErrors.CodeOf(err))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandlePending handles GET /admin/notifications?since=<RFC3339>. Without
// since it covers the last 24 hours.
func (h *Handler) HandlePending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	since := h.now().Add(-defaultPendingWindow)
	if v := r.URL.Query().Get("since"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "since must be an RFC3339 timestamp"))
			return
		}
		since = parsed
	}

	out, err := h.service.Pending(ctx, since)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list pending notifications",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	if out == nil {
		out = []models.Outbound{}
	}
	httputil.WriteJSON(w, http.StatusOK, models.PendingResponse{Messages: out})
}
