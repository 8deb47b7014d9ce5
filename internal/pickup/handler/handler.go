package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kitmatch/internal/pickup/models"
	id "kitmatch/pkg/domain"
	"kitmatch/pkg/platform/httputil"
	"kitmatch/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/service-mocks.go -package=mocks Service

type Service interface {
	Check(ctx context.Context, code string, actor *id.Actor) (*models.MatchView, error)
	Confirm(ctx context.Context, matchID id.MatchID, code string, actor *id.Actor) (*models.ConfirmResult, error)
	RedemptionTarget(ctx context.Context, code string) (string, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// HandleCheck handles POST /pickup/check.
func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.CheckRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	view, err := h.service.Check(ctx, req.Code, requestcontext.Actor(ctx))
	if err != nil {
		h.logger.WarnContext(ctx, "pickup check refused",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToMatchViewResponse(view))
}

// HandleConfirm handles POST /pickup/confirm. A repeated confirm answers 200
// with outcome already_completed.
func (h *Handler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.ConfirmRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	matchID, _ := id.ParseMatchID(req.MatchID)

	result, err := h.service.Confirm(ctx, matchID, req.Code, requestcontext.Actor(ctx))
	if err != nil {
		h.logger.WarnContext(ctx, "pickup confirm refused",
			"request_id", requestID,
			"match_id", req.MatchID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToConfirmResponse(result))
}

// HandleTarget handles GET /pickup/{code}/target.
func (h *Handler) HandleTarget(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	target, err := h.service.RedemptionTarget(ctx, chi.URLParam(r, "code"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.TargetResponse{URL: target})
}
