package handler

import (
	"context"
	"log/slog"
	"net/http"

	"kitmatch/internal/intake/models"
	"kitmatch/pkg/platform/httputil"
	"kitmatch/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/service-mocks.go -package=mocks Service

type Service interface {
	RegisterDonor(ctx context.Context, req *models.RegisterDonorRequest) (*models.Registration, error)
	RegisterReceiver(ctx context.Context, req *models.RegisterReceiverRequest) (*models.Registration, error)
}

// Handler serves the public registration forms. Routes are mounted by the
// caller so each one can carry its own rate limit.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// HandleRegisterDonor handles POST /donors.
func (h *Handler) HandleRegisterDonor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.RegisterDonorRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	reg, err := h.service.RegisterDonor(ctx, req)
	if err != nil {
		h.logger.WarnContext(ctx, "donor registration rejected",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, models.ToDonorResponse(reg))
}

// HandleRegisterReceiver handles POST /receivers.
func (h *Handler) HandleRegisterReceiver(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.RegisterReceiverRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	reg, err := h.service.RegisterReceiver(ctx, req)
	if err != nil {
		h.logger.WarnContext(ctx, "receiver registration rejected",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, models.ToReceiverResponse(reg))
}
