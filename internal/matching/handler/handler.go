package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"kitmatch/internal/matching/models"
	id "kitmatch/pkg/domain"
	dErrors "kitmatch/pkg/domain-errors"
	"kitmatch/pkg/platform/httputil"
	"kitmatch/pkg/platform/middleware/auth"
	"kitmatch/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/service-mocks.go -package=mocks Service

const maxListLimit = 500

// Service defines the matching operations exposed over HTTP.
type Service interface {
	ListMatches(ctx context.Context, actor *id.Actor, filter models.MatchFilter) ([]*models.Match, error)
	CreateManual(ctx context.Context, actor *id.Actor, donorID id.DonorID, receiverID id.ReceiverID) (*models.Match, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts match endpoints. The router must already authenticate
// operators; the admin route adds its own role check.
func (h *Handler) Register(r chi.Router) {
	r.Get("/matches", h.HandleList)
	r.With(auth.RequireAdmin(h.logger)).Post("/admin/matches", h.HandleCreateManual)
}

// HandleList handles GET /matches?post_id=&completed=&kit=&limit=
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	actor := requestcontext.Actor(ctx)

	filter, err := parseFilter(r)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid match filter",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	matches, err := h.service.ListMatches(ctx, actor, filter)
	if err != nil {
		h.logger.WarnContext(ctx, "list matches failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToListMatchesResponse(matches))
}

// HandleCreateManual handles POST /admin/matches.
func (h *Handler) HandleCreateManual(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	actor := requestcontext.Actor(ctx)

	req, ok := httputil.DecodeAndPrepare[models.CreateMatchRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	// Validate already checked both IDs.
	donorID, _ := id.ParseDonorID(req.DonorID)
	receiverID, _ := id.ParseReceiverID(req.ReceiverID)

	match, err := h.service.CreateManual(ctx, actor, donorID, receiverID)
	if err != nil && match == nil {
		h.logger.WarnContext(ctx, "manual match rejected",
			"request_id", requestID,
			"donor_id", req.DonorID,
			"receiver_id", req.ReceiverID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	resp := models.CreateMatchResponse{Match: models.ToMatchResponse(match)}
	if err != nil {
		resp.Warning = string(dErrors.CodeOf(err))
	}
	h.logger.InfoContext(ctx, "manual match created",
		"request_id", requestID,
		"match_id", match.ID.String(),
	)
	httputil.WriteJSON(w, http.StatusCreated, resp)
}

func parseFilter(r *http.Request) (models.MatchFilter, error) {
	q := r.URL.Query()
	var filter models.MatchFilter
	if v := q.Get("post_id"); v != "" {
		postID, err := id.ParsePostID(v)
		if err != nil {
			return filter, err
		}
		filter.PostID = &postID
	}
	if v := q.Get("completed"); v != "" {
		completed, err := strconv.ParseBool(v)
		if err != nil {
			return filter, dErrors.New(dErrors.CodeBadRequest, "completed must be true or false")
		}
		filter.Completed = &completed
	}
	for _, v := range q["kit"] {
		kit, err := id.ParseKitType(v)
		if err != nil {
			return filter, err
		}
		filter.Kits = append(filter.Kits, kit)
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 || limit > maxListLimit {
			return filter, dErrors.New(dErrors.CodeBadRequest, "limit must be between 1 and 500")
		}
		filter.Limit = limit
	}
	return filter, nil
}
