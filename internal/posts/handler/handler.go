package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kitmatch/internal/posts/models"
	id "kitmatch/pkg/domain"
	"kitmatch/pkg/platform/httputil"
	"kitmatch/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/service-mocks.go -package=mocks Service

type Service interface {
	ListPublic(ctx context.Context) ([]*models.Post, error)
	Get(ctx context.Context, postID id.PostID) (*models.Post, error)
	Create(ctx context.Context, actor *id.Actor, req *models.CreatePostRequest) (*models.Post, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterPublic mounts the unauthenticated catalogue routes.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/posts", h.HandleList)
	r.Get("/posts/{id}", h.HandleGet)
}

// RegisterAdmin mounts post management. The router must already require an
// administrator.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/posts", h.HandleCreate)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	posts, err := h.service.ListPublic(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list posts",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToListPostsResponse(posts))
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	postID, err := id.ParsePostID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	post, err := h.service.Get(ctx, postID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToPostResponse(post))
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.CreatePostRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	post, err := h.service.Create(ctx, requestcontext.Actor(ctx), req)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to create post",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, models.ToPostResponse(post))
}
