// Package httptransport assembles the public, operator and admin route groups.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	intakehandler "kitmatch/internal/intake/handler"
	matchhandler "kitmatch/internal/matching/handler"
	notifyhandler "kitmatch/internal/notify/handler"
	operatorshandler "kitmatch/internal/operators/handler"
	pickuphandler "kitmatch/internal/pickup/handler"
	"kitmatch/internal/platform/config"
	"kitmatch/internal/platform/metrics"
	postshandler "kitmatch/internal/posts/handler"
	rlmw "kitmatch/internal/ratelimit/middleware"
	rlmodels "kitmatch/internal/ratelimit/models"
	"kitmatch/pkg/platform/httputil"
	auth "kitmatch/pkg/platform/middleware/auth"
	"kitmatch/pkg/platform/middleware/metadata"
	request "kitmatch/pkg/platform/middleware/request"
	"kitmatch/pkg/platform/middleware/requesttime"
)

// Handlers groups the domain handlers mounted on the router.
type Handlers struct {
	Posts     *postshandler.Handler
	Intake    *intakehandler.Handler
	Pickup    *pickuphandler.Handler
	Matches   *matchhandler.Handler
	Notify    *notifyhandler.Handler
	Operators *operatorshandler.Handler
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Deps struct {
	Logger         *slog.Logger
	Tokens         auth.TokenValidator
	RateLimit      *rlmw.Middleware
	Limits         config.RateLimitConfig
	CORSOrigins    []string
	TrustedProxies []netip.Prefix
	Metrics        *metrics.HTTP
	Health         map[string]HealthCheck
}

func NewRouter(h Handlers, d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(metadata.NewResolver(d.TrustedProxies).Middleware)
	r.Use(requesttime.Middleware)
	r.Use(request.Recovery(d.Logger))
	r.Use(request.Logger(d.Logger))
	r.Use(d.Metrics.Middleware)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: d.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "X-RateLimit-Remaining", "Retry-After"},
		MaxAge:         300,
	}).Handler)

	r.Get("/health", healthHandler(d.Health))
	r.Handle("/metrics", metrics.Handler())

	limit := func(action rlmodels.Action, l config.Limit) func(http.Handler) http.Handler {
		return d.RateLimit.Limit(action, l.Requests, l.Window)
	}

	// public
	h.Posts.RegisterPublic(r)
	r.With(limit(rlmodels.ActionDonorForm, d.Limits.DonorForm)).Post("/donors", h.Intake.HandleRegisterDonor)
	r.With(limit(rlmodels.ActionReceiverForm, d.Limits.ReceiverForm)).Post("/receivers", h.Intake.HandleRegisterReceiver)
	r.With(limit(rlmodels.ActionLogin, d.Limits.Login)).Post("/auth/login", h.Operators.HandleLogin)
	r.With(limit(rlmodels.ActionPickupCheck, d.Limits.PickupCheck)).Get("/pickup/{code}/target", h.Pickup.HandleTarget)

	// operators
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireOperator(d.Tokens, d.Logger))
		r.With(limit(rlmodels.ActionPickupCheck, d.Limits.PickupCheck)).Post("/pickup/check", h.Pickup.HandleCheck)
		r.With(limit(rlmodels.ActionPickupConfirm, d.Limits.PickupConfirm)).Post("/pickup/confirm", h.Pickup.HandleConfirm)
		h.Matches.Register(r)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin(d.Logger))
			h.Posts.RegisterAdmin(r)
			h.Notify.RegisterAdmin(r)
			h.Operators.RegisterAdmin(r)
		})
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
		}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				resp.Checks[name] = "unavailable"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
