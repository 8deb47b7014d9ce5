package httptransport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	intakehandler "kitmatch/internal/intake/handler"
	intakemocks "kitmatch/internal/intake/handler/mocks"
	matchhandler "kitmatch/internal/matching/handler"
	matchmocks "kitmatch/internal/matching/handler/mocks"
	matchmodels "kitmatch/internal/matching/models"
	notifyhandler "kitmatch/internal/notify/handler"
	notifymocks "kitmatch/internal/notify/handler/mocks"
	operatorshandler "kitmatch/internal/operators/handler"
	operatorsmocks "kitmatch/internal/operators/handler/mocks"
	operatorsmodels "kitmatch/internal/operators/models"
	pickuphandler "kitmatch/internal/pickup/handler"
	pickupmocks "kitmatch/internal/pickup/handler/mocks"
	"kitmatch/internal/platform/config"
	postshandler "kitmatch/internal/posts/handler"
	postsmocks "kitmatch/internal/posts/handler/mocks"
	postmodels "kitmatch/internal/posts/models"
	rlmw "kitmatch/internal/ratelimit/middleware"
	rlservice "kitmatch/internal/ratelimit/service"
	"kitmatch/internal/ratelimit/store/memory"
	id "kitmatch/pkg/domain"
	auth "kitmatch/pkg/platform/middleware/auth"
	"kitmatch/pkg/testutil"
)

type stubTokens map[string]*auth.OperatorClaims

func (s stubTokens) ValidateToken(token string) (*auth.OperatorClaims, error) {
	claims, ok := s[token]
	if !ok {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

type routerFixture struct {
	router    http.Handler
	posts     *postsmocks.MockService
	intake    *intakemocks.MockService
	matches   *matchmocks.MockService
	operators *operatorsmocks.MockService
	post      id.PostID
}

func newFixture(t *testing.T, health map[string]HealthCheck, proxies ...netip.Prefix) *routerFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	f := &routerFixture{
		posts:     postsmocks.NewMockService(ctrl),
		intake:    intakemocks.NewMockService(ctrl),
		matches:   matchmocks.NewMockService(ctrl),
		operators: operatorsmocks.NewMockService(ctrl),
		post:      id.NewPostID(),
	}

	limiter, err := rlservice.New(memory.New())
	require.NoError(t, err)

	tokens := stubTokens{
		"admin-token": {OperatorID: id.NewOperatorID().String(), Username: "root", Role: "admin"},
		"op-token":    {OperatorID: id.NewOperatorID().String(), Username: "ana", Role: "operator", PostID: f.post.String()},
	}

	f.router = NewRouter(Handlers{
		Posts:     postshandler.New(f.posts, logger),
		Intake:    intakehandler.New(f.intake, logger),
		Pickup:    pickuphandler.New(pickupmocks.NewMockService(ctrl), logger),
		Matches:   matchhandler.New(f.matches, logger),
		Notify:    notifyhandler.New(notifymocks.NewMockService(ctrl), logger),
		Operators: operatorshandler.New(f.operators, logger),
	}, Deps{
		Logger:    logger,
		Tokens:    tokens,
		RateLimit: rlmw.New(limiter, logger),
		Limits: config.RateLimitConfig{
			DonorForm:     config.Limit{Requests: 1, Window: time.Minute},
			ReceiverForm:  config.Limit{Requests: 5, Window: time.Minute},
			PickupCheck:   config.Limit{Requests: 5, Window: time.Minute},
			PickupConfirm: config.Limit{Requests: 5, Window: time.Minute},
			Login:         config.Limit{Requests: 5, Window: time.Minute},
		},
		CORSOrigins:    []string{"https://doe.example.org"},
		TrustedProxies: proxies,
		Health:         health,
	})
	return f
}

func TestHealth(t *testing.T) {
	t.Run("all checks pass", func(t *testing.T) {
		f := newFixture(t, map[string]HealthCheck{
			"database": func(context.Context) error { return nil },
		})
		rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/health"))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"database":"ok"`)
		assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	})

	t.Run("failed check degrades", func(t *testing.T) {
		f := newFixture(t, map[string]HealthCheck{
			"redis": func(context.Context) error { return errors.New("dial tcp: refused") },
		})
		rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/health"))
		require.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.Contains(t, rr.Body.String(), `"status":"degraded"`)
		assert.NotContains(t, rr.Body.String(), "refused")
	})
}

func TestPublicRoutes(t *testing.T) {
	f := newFixture(t, nil)
	f.posts.EXPECT().ListPublic(gomock.Any()).Return([]*postmodels.Post{}, nil)

	req := testutil.NewRequest(t, http.MethodGet, "/posts")
	req.Header.Set("Origin", "https://doe.example.org")
	rr := testutil.DoRequest(f.router, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "https://doe.example.org", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestDonorFormIsRateLimited(t *testing.T) {
	f := newFixture(t, nil)
	f.intake.EXPECT().RegisterDonor(gomock.Any(), gomock.Any()).Times(0)

	first := testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodPost, "/donors", map[string]string{}))
	assert.Equal(t, http.StatusBadRequest, first.Code)

	second := testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodPost, "/donors", map[string]string{}))
	testutil.AssertStatusAndError(t, second, http.StatusTooManyRequests, "rate_limit_exceeded")
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
}

func TestSpoofedForwardedForStillLimited(t *testing.T) {
	f := newFixture(t, nil)

	post := func(forwarded string) int {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/donors", map[string]string{})
		req.RemoteAddr = "203.0.113.7:5555"
		req.Header.Set("X-Forwarded-For", forwarded)
		req.Header.Set("X-Real-IP", forwarded)
		return testutil.DoRequest(f.router, req).Code
	}

	assert.Equal(t, http.StatusBadRequest, post("198.51.100.1"))
	assert.Equal(t, http.StatusTooManyRequests, post("198.51.100.2"))
	assert.Equal(t, http.StatusTooManyRequests, post("198.51.100.3"))
}

func TestForwardedForHonoredBehindTrustedProxy(t *testing.T) {
	f := newFixture(t, nil, netip.MustParsePrefix("10.0.0.0/8"))

	post := func(forwarded string) int {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/donors", map[string]string{})
		req.RemoteAddr = "10.0.0.2:443"
		req.Header.Set("X-Forwarded-For", forwarded)
		return testutil.DoRequest(f.router, req).Code
	}

	assert.Equal(t, http.StatusBadRequest, post("198.51.100.1"))
	assert.Equal(t, http.StatusBadRequest, post("198.51.100.2"), "distinct clients behind the proxy")
	assert.Equal(t, http.StatusTooManyRequests, post("198.51.100.1"))
}

func TestOperatorRoutesRequireToken(t *testing.T) {
	f := newFixture(t, nil)

	rr := testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodPost, "/pickup/check", map[string]string{"code": "CS-AB12CD"}))
	testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")

	rr = testutil.DoRequest(f.router, testutil.WithBearer(testutil.NewRequest(t, http.MethodGet, "/matches"), "forged"))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	f.matches.EXPECT().ListMatches(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, actor *id.Actor, _ matchmodels.MatchFilter) ([]*matchmodels.Match, error) {
			assert.Equal(t, id.RoleOperator, actor.Role)
			require.NotNil(t, actor.PostID)
			assert.Equal(t, f.post, *actor.PostID)
			return nil, nil
		})
	rr = testutil.DoRequest(f.router, testutil.WithBearer(testutil.NewRequest(t, http.MethodGet, "/matches"), "op-token"))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAdminRoutes(t *testing.T) {
	f := newFixture(t, nil)
	body := map[string]string{"username": "bia", "password": "senha-segura", "role": "admin"}

	rr := testutil.DoRequest(f.router, testutil.WithBearer(testutil.NewJSONRequest(t, http.MethodPost, "/admin/operators", body), "op-token"))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	f.operators.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&operatorsmodels.Operator{ID: id.NewOperatorID(), Username: "bia", Role: id.RoleAdmin}, nil)
	rr = testutil.DoRequest(f.router, testutil.WithBearer(testutil.NewJSONRequest(t, http.MethodPost, "/admin/operators", body), "admin-token"))
	assert.Equal(t, http.StatusCreated, rr.Code)
}
