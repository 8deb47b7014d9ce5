package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"kitmatch/internal/matching/handler/mocks"
	"kitmatch/internal/matching/models"
	id "kitmatch/pkg/domain"
	dErrors "kitmatch/pkg/domain-errors"
	"kitmatch/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) newHandler(t *testing.T) (*mocks.MockService, http.Handler) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	svc := mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(svc, logger)
	r := chi.NewRouter()
	h.Register(r)
	return svc, r
}

func sampleMatch(post id.PostID) *models.Match {
	return &models.Match{
		ID:         id.NewMatchID(),
		DonorID:    id.NewDonorID(),
		ReceiverID: id.NewReceiverID(),
		PostID:     post,
		Kit:        id.KitBasic,
		PickupCode: "CS-AB12CD",
		CreatedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (s *HandlerSuite) TestList() {
	s.Run("passes the parsed filter and actor to the service", func() {
		svc, router := s.newHandler(s.T())
		post := id.NewPostID()
		actor := testutil.Operator(id.RoleOperator, post)
		completed := false
		want := models.MatchFilter{
			PostID:    &post,
			Completed: &completed,
			Kits:      []id.KitType{id.KitBasic, id.KitCompleteAllergy},
			Limit:     20,
		}
		svc.EXPECT().ListMatches(gomock.Any(), actor, want).Return([]*models.Match{sampleMatch(post)}, nil)

		req := testutil.NewRequest(s.T(), http.MethodGet,
			"/matches?post_id="+post.String()+"&completed=false&kit=basic&kit=KIT_COMPLETO_ALERGICA&limit=20")
		rr := testutil.DoRequest(router, testutil.WithActor(req, actor))

		require.Equal(s.T(), http.StatusOK, rr.Code)
		var resp models.ListMatchesResponse
		require.NoError(s.T(), json.NewDecoder(rr.Body).Decode(&resp))
		require.Len(s.T(), resp.Matches, 1)
		assert.Equal(s.T(), "CS-AB12CD", resp.Matches[0].PickupCode)
		assert.Equal(s.T(), "Kit Básico", resp.Matches[0].KitLabel)
	})

	s.Run("invalid query params are rejected before the service", func() {
		for _, query := range []string{"?completed=maybe", "?kit=deluxe", "?limit=0", "?limit=9000", "?post_id=nope"} {
			svc, router := s.newHandler(s.T())
			svc.EXPECT().ListMatches(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

			req := testutil.WithActor(testutil.NewRequest(s.T(), http.MethodGet, "/matches"+query), testutil.Admin())
			rr := testutil.DoRequest(router, req)
			assert.Equal(s.T(), http.StatusBadRequest, rr.Code, query)
		}
	})

	s.Run("forbidden from the service maps to 403", func() {
		svc, router := s.newHandler(s.T())
		svc.EXPECT().ListMatches(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeForbidden, "post outside your scope"))

		req := testutil.WithActor(testutil.NewRequest(s.T(), http.MethodGet, "/matches"), testutil.Operator(id.RoleManager, id.NewPostID()))
		rr := testutil.DoRequest(router, req)
		assert.Equal(s.T(), http.StatusForbidden, rr.Code)
	})
}

func (s *HandlerSuite) TestCreateManual() {
	s.Run("non-admin is stopped by the role check", func() {
		svc, router := s.newHandler(s.T())
		svc.EXPECT().CreateManual(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		body := models.CreateMatchRequest{DonorID: id.NewDonorID().String(), ReceiverID: id.NewReceiverID().String()}
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/matches", body)
		rr := testutil.DoRequest(router, testutil.WithActor(req, testutil.Operator(id.RoleOperator, id.NewPostID())))
		assert.Equal(s.T(), http.StatusForbidden, rr.Code)
	})

	s.Run("invalid ids are a validation error", func() {
		svc, router := s.newHandler(s.T())
		svc.EXPECT().CreateManual(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/matches", map[string]string{"donor_id": "x"})
		rr := testutil.DoRequest(router, testutil.WithActor(req, testutil.Admin()))
		require.Equal(s.T(), http.StatusBadRequest, rr.Code)
		assert.Contains(s.T(), rr.Body.String(), `"field":"donor_id"`)
		assert.Contains(s.T(), rr.Body.String(), `"field":"receiver_id"`)
	})

	s.Run("created match is returned with 201", func() {
		svc, router := s.newHandler(s.T())
		admin := testutil.Admin()
		match := sampleMatch(id.NewPostID())
		svc.EXPECT().CreateManual(gomock.Any(), admin, match.DonorID, match.ReceiverID).Return(match, nil)

		body := models.CreateMatchRequest{DonorID: match.DonorID.String(), ReceiverID: match.ReceiverID.String()}
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/matches", body)
		rr := testutil.DoRequest(router, testutil.WithActor(req, admin))

		require.Equal(s.T(), http.StatusCreated, rr.Code)
		var resp models.CreateMatchResponse
		require.NoError(s.T(), json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(s.T(), match.ID.String(), resp.Match.ID)
		assert.Empty(s.T(), resp.Warning)
	})

	s.Run("notification failure still reports the match", func() {
		svc, router := s.newHandler(s.T())
		match := sampleMatch(id.NewPostID())
		svc.EXPECT().CreateManual(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(match, dErrors.New(dErrors.CodeNotificationFailed, "notification not delivered"))

		body := models.CreateMatchRequest{DonorID: match.DonorID.String(), ReceiverID: match.ReceiverID.String()}
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/matches", body)
		rr := testutil.DoRequest(router, testutil.WithActor(req, testutil.Admin()))

		require.Equal(s.T(), http.StatusCreated, rr.Code)
		var resp models.CreateMatchResponse
		require.NoError(s.T(), json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(s.T(), string(dErrors.CodeNotificationFailed), resp.Warning)
	})

	s.Run("conflict is passed through", func() {
		svc, router := s.newHandler(s.T())
		svc.EXPECT().CreateManual(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeConflict, "receiver was matched in the last 7 days"))

		body := models.CreateMatchRequest{DonorID: id.NewDonorID().String(), ReceiverID: id.NewReceiverID().String()}
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/matches", body)
		rr := testutil.DoRequest(router, testutil.WithActor(req, testutil.Admin()))

		require.Equal(s.T(), http.StatusConflict, rr.Code)
		assert.Contains(s.T(), rr.Body.String(), "last 7 days")
	})
}
