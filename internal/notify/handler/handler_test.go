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
	"go.uber.org/mock/gomock"

	"kitmatch/internal/notify/handler/mocks"
	"kitmatch/internal/notify/models"
	id "kitmatch/pkg/domain"
	dErrors "kitmatch/pkg/domain-errors"
	"kitmatch/pkg/testutil"
)

var fixedNow = time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

func newRouter(t *testing.T) (*mocks.MockService, http.Handler) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	svc := mocks.NewMockService(ctrl)
	h := New(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.now = func() time.Time { return fixedNow }
	r := chi.NewRouter()
	h.RegisterAdmin(r)
	return svc, r
}

func TestHandleResend(t *testing.T) {
	t.Run("malformed id", func(t *testing.T) {
		svc, router := newRouter(t)
		svc.EXPECT().Resend(gomock.Any(), gomock.Any()).Times(0)
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodPost, "/admin/matches/xyz/notify"))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("delivered", func(t *testing.T) {
		svc, router := newRouter(t)
		matchID := id.NewMatchID()
		svc.EXPECT().Resend(gomock.Any(), matchID).Return(&models.Message{MatchID: matchID, PickupCode: "CS-AAAA"}, nil)

		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodPost, "/admin/matches/"+matchID.String()+"/notify"))
		require.Equal(t, http.StatusOK, rr.Code)
		var resp models.ResendResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, "CS-AAAA", resp.Message.PickupCode)
		assert.Empty(t, resp.Warning)
	})

	t.Run("delivery failure is a warning", func(t *testing.T) {
		svc, router := newRouter(t)
		matchID := id.NewMatchID()
		svc.EXPECT().Resend(gomock.Any(), matchID).
			Return(&models.Message{MatchID: matchID}, dErrors.New(dErrors.CodeNotificationFailed, "notification not delivered"))

		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodPost, "/admin/matches/"+matchID.String()+"/notify"))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"warning":"notification_failed"`)
	})

	t.Run("unknown match", func(t *testing.T) {
		svc, router := newRouter(t)
		svc.EXPECT().Resend(gomock.Any(), gomock.Any()).Return(nil, dErrors.New(dErrors.CodeNotFound, "match not found"))
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodPost, "/admin/matches/"+id.NewMatchID().String()+"/notify"))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestHandlePending(t *testing.T) {
	t.Run("defaults to the last day", func(t *testing.T) {
		svc, router := newRouter(t)
		out := []models.Outbound{{MatchID: id.NewMatchID(), Recipient: models.RecipientReceiver, Phone: "+5581998765432", Text: "Oi"}}
		svc.EXPECT().Pending(gomock.Any(), fixedNow.Add(-24*time.Hour)).Return(out, nil)

		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/admin/notifications"))
		require.Equal(t, http.StatusOK, rr.Code)
		var resp models.PendingResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		require.Len(t, resp.Messages, 1)
		assert.Equal(t, "+5581998765432", resp.Messages[0].Phone)
	})

	t.Run("explicit since", func(t *testing.T) {
		svc, router := newRouter(t)
		since := time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC)
		svc.EXPECT().Pending(gomock.Any(), since).Return(nil, nil)

		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/admin/notifications?since=2026-04-30T00:00:00Z"))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"messages":[]}`, rr.Body.String())
	})

	t.Run("bad since", func(t *testing.T) {
		svc, router := newRouter(t)
		svc.EXPECT().Pending(gomock.Any(), gomock.Any()).Times(0)
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/admin/notifications?since=yesterday"))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
