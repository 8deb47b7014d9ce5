package middleware

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kitmatch/internal/ratelimit/models"
	"kitmatch/internal/ratelimit/service"
	"kitmatch/internal/ratelimit/store/memory"
	metadata "kitmatch/pkg/platform/middleware/metadata"
)

func newHandler(t *testing.T, opts ...Option) (http.Handler, *int) {
	t.Helper()
	svc, err := service.New(memory.New())
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mw := New(svc, logger, opts...)

	hits := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusCreated)
	})
	return metadata.ClientMetadata(mw.Limit(models.ActionDonorForm, 2, 300*time.Second)(next)), &hits
}

func post(h http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/donors", nil)
	req.RemoteAddr = ip + ":4000"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestLimit_RejectsOverLimit(t *testing.T) {
	h, hits := newHandler(t)

	rr := post(h, "198.51.100.1")
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "2", rr.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", rr.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rr.Header().Get("X-RateLimit-Reset"))

	rr = post(h, "198.51.100.1")
	assert.Equal(t, http.StatusCreated, rr.Code)

	rr = post(h, "198.51.100.1")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "300", rr.Header().Get("Retry-After"))

	var body models.RateLimitExceededResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "rate_limit_exceeded", body.Error)
	assert.Equal(t, 300, body.RetryAfter)
	assert.Equal(t, 2, *hits, "rejected request never reaches the handler")

	rr = post(h, "198.51.100.2")
	assert.Equal(t, http.StatusCreated, rr.Code, "other clients have their own window")
}

func TestLimit_Disabled(t *testing.T) {
	h, hits := newHandler(t, WithDisabled(true))
	for range 5 {
		assert.Equal(t, http.StatusCreated, post(h, "198.51.100.1").Code)
	}
	assert.Equal(t, 5, *hits)
}
