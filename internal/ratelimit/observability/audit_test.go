package observability

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kitmatch/pkg/platform/audit"
	"kitmatch/pkg/requestcontext"
)

type recordingPublisher struct {
	events []audit.Event
}

func (p *recordingPublisher) Emit(_ context.Context, e audit.Event) error {
	p.events = append(p.events, e)
	return nil
}

func TestLogAudit(t *testing.T) {
	pub := &recordingPublisher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := requestcontext.WithRequestID(context.Background(), "req-1")

	LogAudit(ctx, logger, pub, audit.EventRateLimitExceeded,
		"ip_prefix", "203.0.113.0",
		"action", "form_donor",
		"reason", "limit_exceeded",
	)

	require.Len(t, pub.events, 1)
	e := pub.events[0]
	assert.Equal(t, "rate_limit_exceeded", e.Action)
	assert.Equal(t, "203.0.113.0", e.Subject)
	assert.Equal(t, "limit_exceeded", e.Reason)
	assert.Equal(t, "req-1", e.RequestID)
}

func TestLogAudit_NilPublisher(t *testing.T) {
	assert.NotPanics(t, func() {
		LogAudit(context.Background(), nil, nil, audit.EventRateLimitExceeded, "identity", "x")
	})
}
