package transport

import (
	"context"
	"log/slog"

	"kitmatch/internal/notify/models"
	"kitmatch/pkg/requestcontext"
)

// Log writes the notification as a structured log line. It is the default
// when no external channel is configured.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

func (t *Log) Name() string { return NameLog }

func (t *Log) Send(ctx context.Context, msg *models.Message) error {
	t.logger.InfoContext(ctx, "match notification",
		"match_id", msg.MatchID.String(),
		"kit", string(msg.Kit),
		"post", msg.PostName,
		"city", msg.PostCity,
		"summary", msg.Summary,
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}
