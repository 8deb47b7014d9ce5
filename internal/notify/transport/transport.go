// Package transport delivers composed match notifications to external
// channels.
package transport

import (
	"context"

	"kitmatch/internal/notify/models"
)

// Transport sends one message. Implementations must be safe for concurrent
// use; the dispatcher fans out to every configured transport at once.
type Transport interface {
	Name() string
	Send(ctx context.Context, msg *models.Message) error
}

const (
	NameLog      = "log"
	NameKafka    = "kafka"
	NameWebhook  = "webhook"
	NameTelegram = "telegram"
)
