// Package observability provides audit logging helpers for the ratelimit module.
package observability

import (
	"context"
	"log/slog"

	"kitmatch/pkg/attrs"
	"kitmatch/pkg/platform/audit"
	"kitmatch/pkg/requestcontext"
)

// AuditPublisher records security-relevant rate limit outcomes.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// LogAudit logs audit events to both structured logger and audit publisher.
// It enriches events with request ID and extracts subject/reason from attrList.
func LogAudit(ctx context.Context, logger *slog.Logger, publisher AuditPublisher, event audit.AuditEvent, attrList ...any) {
	requestID := requestcontext.RequestID(ctx)

	if requestID != "" {
		attrList = append(attrList, "request_id", requestID)
	}

	args := append(attrList, "event", string(event), "log_type", "audit")

	if logger != nil {
		logger.InfoContext(ctx, string(event), args...)
	}

	if publisher == nil {
		return
	}

	if err := publisher.Emit(ctx, audit.Event{
		Action:    string(event),
		Subject:   extractSubject(attrList),
		RequestID: requestID,
		Reason:    attrs.ExtractString(attrList, "reason"),
	}); err != nil && logger != nil {
		logger.WarnContext(ctx, "failed to emit audit event", "event", string(event), "error", err)
	}
}

func extractSubject(attrList []any) string {
	for _, key := range []string{"ip_prefix", "identity", "key"} {
		if val := attrs.ExtractString(attrList, key); val != "" {
			return val
		}
	}
	return ""
}
