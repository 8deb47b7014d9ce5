package audit

import (
	"time"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategorySecurity covers access decisions: forbidden pickups, failed
	// logins, rate limit rejections.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers the normal life of a match: creation,
	// notification, check and confirmation.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	// Subject is the primary entity: a match ID for match and pickup events,
	// a donor or receiver ID for registrations, a username for logins.
	Subject string
	Action  string
	PostID  string
	ActorID string
	Reason  string
	// RequestID is the correlation ID from the HTTP request context.
	RequestID string
}

type AuditEvent string

const (
	// Intake events
	EventDonorRegistered    AuditEvent = "donor_registered"
	EventReceiverRegistered AuditEvent = "receiver_registered"

	// Match events
	EventMatchCreated       AuditEvent = "match_created"
	EventMatchCreatedManual AuditEvent = "match_created_manual"
	EventNotificationSent   AuditEvent = "notification_sent"
	EventNotificationFailed AuditEvent = "notification_failed"
	EventNotificationResent AuditEvent = "notification_resent"

	// Pickup events
	EventPickupChecked          AuditEvent = "pickup_checked"
	EventPickupConfirmed        AuditEvent = "pickup_confirmed"
	EventPickupAlreadyCompleted AuditEvent = "pickup_already_completed"
	EventPickupForbidden        AuditEvent = "pickup_forbidden"

	// Operator events
	EventOperatorLogin       AuditEvent = "operator_login"
	EventOperatorLoginFailed AuditEvent = "operator_login_failed"
	EventOperatorCreated     AuditEvent = "operator_created"
	EventPostCreated         AuditEvent = "post_created"

	// Rate limit events
	EventRateLimitExceeded AuditEvent = "rate_limit_exceeded"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventPickupForbidden:     CategorySecurity,
	EventOperatorLoginFailed: CategorySecurity,
	EventRateLimitExceeded:   CategorySecurity,
	EventOperatorCreated:     CategorySecurity,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
