package models

import (
	"time"

	dErrors "kitmatch/pkg/domain-errors"
)

// Action names the endpoint family a counter belongs to.
type Action string

const (
	ActionDonorForm     Action = "form_donor"
	ActionReceiverForm  Action = "form_receiver"
	ActionPickupCheck   Action = "pickup_check"
	ActionPickupConfirm Action = "pickup_confirm"
	ActionLogin         Action = "login"
)

func (a Action) IsValid() bool {
	switch a {
	case ActionDonorForm, ActionReceiverForm, ActionPickupCheck, ActionPickupConfirm, ActionLogin:
		return true
	}
	return false
}

func (a Action) String() string {
	return string(a)
}

// FailurePolicy decides the outcome when the counter store cannot answer.
type FailurePolicy string

const (
	FailOpen   FailurePolicy = "open"
	FailClosed FailurePolicy = "closed"
)

func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch p := FailurePolicy(s); p {
	case FailOpen, FailClosed:
		return p, nil
	case "":
		return FailOpen, nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "failure policy must be 'open' or 'closed'")
}

// Result represents the outcome of a rate limit check.
type Result struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
	// Degraded is set when the counter store was skipped or failed and the
	// failure policy decided the outcome.
	Degraded bool `json:"degraded,omitempty"`
}
