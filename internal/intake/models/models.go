package models

import (
	matchmodels "kitmatch/internal/matching/models"
)

// Registration is the outcome of a public registration. Match is nil when no
// counterpart was waiting.
type Registration struct {
	ID    string
	Match *matchmodels.Match
	// Warning carries a non-fatal problem, such as a failed notification.
	Warning string
}

func (r *Registration) Matched() bool {
	return r.Match != nil
}
