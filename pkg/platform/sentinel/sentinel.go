package sentinel

import "errors"

// Sentinel errors for record store facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors:
//   - ErrNotFound: row does not exist
//   - ErrConflict: a uniqueness rule other than the pickup code was violated
//   - ErrAlreadyUsed: the pickup code is already held by another match
//   - ErrInvalidState: row is in the wrong state for the requested write
//   - ErrUnavailable: store unreachable or timed out
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
