// Package domain holds the value types shared across kitmatch packages:
// typed identifiers, kit types, operator roles and the post access rule.
package domain

import (
	"github.com/google/uuid"

	dErrors "kitmatch/pkg/domain-errors"
)

// Typed identifiers keep a donor ID from being passed where a receiver ID is
// expected. All of them are non-nil UUIDs once parsed.
type (
	PostID     uuid.UUID
	DonorID    uuid.UUID
	ReceiverID uuid.UUID
	MatchID    uuid.UUID
	OperatorID uuid.UUID
)

func parseUUID(s, field string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+field)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" must not be nil")
	}
	return u, nil
}

func ParsePostID(s string) (PostID, error) {
	u, err := parseUUID(s, "post_id")
	return PostID(u), err
}

func ParseDonorID(s string) (DonorID, error) {
	u, err := parseUUID(s, "donor_id")
	return DonorID(u), err
}

func ParseReceiverID(s string) (ReceiverID, error) {
	u, err := parseUUID(s, "receiver_id")
	return ReceiverID(u), err
}

func ParseMatchID(s string) (MatchID, error) {
	u, err := parseUUID(s, "match_id")
	return MatchID(u), err
}

func ParseOperatorID(s string) (OperatorID, error) {
	u, err := parseUUID(s, "operator_id")
	return OperatorID(u), err
}

func NewPostID() PostID         { return PostID(uuid.New()) }
func NewDonorID() DonorID       { return DonorID(uuid.New()) }
func NewReceiverID() ReceiverID { return ReceiverID(uuid.New()) }
func NewMatchID() MatchID       { return MatchID(uuid.New()) }
func NewOperatorID() OperatorID { return OperatorID(uuid.New()) }

func (id PostID) String() string     { return uuid.UUID(id).String() }
func (id DonorID) String() string    { return uuid.UUID(id).String() }
func (id ReceiverID) String() string { return uuid.UUID(id).String() }
func (id MatchID) String() string    { return uuid.UUID(id).String() }
func (id OperatorID) String() string { return uuid.UUID(id).String() }

func (id PostID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id DonorID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ReceiverID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id MatchID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id OperatorID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// MarshalText lets typed IDs render as UUID strings in JSON and logs.
func (id PostID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id DonorID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }
func (id ReceiverID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id MatchID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }
func (id OperatorID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *PostID) UnmarshalText(b []byte) error {
	parsed, err := ParsePostID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *MatchID) UnmarshalText(b []byte) error {
	parsed, err := ParseMatchID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
