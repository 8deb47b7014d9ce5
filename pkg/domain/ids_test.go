package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "kitmatch/pkg/domain-errors"
)

// IDs must be valid, non-empty, non-nil UUIDs.
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseMatchID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseMatchID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseMatchID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseMatchID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, MatchID(validUUID), id)
	})
}

// TestTypeDistinction verifies donor and receiver IDs stay distinct types.
func TestTypeDistinction(t *testing.T) {
	donorID := DonorID(uuid.New())
	receiverID := ReceiverID(uuid.New())

	// var _ DonorID = receiverID // does not compile
	assert.NotEqual(t, uuid.UUID(donorID), uuid.UUID(receiverID))
}

// Path parameters arrive untrusted; parsing is the only gate.
func TestParseID_SecurityInvariants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		// Attack vectors
		{"SQL injection attempt", "'; DROP TABLE matches;--", true},
		{"Path traversal", "../../../etc/passwd", true},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Unicode zero-width space", "550e8400\u200B-e29b-41d4-a716-446655440000", true},

		// Edge cases
		{"Empty string", "", true},
		{"Nil UUID", uuid.Nil.String(), true},
		{"Whitespace only", "   ", true},
		{"Uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},

		// Valid
		{"Valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMatchID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestIDTextRoundTrip(t *testing.T) {
	original := NewPostID()
	text, err := original.MarshalText()
	require.NoError(t, err)

	var decoded PostID
	require.NoError(t, decoded.UnmarshalText(text))
	assert.Equal(t, original, decoded)
	assert.Error(t, decoded.UnmarshalText([]byte("nope")))
}

func TestAllIDTypes_ConsistentBehavior(t *testing.T) {
	validUUID := uuid.New().String()
	invalidInputs := []string{"", "invalid", uuid.Nil.String()}

	// All types should accept valid UUID
	t.Run("all accept valid UUID", func(t *testing.T) {
		_, errPost := ParsePostID(validUUID)
		_, errDonor := ParseDonorID(validUUID)
		_, errReceiver := ParseReceiverID(validUUID)
		_, errMatch := ParseMatchID(validUUID)
		_, errOperator := ParseOperatorID(validUUID)

		require.NoError(t, errPost)
		require.NoError(t, errDonor)
		require.NoError(t, errReceiver)
		require.NoError(t, errMatch)
		require.NoError(t, errOperator)
	})

	// All types should reject invalid inputs identically
	for _, input := range invalidInputs {
		t.Run("all reject: "+input, func(t *testing.T) {
			_, errPost := ParsePostID(input)
			_, errDonor := ParseDonorID(input)
			_, errReceiver := ParseReceiverID(input)
			_, errMatch := ParseMatchID(input)
			_, errOperator := ParseOperatorID(input)

			require.Error(t, errPost)
			require.Error(t, errDonor)
			require.Error(t, errReceiver)
			require.Error(t, errMatch)
			require.Error(t, errOperator)
		})
	}
}
