package pickupcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "kitmatch/pkg/domain-errors"
)

func TestNew_RejectsLengthOutOfRange(t *testing.T) {
	for _, n := range []int{0, 3, 9} {
		_, err := New(WithLength(n))
		assert.Error(t, err, "length %d", n)
	}
	for n := MinLength; n <= MaxLength; n++ {
		g, err := New(WithLength(n))
		require.NoError(t, err)
		code, err := g.Generate()
		require.NoError(t, err)
		assert.Len(t, code, len(Prefix)+n)
		assert.True(t, Valid(code), code)
	}
}

func TestGenerate_Format(t *testing.T) {
	g, err := New()
	require.NoError(t, err)
	for range 500 {
		code, err := g.Generate()
		require.NoError(t, err)
		assert.Regexp(t, `^CS-[A-Z0-9]{6}$`, code)
	}
}

func TestGenerate_SkipsBiasedBytes(t *testing.T) {
	// 255 is above the rejection threshold; 0 maps to 'A', 35 to '9'.
	random := bytes.NewReader([]byte{255, 0, 255, 35, 1, 2, 3, 4, 5, 6, 7, 8})
	g, err := New(WithLength(4), WithRandom(random))
	require.NoError(t, err)

	code, err := g.Generate()
	require.NoError(t, err)
	assert.Equal(t, "CS-A9BC", code)
}

func TestGenerate_RandomnessFailure(t *testing.T) {
	g, err := New(WithRandom(bytes.NewReader(nil)))
	require.NoError(t, err)
	_, err = g.Generate()
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}

func TestValid(t *testing.T) {
	valid := []string{"CS-ABCD", "CS-7KQ2ZD", "CS-ABCDEFGH"}
	invalid := []string{"", "CS-", "CS-ABC", "CS-ABCDEFGHI", "cs-ABCDEF", "CS-abcdef", "XX-ABCDEF", " CS-ABCDEF", "CS-ABC DEF"}
	for _, c := range valid {
		assert.True(t, Valid(c), c)
	}
	for _, c := range invalid {
		assert.False(t, Valid(c), c)
	}
}

func TestAssign_RetriesOnCollision(t *testing.T) {
	g, err := New()
	require.NoError(t, err)

	calls := 0
	code, err := g.Assign(context.Background(), func(code string) error {
		calls++
		if calls < 3 {
			return fmt.Errorf("insert match: %w", ErrCodeTaken)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, Valid(code))
}

func TestAssign_ExhaustsCodeSpace(t *testing.T) {
	g, err := New(WithMaxAttempts(5))
	require.NoError(t, err)

	calls := 0
	_, err = g.Assign(context.Background(), func(string) error {
		calls++
		return ErrCodeTaken
	})
	assert.Equal(t, 5, calls)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeCodeSpaceExhausted))
}

func TestAssign_OtherErrorsAbort(t *testing.T) {
	g, err := New()
	require.NoError(t, err)

	boom := errors.New("disk on fire")
	calls := 0
	_, err = g.Assign(context.Background(), func(string) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestAssign_CancelledContext(t *testing.T) {
	g, err := New()
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = g.Assign(ctx, func(string) error { return nil })
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
}

func TestAssign_TenThousandUniqueCodes(t *testing.T) {
	g, err := New()
	require.NoError(t, err)

	taken := make(map[string]struct{}, 10_000)
	for range 10_000 {
		_, err := g.Assign(context.Background(), func(code string) error {
			if _, ok := taken[code]; ok {
				return ErrCodeTaken
			}
			taken[code] = struct{}{}
			return nil
		})
		require.NoError(t, err)
	}
	assert.Len(t, taken, 10_000)
	for code := range taken {
		require.True(t, strings.HasPrefix(code, Prefix))
	}
}
