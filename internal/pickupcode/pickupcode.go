// Package pickupcode mints the single-use codes printed on a match and typed
// by post operators at pickup time.
//
// Codes look like CS-7KQ2ZD: a fixed prefix and N characters from [A-Z0-9].
// Uniqueness is enforced by the record store; Assign retries with a fresh
// candidate whenever the store reports the code is taken.
package pickupcode

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"

	dErrors "kitmatch/pkg/domain-errors"
	"kitmatch/pkg/platform/sentinel"
)

const (
	Prefix   = "CS-"
	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	MinLength          = 4
	MaxLength          = 8
	DefaultLength      = 6
	DefaultMaxAttempts = 20
)

// ErrCodeTaken is what an insert callback returns when the candidate code
// collides with an existing match.
var ErrCodeTaken = sentinel.ErrAlreadyUsed

var codePattern = regexp.MustCompile(`^CS-[A-Z0-9]{4,8}$`)

// largest multiple of len(alphabet) that fits in a byte; bytes above it are
// rejected so every character is equally likely.
const rejectAbove = 256 - 256%len(alphabet)

type Generator struct {
	length      int
	maxAttempts int
	random      io.Reader
	logger      *slog.Logger
}

type Option func(*Generator)

func WithLength(n int) Option {
	return func(g *Generator) {
		g.length = n
	}
}

func WithMaxAttempts(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// WithRandom replaces crypto/rand (tests only).
func WithRandom(r io.Reader) Option {
	return func(g *Generator) {
		g.random = r
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		g.logger = logger
	}
}

// New returns a generator. Lengths outside 4..8 are rejected.
func New(opts ...Option) (*Generator, error) {
	g := &Generator{
		length:      DefaultLength,
		maxAttempts: DefaultMaxAttempts,
		random:      rand.Reader,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.length < MinLength || g.length > MaxLength {
		return nil, fmt.Errorf("pickup code length must be between %d and %d, got %d", MinLength, MaxLength, g.length)
	}
	return g, nil
}

// Generate draws one candidate code.
func (g *Generator) Generate() (string, error) {
	out := make([]byte, 0, len(Prefix)+g.length)
	out = append(out, Prefix...)
	buf := make([]byte, g.length*2)
	for len(out) < cap(out) {
		if _, err := io.ReadFull(g.random, buf); err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to read randomness for pickup code")
		}
		for _, b := range buf {
			if int(b) >= rejectAbove {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == cap(out) {
				break
			}
		}
	}
	return string(out), nil
}

// Assign generates candidates and hands each to insert until one is stored.
// insert must return ErrCodeTaken (possibly wrapped) on a code collision;
// any other error stops the loop and is returned unchanged.
func (g *Generator) Assign(ctx context.Context, insert func(code string) error) (string, error) {
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeTimeout, "pickup code assignment cancelled")
		}
		code, err := g.Generate()
		if err != nil {
			return "", err
		}
		err = insert(code)
		if err == nil {
			return code, nil
		}
		if !errors.Is(err, ErrCodeTaken) {
			return "", err
		}
		g.logger.WarnContext(ctx, "pickup code collision, retrying",
			"attempt", attempt,
		)
	}
	return "", dErrors.New(dErrors.CodeCodeSpaceExhausted,
		fmt.Sprintf("no free pickup code after %d attempts", g.maxAttempts))
}

// Valid reports whether s is a well-formed pickup code of any supported length.
func Valid(s string) bool {
	return codePattern.MatchString(s)
}
