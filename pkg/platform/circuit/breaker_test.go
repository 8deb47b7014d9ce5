package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type BreakerSuite struct {
	suite.Suite
	now     time.Time
	breaker *Breaker
}

func TestBreakerSuite(t *testing.T) {
	suite.Run(t, new(BreakerSuite))
}

func (s *BreakerSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.breaker = New("ratelimit-store",
		WithFailureThreshold(3),
		WithSuccessThreshold(2),
		WithCooldown(10*time.Second),
		WithClock(func() time.Time { return s.now }),
	)
}

func (s *BreakerSuite) trip() {
	for range 3 {
		s.breaker.RecordFailure()
	}
	s.Require().True(s.breaker.IsOpen())
}

func (s *BreakerSuite) TestDefaults() {
	b := New("counters")
	s.Equal("counters", b.Name())
	s.Equal(StateClosed, b.State())
	s.Equal("closed", b.State().String())
	s.True(b.AllowProbe())
}

func (s *BreakerSuite) TestStoreOutageTripsBreaker() {
	for i := range 2 {
		fallback, change := s.breaker.RecordFailure()
		s.False(fallback, "failure %d stays on the primary store", i+1)
		s.False(change.Opened)
	}

	fallback, change := s.breaker.RecordFailure()
	s.True(fallback)
	s.True(change.Opened)
	s.Equal("open", s.breaker.State().String())

	fallback, change = s.breaker.RecordFailure()
	s.True(fallback)
	s.Equal(Change{}, change, "already open")
}

func (s *BreakerSuite) TestIntermittentErrorsDoNotTrip() {
	s.breaker.RecordFailure()
	s.breaker.RecordFailure()
	primary, change := s.breaker.RecordSuccess()
	s.True(primary)
	s.Equal(Change{}, change)

	s.breaker.RecordFailure()
	s.breaker.RecordFailure()
	s.False(s.breaker.IsOpen())
}

func (s *BreakerSuite) TestRecoveryNeedsConsecutiveProbes() {
	s.trip()

	primary, _ := s.breaker.RecordSuccess()
	s.False(primary)
	s.breaker.RecordFailure()

	primary, _ = s.breaker.RecordSuccess()
	s.False(primary, "a failed probe restarts the success count")

	primary, change := s.breaker.RecordSuccess()
	s.True(primary)
	s.True(change.Closed)
	s.Equal(StateClosed, s.breaker.State())
}

func (s *BreakerSuite) TestProbesAreSpacedByCooldown() {
	s.True(s.breaker.AllowProbe())
	s.trip()
	s.False(s.breaker.AllowProbe())

	s.now = s.now.Add(9 * time.Second)
	s.False(s.breaker.AllowProbe())

	s.now = s.now.Add(2 * time.Second)
	s.True(s.breaker.AllowProbe())
	s.False(s.breaker.AllowProbe(), "one probe per window")

	s.now = s.now.Add(10 * time.Second)
	s.True(s.breaker.AllowProbe())
}

func (s *BreakerSuite) TestReset() {
	s.trip()
	s.now = s.now.Add(time.Minute)
	s.Require().True(s.breaker.AllowProbe())

	s.breaker.Reset()
	s.Equal(StateClosed, s.breaker.State())
	s.True(s.breaker.AllowProbe())

	// counters start over after a reset
	s.breaker.RecordFailure()
	s.breaker.RecordFailure()
	s.False(s.breaker.IsOpen())
}
