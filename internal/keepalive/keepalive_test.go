package keepalive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestScheduler_DisabledNeverFires(t *testing.T) {
	s := NewScheduler(0, 3)
	require.Nil(t, s.Timer())
}

func TestScheduler_EnabledArmsATimer(t *testing.T) {
	s := NewScheduler(time.Hour, 3)
	defer s.Stop()
	require.NotNil(t, s.Timer())
}

func TestScheduler_FirstElapsePingsWithoutTimingOut(t *testing.T) {
	s := NewScheduler(time.Hour, 3)
	defer s.Stop()

	outcome := s.Elapsed()
	require.True(t, outcome.Ping)
	require.False(t, outcome.TimedOut)
}

func TestScheduler_KickReturnsToRunningResettingFailures(t *testing.T) {
	s := NewScheduler(time.Hour, 1)
	defer s.Stop()

	s.Elapsed() // running -> startedKeepAlive
	s.Elapsed() // startedKeepAlive -> timingOut, failures=1 (not yet > 1)
	s.Kick()

	// Back in running: needs the full two elapses again before any chance
	// of timing out.
	outcome := s.Elapsed()
	require.True(t, outcome.Ping)
	require.False(t, outcome.TimedOut)
}

// With retries=0 the connection is declared dead on the second elapse, not
// the first: the first elapse only transitions Running -> StartedKeepAlive
// and sends a ping, mirroring the original keep-alive state machine this
// package is a port of.
func TestScheduler_ZeroRetriesTimesOutOnSecondElapse(t *testing.T) {
	s := NewScheduler(time.Hour, 0)
	defer s.Stop()

	first := s.Elapsed()
	require.True(t, first.Ping)
	require.False(t, first.TimedOut)

	second := s.Elapsed()
	require.False(t, second.Ping)
	require.True(t, second.TimedOut)
}

func TestScheduler_RetriesExhaustedEventually(t *testing.T) {
	s := NewScheduler(time.Hour, 2)
	defer s.Stop()

	require.False(t, s.Elapsed().TimedOut) // running -> startedKeepAlive
	require.False(t, s.Elapsed().TimedOut) // startedKeepAlive -> timingOut, failures=1
	require.False(t, s.Elapsed().TimedOut) // timingOut, failures=2, not > 2
	require.True(t, s.Elapsed().TimedOut)  // timingOut, failures=3 > 2
}
