package game

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanq-games/baduk-server/internal/board"
)

func newClockSession(tc TimeControl) *Session {
	s := &Session{
		Mode:     ModeStandard,
		Settings: Settings{BoardSize: 9, Komi: 6.5, Time: tc},
		Current:  board.Black,
	}
	s.InitClocks()
	return s
}

func TestMainTimeConservation(t *testing.T) {
	s := newClockSession(TimeControl{MainMs: 60_000, ByoyomiMs: 30_000, ByoyomiPeriods: 3})

	s.StartClock(1_000)
	require.Equal(t, int64(61_000), s.Clocks.DeadlineMs)

	// Black uses 10s, then white 4s, then black 6s more.
	s.SwitchTurn(11_000)
	require.Equal(t, int64(50_000), s.Clocks.Black.RemainingMs)
	s.SwitchTurn(15_000)
	require.Equal(t, int64(56_000), s.Clocks.White.RemainingMs)
	s.SwitchTurn(21_000)
	require.Equal(t, int64(44_000), s.Clocks.Black.RemainingMs)
}

func TestByoyomiEntryAndExhaustion(t *testing.T) {
	s := newClockSession(TimeControl{MainMs: 5_000, ByoyomiMs: 30_000, ByoyomiPeriods: 2})

	s.StartClock(0)
	require.True(t, s.ClockExpired(5_000))

	// Main time lapses into the first period without consuming one.
	require.False(t, s.OnClockExpired(5_000))
	require.True(t, s.Clocks.Black.InByoyomi)
	require.Equal(t, 2, s.Clocks.Black.PeriodsLeft)
	require.Equal(t, int64(35_000), s.Clocks.DeadlineMs)

	// First full period exhausted: one period consumed, fresh deadline.
	require.False(t, s.OnClockExpired(35_000))
	require.Equal(t, 1, s.Clocks.Black.PeriodsLeft)
	require.Equal(t, int64(65_000), s.Clocks.DeadlineMs)

	// Last period exhausted: timeout loss.
	require.True(t, s.OnClockExpired(65_000))
}

func TestSinglePeriodTimesOutImmediately(t *testing.T) {
	// 0 main time, 1 period of 30s: failing to move within 30s loses.
	s := newClockSession(TimeControl{MainMs: 0, ByoyomiMs: 30_000, ByoyomiPeriods: 1})

	s.StartClock(0)
	require.True(t, s.Clocks.Black.InByoyomi)
	require.Equal(t, int64(30_000), s.Clocks.DeadlineMs)
	require.True(t, s.OnClockExpired(30_000))
}

func TestByoyomiMoveDoesNotDrainMainTime(t *testing.T) {
	s := newClockSession(TimeControl{MainMs: 0, ByoyomiMs: 30_000, ByoyomiPeriods: 3})

	s.StartClock(0)
	// Move inside the period: nothing deducted, no period consumed.
	s.SwitchTurn(20_000)
	require.Equal(t, int64(0), s.Clocks.Black.RemainingMs)
	require.Equal(t, 3, s.Clocks.Black.PeriodsLeft)

	// Next black turn gets a fresh full period.
	s.SwitchTurn(25_000)
	require.Equal(t, int64(55_000), s.Clocks.DeadlineMs)
}

func TestFischerIncrement(t *testing.T) {
	s := newClockSession(TimeControl{MainMs: 30_000, FischerMs: 5_000})

	s.StartClock(0)
	s.SwitchTurn(10_000)
	// 30s - 10s used + 5s increment.
	require.Equal(t, int64(25_000), s.Clocks.Black.RemainingMs)

	s.SwitchTurn(12_000)
	require.Equal(t, int64(33_000), s.Clocks.White.RemainingMs)

	// Fischer expiry is an immediate loss, no byoyomi concept.
	require.True(t, s.ClockExpired(12_000+25_000))
	require.True(t, s.OnClockExpired(37_000))
}

func TestStopClockIgnoredAfterCurrentCleared(t *testing.T) {
	s := newClockSession(TimeControl{MainMs: 60_000, FischerMs: 5_000})

	s.StartClock(1_000)
	s.Current = board.Empty
	s.StopClock(31_000)

	// Neither side may be debited or credited once nobody is to move.
	require.Equal(t, int64(60_000), s.Clocks.Black.RemainingMs)
	require.Equal(t, int64(60_000), s.Clocks.White.RemainingMs)
}

func TestPauseResumePreservesTime(t *testing.T) {
	s := newClockSession(TimeControl{MainMs: 60_000, ByoyomiMs: 30_000, ByoyomiPeriods: 1})

	s.StartClock(0)
	s.PauseClock(15_000)
	require.False(t, s.Clocks.Running)
	require.Equal(t, int64(45_000), s.Clocks.Black.RemainingMs)

	// Paused time does not count against the player.
	s.ResumeClock(100_000)
	require.Equal(t, int64(145_000), s.Clocks.DeadlineMs)
}

func TestPauseResumeInsideByoyomiPeriod(t *testing.T) {
	s := newClockSession(TimeControl{MainMs: 0, ByoyomiMs: 30_000, ByoyomiPeriods: 2})

	s.StartClock(0)
	s.PauseClock(12_000)
	require.Equal(t, int64(18_000), s.Clocks.Black.PeriodResidMs)

	s.ResumeClock(50_000)
	require.Equal(t, int64(68_000), s.Clocks.DeadlineMs)
	require.Equal(t, 2, s.Clocks.Black.PeriodsLeft)
}

func TestDisconnectForfeitRules(t *testing.T) {
	s := newClockSession(TimeControl{MainMs: 60_000})

	require.False(t, s.MarkDisconnected(board.Black, 0))
	require.False(t, s.DisconnectExpired(DisconnectGraceMs-1))
	require.True(t, s.DisconnectExpired(DisconnectGraceMs))

	s.MarkReconnected(board.Black)
	require.Equal(t, board.Empty, s.Disconnect.Color)

	// Third drop in one match forfeits without waiting out the grace.
	require.False(t, s.MarkDisconnected(board.Black, 1))
	s.MarkReconnected(board.Black)
	require.True(t, s.MarkDisconnected(board.Black, 2))
}
