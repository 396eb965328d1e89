package game

import "github.com/hanq-games/baduk-server/internal/board"

// Disconnection policy: one grace window per drop, immediate loss after
// repeated drops in the same match.
const (
	DisconnectGraceMs = 60_000
	MaxDisconnects    = 3
)

// PlayerClock is one side's time state. RemainingMs is main time only; a
// running byoyomi period is tracked through the shared deadline and is not
// drawn from RemainingMs.
type PlayerClock struct {
	RemainingMs int64 `json:"remaining_ms"`
	PeriodsLeft int   `json:"periods_left"`
	InByoyomi   bool  `json:"in_byoyomi"`
	// PeriodResidMs preserves the running period across a pause.
	PeriodResidMs int64 `json:"period_resid_ms,omitempty"`
}

type Clocks struct {
	Black       PlayerClock `json:"black"`
	White       PlayerClock `json:"white"`
	TurnStartMs int64       `json:"turn_start_ms"`
	DeadlineMs  int64       `json:"deadline_ms"`
	Running     bool        `json:"running"`
}

func (c *Clocks) Of(col board.Color) *PlayerClock {
	if col == board.White {
		return &c.White
	}
	return &c.Black
}

// InitClocks seeds both sides from the time control.
func (s *Session) InitClocks() {
	tc := s.Settings.Time
	pc := PlayerClock{RemainingMs: tc.MainMs, PeriodsLeft: tc.ByoyomiPeriods}
	s.Clocks = Clocks{Black: pc, White: pc}
}

// StartClock arms the deadline for the player to move. Entering with zero
// main time starts a byoyomi period; the period is only consumed when it
// is fully exhausted.
func (s *Session) StartClock(nowMs int64) {
	pc := s.Clocks.Of(s.Current)
	s.Clocks.TurnStartMs = nowMs
	s.Clocks.Running = true

	switch {
	case pc.RemainingMs > 0:
		s.Clocks.DeadlineMs = nowMs + pc.RemainingMs
	case !s.Settings.Time.Fischer() && pc.PeriodsLeft > 0:
		pc.InByoyomi = true
		s.Clocks.DeadlineMs = nowMs + s.Settings.Time.ByoyomiMs
	default:
		s.Clocks.DeadlineMs = nowMs
	}
}

// StopClock settles the mover's elapsed time at the end of their turn.
// Nothing is deducted inside a byoyomi period (its duration is fixed); in
// fischer mode the increment is added after the deduction.
func (s *Session) StopClock(nowMs int64) {
	if !s.Clocks.Running || s.Current == board.Empty {
		return
	}
	pc := s.Clocks.Of(s.Current)
	elapsed := nowMs - s.Clocks.TurnStartMs
	if elapsed < 0 {
		elapsed = 0
	}

	if !pc.InByoyomi {
		pc.RemainingMs -= elapsed
		if pc.RemainingMs < 0 {
			pc.RemainingMs = 0
		}
	}
	if s.Settings.Time.Fischer() {
		pc.RemainingMs += s.Settings.Time.FischerMs
	}
	s.Clocks.Running = false
}

// SwitchTurn hands the move to the opponent with a single time sample.
func (s *Session) SwitchTurn(nowMs int64) {
	s.StopClock(nowMs)
	s.Current = s.Current.Opponent()
	s.StartClock(nowMs)
}

// PauseClock freezes the running clock, preserving either main time or the
// residual of the running byoyomi period.
func (s *Session) PauseClock(nowMs int64) {
	if !s.Clocks.Running {
		return
	}
	pc := s.Clocks.Of(s.Current)
	if pc.InByoyomi {
		resid := s.Clocks.DeadlineMs - nowMs
		if resid < 0 {
			resid = 0
		}
		pc.PeriodResidMs = resid
	} else {
		elapsed := nowMs - s.Clocks.TurnStartMs
		if elapsed < 0 {
			elapsed = 0
		}
		pc.RemainingMs -= elapsed
		if pc.RemainingMs < 0 {
			pc.RemainingMs = 0
		}
	}
	s.Clocks.Running = false
}

// ResumeClock re-arms the deadline for the current player after a pause.
func (s *Session) ResumeClock(nowMs int64) {
	pc := s.Clocks.Of(s.Current)
	if pc.InByoyomi {
		resid := pc.PeriodResidMs
		if resid <= 0 {
			resid = s.Settings.Time.ByoyomiMs
		}
		pc.PeriodResidMs = 0
		s.Clocks.TurnStartMs = nowMs
		s.Clocks.DeadlineMs = nowMs + resid
		s.Clocks.Running = true
		return
	}
	s.StartClock(nowMs)
}

// ClockExpired reports whether the armed deadline has passed.
func (s *Session) ClockExpired(nowMs int64) bool {
	return s.Clocks.Running && nowMs >= s.Clocks.DeadlineMs
}

// OnClockExpired advances the clock state machine at a deadline. The
// return value is true when the current player has lost on time: main time
// gone with no byoyomi periods, the last period exhausted, or any fischer
// expiry.
func (s *Session) OnClockExpired(nowMs int64) (timeout bool) {
	pc := s.Clocks.Of(s.Current)

	if s.Settings.Time.Fischer() {
		pc.RemainingMs = 0
		s.Clocks.Running = false
		return true
	}

	if !pc.InByoyomi {
		pc.RemainingMs = 0
		if pc.PeriodsLeft > 0 {
			pc.InByoyomi = true
			s.Clocks.TurnStartMs = nowMs
			s.Clocks.DeadlineMs = nowMs + s.Settings.Time.ByoyomiMs
			return false
		}
		s.Clocks.Running = false
		return true
	}

	// A full period has been exhausted: consume it.
	pc.PeriodsLeft--
	if pc.PeriodsLeft >= 1 {
		s.Clocks.TurnStartMs = nowMs
		s.Clocks.DeadlineMs = nowMs + s.Settings.Time.ByoyomiMs
		return false
	}
	s.Clocks.Running = false
	return true
}

// MarkDisconnected starts the grace window for c. The return value is true
// when the drop count alone already forfeits the match.
func (s *Session) MarkDisconnected(c board.Color, nowMs int64) (forfeit bool) {
	s.Disconnect.Color = c
	s.Disconnect.SinceMs = nowMs
	if c == board.Black {
		s.Disconnect.DropsBlack++
		return s.Disconnect.DropsBlack >= MaxDisconnects
	}
	s.Disconnect.DropsWhite++
	return s.Disconnect.DropsWhite >= MaxDisconnects
}

func (s *Session) MarkReconnected(c board.Color) {
	if s.Disconnect.Color == c {
		s.Disconnect.Color = board.Empty
		s.Disconnect.SinceMs = 0
	}
}

// DisconnectExpired reports whether the open grace window has lapsed.
func (s *Session) DisconnectExpired(nowMs int64) bool {
	return s.Disconnect.Color != board.Empty &&
		nowMs-s.Disconnect.SinceMs >= DisconnectGraceMs
}
