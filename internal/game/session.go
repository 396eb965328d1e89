// Package game defines the GameSession aggregate: the per-match state the
// dispatcher-routed handlers and the periodic tick mutate, and the shared
// turn/clock arithmetic every mode builds on.
package game

import (
	"time"

	"github.com/hanq-games/baduk-server/internal/board"
	"github.com/hanq-games/baduk-server/internal/gtp"
	"github.com/hanq-games/baduk-server/pkg/gamedto"
)

// Mode is the game family discriminator.
type Mode string

const (
	ModeStandard Mode = "standard"
	ModeCapture  Mode = "capture"
	ModeBase     Mode = "base"
	ModeHidden   Mode = "hidden"
	ModeMissile  Mode = "missile"
	ModeOmok     Mode = "omok"
	ModeTtamok   Mode = "ttamok"
	ModeDice     Mode = "dice"
	ModeCurling  Mode = "curling"
	ModeAlkkagi  Mode = "alkkagi"
	ModeSingle   Mode = "single"
	ModeTower    Mode = "tower"
)

// Strategic reports whether the mode is a board-rules baduk variant the
// engine or the heuristic selector can play, as opposed to a mini-game.
func (m Mode) Strategic() bool {
	switch m {
	case ModeStandard, ModeCapture, ModeBase, ModeHidden, ModeMissile, ModeSingle, ModeTower:
		return true
	}
	return false
}

// Status is the top-level state-machine discriminator.
type Status string

const (
	StatusPending          Status = "pending"
	StatusNigiri           Status = "nigiri"
	StatusTurnPreference   Status = "turn_preference"
	StatusCaptureBid       Status = "capture_bid"
	StatusBasePlacing      Status = "base_placing"
	StatusKomiBidding      Status = "komi_bidding"
	StatusBidReveal        Status = "bid_reveal"
	StatusHiddenPlacing    Status = "hidden_placing"
	StatusMissileSelecting Status = "missile_selecting"
	StatusMissileAnimating Status = "missile_animating"
	StatusIntro            Status = "intro"
	StatusPlaying          Status = "playing"
	StatusPaused           Status = "paused"
	StatusEnded            Status = "ended"
	StatusNoContest        Status = "no_contest"
)

// EndMethod records how a finished game ended.
type EndMethod string

const (
	EndByScore      EndMethod = "score"
	EndByResign     EndMethod = "resign"
	EndByTimeout    EndMethod = "timeout"
	EndByDisconnect EndMethod = "disconnect"
	EndByGoal       EndMethod = "goal"
	EndByLine       EndMethod = "line"
	EndByNoContest  EndMethod = "no_contest"
)

// TimeControl is either main time + byoyomi periods, or a fischer
// increment when FischerMs > 0.
type TimeControl struct {
	MainMs         int64 `json:"main_ms"`
	ByoyomiMs      int64 `json:"byoyomi_ms"`
	ByoyomiPeriods int   `json:"byoyomi_periods"`
	FischerMs      int64 `json:"fischer_ms"`
}

func (tc TimeControl) Fischer() bool { return tc.FischerMs > 0 }

// Settings are the negotiated match parameters. Mode-specific fields stay
// zero for modes that do not use them.
type Settings struct {
	BoardSize         int         `json:"board_size"`
	Komi              float64     `json:"komi"`
	Time              TimeControl `json:"time"`
	CaptureTarget     int         `json:"capture_target,omitempty"`
	MissileCount      int         `json:"missile_count,omitempty"`
	HiddenStones      int         `json:"hidden_stones,omitempty"`
	ScanCount         int         `json:"scan_count,omitempty"`
	BaseStones        int         `json:"base_stones,omitempty"`
	OverlineForbidden bool        `json:"overline_forbidden,omitempty"`
	AILevel           int         `json:"ai_level,omitempty"`
	Stage             int         `json:"stage,omitempty"`
}

// Player is one seat of the match.
type Player struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IsAI    bool   `json:"is_ai,omitempty"`
	Rating  int    `json:"rating,omitempty"`
	Coins   int    `json:"coins,omitempty"`
	Guild   string `json:"guild,omitempty"`
}

// Move is one history entry. Exactly one of Pass/Resign may be set; Hidden
// marks stones placed invisibly in hidden-stone mode.
type Move struct {
	Color  board.Color `json:"color"`
	Point  board.Point `json:"point"`
	Pass   bool        `json:"pass,omitempty"`
	Resign bool        `json:"resign,omitempty"`
	Hidden bool        `json:"hidden,omitempty"`
}

// CaptureCount splits live captures into base- and hidden-stone
// sub-counts for bonus scoring.
type CaptureCount struct {
	Total  int `json:"total"`
	Base   int `json:"base"`
	Hidden int `json:"hidden"`
}

type Captures struct {
	Black CaptureCount `json:"black"`
	White CaptureCount `json:"white"`
}

func (c *Captures) Of(col board.Color) *CaptureCount {
	if col == board.White {
		return &c.White
	}
	return &c.Black
}

// PendingTimer is the single transitional-phase deadline: the status it
// belongs to plus when it auto-resolves.
type PendingTimer struct {
	For        Status `json:"for"`
	DeadlineMs int64  `json:"deadline_ms"`
}

// SetupPhase carries the fairness mechanics used before colors are
// assigned: nigiri coin-guess, or color preference with a
// rock-paper-scissors tiebreak.
type SetupPhase struct {
	NigiriCount  int    `json:"nigiri_count,omitempty"`
	NigiriHolder int    `json:"nigiri_holder,omitempty"` // seat 1 or 2
	Pref1        string `json:"pref1,omitempty"`
	Pref2        string `json:"pref2,omitempty"`
	RPS1         string `json:"rps1,omitempty"`
	RPS2         string `json:"rps2,omitempty"`
}

// DisconnectState tracks the live grace timer and per-player drop counts.
type DisconnectState struct {
	Color      board.Color `json:"color"` // Empty when nobody is disconnected
	SinceMs    int64       `json:"since_ms,omitempty"`
	DropsBlack int         `json:"drops_black,omitempty"`
	DropsWhite int         `json:"drops_white,omitempty"`
}

// SideScore is one side of the final settlement breakdown.
type SideScore struct {
	Territory   float64 `json:"territory"`
	Captures    int     `json:"captures"`
	BaseBonus   float64 `json:"base_bonus"`
	HiddenBonus float64 `json:"hidden_bonus"`
	TimeBonus   float64 `json:"time_bonus"`
	ItemBonus   float64 `json:"item_bonus"`
	Komi        float64 `json:"komi"`
	Total       float64 `json:"total"`
}

// Result is the immutable settlement of a finished game.
type Result struct {
	Winner       board.Color `json:"winner"`
	Method       EndMethod   `json:"method"`
	Black        SideScore   `json:"black"`
	White        SideScore   `json:"white"`
	WinrateBlack float64     `json:"winrate_black"`
	ScoreLead    float64     `json:"score_lead"`
	EndedAtMs    int64       `json:"ended_at_ms"`
}

// PendingAIMove is an AI action generated off the tick loop, buffered
// until its artificial thinking delay elapses.
type PendingAIMove struct {
	UserID    string         `json:"user_id"`
	Action    gamedto.Action `json:"action"`
	ReadyAtMs int64          `json:"ready_at_ms"`
}

// Session is the root aggregate, one per match. It is mutated exclusively
// through dispatcher-routed handlers and the periodic tick, serialized per
// session by the server's actors.
type Session struct {
	ID        string    `json:"id"`
	Mode      Mode      `json:"mode"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Seats in join order; Black/White point at the same players once
	// colors are assigned.
	P1    *Player `json:"p1"`
	P2    *Player `json:"p2"`
	Black *Player `json:"black,omitempty"`
	White *Player `json:"white,omitempty"`

	Settings Settings `json:"settings"`

	Board       board.Board  `json:"board"`
	SetupStones []Move       `json:"setup_stones,omitempty"`
	History     []Move       `json:"history"`
	Captures    Captures     `json:"captures"`
	Current     board.Color  `json:"current"`
	Clocks      Clocks       `json:"clocks"`
	Ko          *board.Point `json:"ko,omitempty"`

	Status Status        `json:"status"`
	Timer  *PendingTimer `json:"timer,omitempty"`
	Setup  *SetupPhase   `json:"setup,omitempty"`

	// State holds the mode-specific variant; see modestate.go for the
	// tagged JSON envelope keyed by Mode.
	State ModeState `json:"-"`

	Disconnect DisconnectState `json:"disconnect"`
	Analysis   *gtp.Analysis   `json:"analysis,omitempty"`
	Result     *Result         `json:"result,omitempty"`
	PendingAI  *PendingAIMove  `json:"pending_ai,omitempty"`
}

// PlayerFor returns the player seated at color c, nil before assignment.
func (s *Session) PlayerFor(c board.Color) *Player {
	switch c {
	case board.Black:
		return s.Black
	case board.White:
		return s.White
	}
	return nil
}

// ColorOf resolves a user id to their assigned color, Empty when the user
// is not a seated player or colors are not yet assigned.
func (s *Session) ColorOf(userID string) board.Color {
	if s.Black != nil && s.Black.ID == userID {
		return board.Black
	}
	if s.White != nil && s.White.ID == userID {
		return board.White
	}
	return board.Empty
}

// Seat returns 1 or 2 for a seated user, 0 otherwise.
func (s *Session) Seat(userID string) int {
	if s.P1 != nil && s.P1.ID == userID {
		return 1
	}
	if s.P2 != nil && s.P2.ID == userID {
		return 2
	}
	return 0
}

func (s *Session) Ended() bool {
	return s.Status == StatusEnded || s.Status == StatusNoContest
}

// Pausable games freeze the clock entirely while paused.
func (s *Session) Pausable() bool {
	if s.Mode == ModeSingle || s.Mode == ModeTower {
		return true
	}
	return (s.P1 != nil && s.P1.IsAI) || (s.P2 != nil && s.P2.IsAI)
}

// IsAITurn reports whether the player to move is AI-controlled.
func (s *Session) IsAITurn() bool {
	p := s.PlayerFor(s.Current)
	return p != nil && p.IsAI
}

// HiddenHistory reports whether the move log contains content the engine
// must not see as an alternating move sequence; such games are replayed
// into the engine as raw board state.
func (s *Session) HiddenHistory() bool {
	switch s.Mode {
	case ModeHidden, ModeMissile, ModeBase, ModeSingle, ModeTower:
		return true
	}
	return len(s.SetupStones) > 0
}

// EngineMoves converts the visible history into engine moves. Resign
// sentinels are not part of the engine's move vocabulary and are skipped.
func (s *Session) EngineMoves() []gtp.Move {
	out := make([]gtp.Move, 0, len(s.History))
	for _, mv := range s.History {
		if mv.Resign {
			continue
		}
		out = append(out, gtp.Move{Color: mv.Color, Point: mv.Point, Pass: mv.Pass})
	}
	return out
}

// BoardStateMoves flattens the current board into placement moves, used
// for the engine's initial-stones query when history is hidden.
func (s *Session) BoardStateMoves() []gtp.Move {
	var out []gtp.Move
	for _, c := range []board.Color{board.Black, board.White} {
		for _, p := range s.Board.Stones(c) {
			out = append(out, gtp.Move{Color: c, Point: p})
		}
	}
	return out
}

// AnalyzeRequest builds the scoring query for the current position.
func (s *Session) AnalyzeRequest(maxVisits int) gtp.AnalyzeRequest {
	req := gtp.AnalyzeRequest{
		GameID:    s.ID,
		BoardSize: s.Settings.BoardSize,
		Komi:      s.Settings.Komi,
		Board:     s.Board,
		MaxVisits: maxVisits,
	}
	if s.HiddenHistory() {
		req.InitialStones = s.BoardStateMoves()
	} else {
		req.Moves = s.EngineMoves()
	}
	return req
}

// ConsecutivePasses counts the trailing pass run of the visible history.
func (s *Session) ConsecutivePasses() int {
	n := 0
	for i := len(s.History) - 1; i >= 0; i-- {
		if !s.History[i].Pass {
			break
		}
		n++
	}
	return n
}
