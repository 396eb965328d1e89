package game

import (
	"encoding/json"
	"fmt"

	"github.com/hanq-games/baduk-server/internal/board"
)

// ModeState is the mode-specific sub-state variant, keyed by Session.Mode.
// Handlers type-switch on the concrete variant; probing optional fields is
// what this replaces.
type ModeState interface {
	isModeState()
}

// CaptureState backs capture-target games with their sealed target bids.
type CaptureState struct {
	Target   int  `json:"target"`
	BidBlack int  `json:"bid_black,omitempty"`
	BidWhite int  `json:"bid_white,omitempty"`
	DoneB    bool `json:"done_b,omitempty"`
	DoneW    bool `json:"done_w,omitempty"`
}

// BaseState backs base-stone games: the scattered bases and the two-round
// sealed komi bid.
type BaseState struct {
	BasesBlack []board.Point `json:"bases_black"`
	BasesWhite []board.Point `json:"bases_white"`
	BidRound   int           `json:"bid_round"` // 0 or 1 while bidding
	KomiBidB   [2]float64    `json:"komi_bid_b"`
	KomiBidW   [2]float64    `json:"komi_bid_w"`
	BidDoneB   [2]bool       `json:"bid_done_b"`
	BidDoneW   [2]bool       `json:"bid_done_w"`
}

// HiddenState backs hidden-stone games: invisible placements plus scan
// budget per side.
type HiddenState struct {
	HiddenBlack []board.Point `json:"hidden_black"`
	HiddenWhite []board.Point `json:"hidden_white"`
	PlaceLeftB  int           `json:"place_left_b"`
	PlaceLeftW  int           `json:"place_left_w"`
	ScansLeftB  int           `json:"scans_left_b"`
	ScansLeftW  int           `json:"scans_left_w"`
	Revealed    []board.Point `json:"revealed,omitempty"`
}

// MissileState backs missile games: remaining missiles, the per-turn use
// flag and the in-flight selection/animation.
type MissileState struct {
	MissilesBlack int          `json:"missiles_black"`
	MissilesWhite int          `json:"missiles_white"`
	UsedThisTurn  bool         `json:"used_this_turn,omitempty"`
	Selected      *board.Point `json:"selected,omitempty"`
	LastPath      []board.Point `json:"last_path,omitempty"`
}

// OmokState backs the omok/ttamok family.
type OmokState struct {
	CaptureTarget int           `json:"capture_target,omitempty"` // ttamok alternative win
	WinningLine   []board.Point `json:"winning_line,omitempty"`
}

// DiceState backs the dice mini-game.
type DiceState struct {
	RoundsLeft int   `json:"rounds_left"`
	ScoreBlack int   `json:"score_black"`
	ScoreWhite int   `json:"score_white"`
	LastBlack  []int `json:"last_black,omitempty"`
	LastWhite  []int `json:"last_white,omitempty"`
	RolledB    bool  `json:"rolled_b,omitempty"`
	RolledW    bool  `json:"rolled_w,omitempty"`
}

// CurlingState backs the curling mini-game: alternating throws toward the
// house at board center, closest stone per end scores.
type CurlingState struct {
	ThrowsLeftB int `json:"throws_left_b"`
	ThrowsLeftW int `json:"throws_left_w"`
	ScoreBlack  int `json:"score_black"`
	ScoreWhite  int `json:"score_white"`
	End         int `json:"end"`
}

// AlkkagiState backs the flicking mini-game.
type AlkkagiState struct {
	FlicksBlack int `json:"flicks_black"`
	FlicksWhite int `json:"flicks_white"`
}

// SingleState backs single-player and tower-challenge runs.
type SingleState struct {
	Stage          int  `json:"stage"`
	IntroConfirmed bool `json:"intro_confirmed"`
	StoneLimit     int  `json:"stone_limit,omitempty"` // opponent stones the AI may still play
	AddStonesUsed  bool `json:"add_stones_used,omitempty"`
	RefreshUsed    bool `json:"refresh_used,omitempty"`
}

func (*CaptureState) isModeState() {}
func (*BaseState) isModeState()    {}
func (*HiddenState) isModeState()  {}
func (*MissileState) isModeState() {}
func (*OmokState) isModeState()    {}
func (*DiceState) isModeState()    {}
func (*CurlingState) isModeState() {}
func (*AlkkagiState) isModeState() {}
func (*SingleState) isModeState()  {}

// newStateFor allocates the empty variant owned by a mode; standard games
// carry no variant.
func newStateFor(m Mode) ModeState {
	switch m {
	case ModeCapture:
		return &CaptureState{}
	case ModeBase:
		return &BaseState{}
	case ModeHidden:
		return &HiddenState{}
	case ModeMissile:
		return &MissileState{}
	case ModeOmok, ModeTtamok:
		return &OmokState{}
	case ModeDice:
		return &DiceState{}
	case ModeCurling:
		return &CurlingState{}
	case ModeAlkkagi:
		return &AlkkagiState{}
	case ModeSingle, ModeTower:
		return &SingleState{}
	}
	return nil
}

type sessionAlias Session

type sessionEnvelope struct {
	*sessionAlias
	State json.RawMessage `json:"state,omitempty"`
}

func (s *Session) MarshalJSON() ([]byte, error) {
	env := sessionEnvelope{sessionAlias: (*sessionAlias)(s)}
	if s.State != nil {
		raw, err := json.Marshal(s.State)
		if err != nil {
			return nil, fmt.Errorf("marshal %s state: %w", s.Mode, err)
		}
		env.State = raw
	}
	return json.Marshal(env)
}

func (s *Session) UnmarshalJSON(data []byte) error {
	env := sessionEnvelope{sessionAlias: (*sessionAlias)(s)}
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	if len(env.State) == 0 {
		s.State = nil
		return nil
	}
	st := newStateFor(s.Mode)
	if st == nil {
		return fmt.Errorf("mode %q carries unexpected state payload", s.Mode)
	}
	if err := json.Unmarshal(env.State, st); err != nil {
		return fmt.Errorf("unmarshal %s state: %w", s.Mode, err)
	}
	s.State = st
	return nil
}
