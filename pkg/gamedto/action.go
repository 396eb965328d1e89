// Package gamedto holds the client-facing wire types: inbound actions,
// their replies, and the session snapshot. It stays free of server-side
// dependencies.
package gamedto

// ActionType tags the inbound action union.
type ActionType string

const (
	ActPlace         ActionType = "place"
	ActPass          ActionType = "pass"
	ActResign        ActionType = "resign"
	ActNigiriGuess   ActionType = "nigiri_guess"
	ActTurnPref      ActionType = "turn_preference"
	ActRPS           ActionType = "rps"
	ActCaptureBid    ActionType = "capture_bid"
	ActPlaceBase     ActionType = "place_base"
	ActKomiBid       ActionType = "komi_bid"
	ActPlaceHidden   ActionType = "place_hidden"
	ActScan          ActionType = "scan"
	ActMissileSelect ActionType = "missile_select"
	ActMissileLaunch ActionType = "missile_launch"
	ActMissileCancel ActionType = "missile_cancel"
	ActRollDice      ActionType = "roll_dice"
	ActThrow         ActionType = "throw"
	ActFlick         ActionType = "flick"
	ActConfirmIntro  ActionType = "confirm_intro"
	ActAddStones     ActionType = "add_stones"
	ActRefresh       ActionType = "refresh_placement"
	ActPause         ActionType = "pause"
	ActResume        ActionType = "resume"
)

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Action is one client-issued command. Only the fields relevant to Type
// are set.
type Action struct {
	Type      ActionType `json:"type"`
	Point     *Point     `json:"point,omitempty"`
	Direction string     `json:"direction,omitempty"` // up/down/left/right
	Guess     string     `json:"guess,omitempty"`     // odd/even for nigiri
	Choice    string     `json:"choice,omitempty"`    // color pref, or rock/paper/scissors
	Bid       *float64   `json:"bid,omitempty"`
	Power     *float64   `json:"power,omitempty"` // curling throw strength
}

// ActionReply is the optional client-visible payload of a successful
// action.
type ActionReply struct {
	Message  string  `json:"message,omitempty"`
	Captured []Point `json:"captured,omitempty"`
	Path     []Point `json:"path,omitempty"`     // missile flight, flick slide
	Dice     []int   `json:"dice,omitempty"`
	Revealed []Point `json:"revealed,omitempty"` // hidden-stone scan result
}
