package gamedto

// PlayerView is one seat as shown to clients.
type PlayerView struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	IsAI   bool   `json:"is_ai,omitempty"`
	Rating int    `json:"rating,omitempty"`
}

type ClockView struct {
	RemainingMs int64 `json:"remaining_ms"`
	PeriodsLeft int   `json:"periods_left"`
	InByoyomi   bool  `json:"in_byoyomi"`
}

type ScoreView struct {
	Territory   float64 `json:"territory"`
	Captures    int     `json:"captures"`
	BaseBonus   float64 `json:"base_bonus"`
	HiddenBonus float64 `json:"hidden_bonus"`
	TimeBonus   float64 `json:"time_bonus"`
	Komi        float64 `json:"komi"`
	Total       float64 `json:"total"`
}

type ResultView struct {
	Winner       string    `json:"winner"`
	Method       string    `json:"method"`
	Black        ScoreView `json:"black"`
	White        ScoreView `json:"white"`
	WinrateBlack float64   `json:"winrate_black"`
	ScoreLead    float64   `json:"score_lead"`
}

// Snapshot is the client-visible session state: the full session minus
// internal engine handles, with the opponent's unrevealed hidden stones
// redacted per viewer.
type Snapshot struct {
	ID         string      `json:"id"`
	Mode       string      `json:"mode"`
	Status     string      `json:"status"`
	BoardSize  int         `json:"board_size"`
	Cells      []int8      `json:"cells"`
	Black      *PlayerView `json:"black,omitempty"`
	White      *PlayerView `json:"white,omitempty"`
	Current    string      `json:"current"`
	ClockBlack ClockView   `json:"clock_black"`
	ClockWhite ClockView   `json:"clock_white"`
	DeadlineMs int64       `json:"deadline_ms,omitempty"`
	TimerForMs int64       `json:"timer_for_ms,omitempty"` // transitional-phase deadline
	MoveCount  int         `json:"move_count"`
	LastMove   *Point      `json:"last_move,omitempty"`
	CapturesB  int         `json:"captures_black"`
	CapturesW  int         `json:"captures_white"`
	Komi       float64     `json:"komi"`
	Result     *ResultView `json:"result,omitempty"`
}
