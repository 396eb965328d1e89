package server

import (
	"github.com/hanq-games/baduk-server/internal/board"
	"github.com/hanq-games/baduk-server/internal/game"
	"github.com/hanq-games/baduk-server/pkg/gamedto"
)

// BuildSnapshot projects a session into its client-visible form for one
// viewer. In hidden-stone games the opponent's unrevealed stones are
// blanked from the cell grid; a spectator (or empty viewerID) gets both
// sides blanked.
func BuildSnapshot(sess *game.Session, viewerID string) *gamedto.Snapshot {
	snap := &gamedto.Snapshot{
		ID:        sess.ID,
		Mode:      string(sess.Mode),
		Status:    string(sess.Status),
		BoardSize: sess.Board.Size,
		Cells:     visibleCells(sess, viewerID),
		Current:   sess.Current.String(),
		MoveCount: len(sess.History),
		CapturesB: sess.Captures.Black.Total,
		CapturesW: sess.Captures.White.Total,
		Komi:      sess.Settings.Komi,
	}

	snap.Black = playerView(sess.Black)
	snap.White = playerView(sess.White)

	snap.ClockBlack = clockView(sess.Clocks.Black)
	snap.ClockWhite = clockView(sess.Clocks.White)
	if sess.Clocks.Running {
		snap.DeadlineMs = sess.Clocks.DeadlineMs
	}
	if sess.Timer != nil {
		snap.TimerForMs = sess.Timer.DeadlineMs
	}

	if last := lastVisibleMove(sess, viewerID); last != nil {
		snap.LastMove = &gamedto.Point{X: last.X, Y: last.Y}
	}

	if sess.Result != nil {
		snap.Result = resultView(sess.Result)
	}
	return snap
}

func playerView(p *game.Player) *gamedto.PlayerView {
	if p == nil {
		return nil
	}
	return &gamedto.PlayerView{ID: p.ID, Name: p.Name, IsAI: p.IsAI, Rating: p.Rating}
}

func clockView(pc game.PlayerClock) gamedto.ClockView {
	return gamedto.ClockView{
		RemainingMs: pc.RemainingMs,
		PeriodsLeft: pc.PeriodsLeft,
		InByoyomi:   pc.InByoyomi,
	}
}

// visibleCells copies the grid and blanks hidden stones the viewer has no
// right to see. Everything is visible once the game has ended.
func visibleCells(sess *game.Session, viewerID string) []int8 {
	cells := make([]int8, len(sess.Board.Cells))
	for i, c := range sess.Board.Cells {
		cells[i] = int8(c)
	}
	if sess.Ended() {
		return cells
	}

	st, ok := sess.State.(*game.HiddenState)
	if !ok {
		return cells
	}
	viewer := sess.ColorOf(viewerID)
	if viewer != board.Black {
		blankUnrevealed(cells, sess, st.HiddenBlack, st.Revealed)
	}
	if viewer != board.White {
		blankUnrevealed(cells, sess, st.HiddenWhite, st.Revealed)
	}
	return cells
}

func blankUnrevealed(cells []int8, sess *game.Session, hidden, revealed []board.Point) {
	for _, p := range hidden {
		if pointIn(revealed, p) {
			continue
		}
		cells[p.Y*sess.Board.Size+p.X] = int8(board.Empty)
	}
}

func pointIn(pts []board.Point, p board.Point) bool {
	for _, q := range pts {
		if q == p {
			return true
		}
	}
	return false
}

// lastVisibleMove is the most recent board placement the viewer may see;
// passes, resigns and the opponent's unrevealed hidden placements are
// skipped.
func lastVisibleMove(sess *game.Session, viewerID string) *board.Point {
	viewer := sess.ColorOf(viewerID)
	st, _ := sess.State.(*game.HiddenState)
	for i := len(sess.History) - 1; i >= 0; i-- {
		mv := sess.History[i]
		if mv.Pass || mv.Resign {
			continue
		}
		if mv.Hidden && !sess.Ended() && mv.Color != viewer {
			if st == nil || !pointIn(st.Revealed, mv.Point) {
				continue
			}
		}
		p := mv.Point
		return &p
	}
	return nil
}

func resultView(r *game.Result) *gamedto.ResultView {
	return &gamedto.ResultView{
		Winner:       r.Winner.String(),
		Method:       string(r.Method),
		Black:        scoreView(r.Black),
		White:        scoreView(r.White),
		WinrateBlack: r.WinrateBlack,
		ScoreLead:    r.ScoreLead,
	}
}

func scoreView(s game.SideScore) gamedto.ScoreView {
	return gamedto.ScoreView{
		Territory:   s.Territory,
		Captures:    s.Captures,
		BaseBonus:   s.BaseBonus,
		HiddenBonus: s.HiddenBonus,
		TimeBonus:   s.TimeBonus,
		Komi:        s.Komi,
		Total:       s.Total,
	}
}
