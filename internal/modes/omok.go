package modes

import (
	"context"
	"math"

	"github.com/hanq-games/baduk-server/internal/board"
	"github.com/hanq-games/baduk-server/internal/game"
	"github.com/hanq-games/baduk-server/pkg/gamedto"
)

const defaultTtamokTarget = 10

// Line axes for run detection; flanking additionally uses the mirrored
// directions.
var omokAxes = [4]board.Point{
	{X: 1, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: -1},
}

// omokHandler plays omok (five in a row) and ttamok, which adds
// pente-style flank captures with an alternative capture-count win.
// Stones never have liberties here: no suicide, no ko, no group removal
// beyond flanking.
type omokHandler struct{}

func (omokHandler) Init(ctx context.Context, sess *game.Session, env *Env, nowMs int64) error {
	st := &game.OmokState{}
	if sess.Mode == game.ModeTtamok {
		st.CaptureTarget = sess.Settings.CaptureTarget
		if st.CaptureTarget <= 0 {
			st.CaptureTarget = defaultTtamokTarget
		}
	}
	sess.State = st

	if sess.P1.IsAI || sess.P2.IsAI {
		assignDirect(sess)
		startPlaying(sess, nowMs)
		return nil
	}
	beginTurnPreference(sess, nowMs)
	return nil
}

func (h *omokHandler) Handle(ctx context.Context, sess *game.Session, env *Env, userID string, act gamedto.Action, nowMs int64) (*gamedto.ActionReply, error) {
	switch sess.Status {
	case game.StatusTurnPreference:
		done, reply, err := handleTurnPreference(sess, env, userID, act, nowMs)
		if err != nil {
			return nil, err
		}
		if done {
			startPlaying(sess, nowMs)
		}
		return reply, nil

	case game.StatusPlaying, game.StatusPaused:
		return h.handleLive(ctx, sess, env, userID, act, nowMs)
	}
	return nil, gamedto.Rejectf("game is not accepting actions")
}

func (h *omokHandler) handleLive(ctx context.Context, sess *game.Session, env *Env, userID string, act gamedto.Action, nowMs int64) (*gamedto.ActionReply, error) {
	switch act.Type {
	case gamedto.ActPause, gamedto.ActResume:
		return handlePauseResume(sess, act, nowMs)
	case gamedto.ActResign:
		c, err := requireSeated(sess, userID)
		if err != nil {
			return nil, err
		}
		return handleResign(ctx, sess, env, c, nowMs)
	}

	if err := requireStatus(sess, game.StatusPlaying); err != nil {
		return nil, err
	}
	c, err := requireTurn(sess, userID)
	if err != nil {
		return nil, err
	}

	switch act.Type {
	case gamedto.ActPlace:
		p, err := actionPoint(act)
		if err != nil {
			return nil, err
		}
		return h.place(ctx, sess, env, c, p, nowMs)
	case gamedto.ActPass:
		sess.History = append(sess.History, game.Move{Color: c, Pass: true})
		if sess.ConsecutivePasses() >= 2 {
			endNoContest(sess, nowMs)
			return &gamedto.ActionReply{Message: "both players passed"}, nil
		}
		sess.SwitchTurn(nowMs)
		return &gamedto.ActionReply{Message: "pass"}, nil
	}
	return nil, gamedto.Rejectf("unsupported action %q", act.Type)
}

func (omokHandler) place(ctx context.Context, sess *game.Session, env *Env, c board.Color, p board.Point, nowMs int64) (*gamedto.ActionReply, error) {
	if !sess.Board.InBounds(p) {
		return nil, gamedto.Rejectf("point is off the board")
	}
	if sess.Board.At(p) != board.Empty {
		return nil, gamedto.Rejectf("point is occupied")
	}

	st := sess.State.(*game.OmokState)
	sess.Board = sess.Board.With(p, c)
	sess.History = append(sess.History, game.Move{Color: c, Point: p})

	reply := &gamedto.ActionReply{}
	if sess.Mode == game.ModeTtamok {
		captured := flankCaptures(&sess.Board, p, c)
		if len(captured) > 0 {
			sess.Captures.Of(c).Total += len(captured)
			reply.Captured = dtoPoints(captured)
		}
		if sess.Captures.Of(c).Total >= st.CaptureTarget {
			endGame(ctx, sess, env, nowMs, game.EndByGoal, c)
			reply.Message = "capture target reached"
			return reply, nil
		}
	}

	if line, ok := winningLine(sess.Board, p, c, overlineForbiddenFor(sess, c)); ok {
		st.WinningLine = line
		endGame(ctx, sess, env, nowMs, game.EndByLine, c)
		reply.Message = "five in a row"
		return reply, nil
	}

	if len(sess.Board.EmptyPoints()) == 0 {
		endNoContest(sess, nowMs)
		reply.Message = "board full: draw"
		return reply, nil
	}

	sess.SwitchTurn(nowMs)
	return reply, nil
}

func overlineForbiddenFor(sess *game.Session, c board.Color) bool {
	return sess.Settings.OverlineForbidden && c == board.Black
}

// winningLine returns the completed run through p. With overline
// forbidden the run must be exactly five; otherwise five or more wins and
// the whole run is reported.
func winningLine(b board.Board, p board.Point, c board.Color, exactFive bool) ([]board.Point, bool) {
	for _, axis := range omokAxes {
		run := runThrough(b, p, c, axis)
		if len(run) == 5 || (len(run) > 5 && !exactFive) {
			return run, true
		}
	}
	return nil, false
}

// runThrough collects the contiguous same-colored run through p along
// one axis, ordered from the negative end.
func runThrough(b board.Board, p board.Point, c board.Color, axis board.Point) []board.Point {
	start := p
	for {
		prev := board.Point{X: start.X - axis.X, Y: start.Y - axis.Y}
		if !b.InBounds(prev) || b.At(prev) != c {
			break
		}
		start = prev
	}
	var run []board.Point
	for cur := start; b.InBounds(cur) && b.At(cur) == c; cur = (board.Point{X: cur.X + axis.X, Y: cur.Y + axis.Y}) {
		run = append(run, cur)
	}
	return run
}

// flankCaptures removes every pair of enemy stones bracketed between the
// just-placed stone and another of the mover's stones, checking all eight
// directions.
func flankCaptures(b *board.Board, p board.Point, c board.Color) []board.Point {
	enemy := c.Opponent()
	var captured []board.Point
	for _, axis := range omokAxes {
		for _, sign := range [2]int{1, -1} {
			d := board.Point{X: axis.X * sign, Y: axis.Y * sign}
			p1 := board.Point{X: p.X + d.X, Y: p.Y + d.Y}
			p2 := board.Point{X: p.X + 2*d.X, Y: p.Y + 2*d.Y}
			p3 := board.Point{X: p.X + 3*d.X, Y: p.Y + 3*d.Y}
			if !b.InBounds(p3) {
				continue
			}
			if b.At(p1) == enemy && b.At(p2) == enemy && b.At(p3) == c {
				*b = b.Without(p1).Without(p2)
				captured = append(captured, p1, p2)
			}
		}
	}
	return captured
}

func (omokHandler) OnTimerExpired(ctx context.Context, sess *game.Session, env *Env, nowMs int64) {
	if sess.Status == game.StatusTurnPreference {
		negotiationTimeout(sess, env)
		startPlaying(sess, nowMs)
	}
}

// AIAction rates every empty point by the longest run it completes for
// either side, favoring its own wins over blocks, with a ttamok capture
// bonus and a mild center pull.
func (omokHandler) AIAction(ctx context.Context, sess *game.Session, env *Env) (gamedto.Action, error) {
	c := sess.Current
	enemy := c.Opponent()
	center := float64(sess.Board.Size-1) / 2

	var best []board.Point
	bestScore := math.Inf(-1)
	for _, p := range sess.Board.EmptyPoints() {
		mine := sess.Board.With(p, c)
		theirs := sess.Board.With(p, enemy)
		myRun, oppRun := 0, 0
		for _, axis := range omokAxes {
			if n := len(runThrough(mine, p, c, axis)); n > myRun {
				myRun = n
			}
			if n := len(runThrough(theirs, p, enemy, axis)); n > oppRun {
				oppRun = n
			}
		}
		score := math.Pow(10, float64(myRun)) + 0.9*math.Pow(10, float64(oppRun))
		if sess.Mode == game.ModeTtamok {
			probe := sess.Board.With(p, c)
			score += 500 * float64(len(flankCaptures(&probe, p, c)))
		}
		score -= (math.Abs(float64(p.X)-center) + math.Abs(float64(p.Y)-center)) * 0.5

		switch {
		case score > bestScore:
			bestScore, best = score, []board.Point{p}
		case score == bestScore:
			best = append(best, p)
		}
	}
	if len(best) == 0 {
		return gamedto.Action{Type: gamedto.ActPass}, nil
	}
	p := best[env.Intn(len(best))]
	return gamedto.Action{Type: gamedto.ActPlace, Point: &gamedto.Point{X: p.X, Y: p.Y}}, nil
}
