package modes

import (
	"context"

	"github.com/hanq-games/baduk-server/internal/board"
	"github.com/hanq-games/baduk-server/internal/game"
	"github.com/hanq-games/baduk-server/pkg/gamedto"
)

const defaultMissileCount = 2

var missileDirections = map[string]board.Point{
	"up":    {X: 0, Y: -1},
	"down":  {X: 0, Y: 1},
	"left":  {X: -1, Y: 0},
	"right": {X: 1, Y: 0},
}

// missileHandler plays the missile variant: normal capture-rules play,
// plus a per-side budget of missile items. A missile slides one of the
// mover's stones until it hits an edge or another stone; the landing
// resolves captures like a placement, and the mover keeps the turn.
type missileHandler struct{}

func missileCount(sess *game.Session) int {
	if sess.Settings.MissileCount > 0 {
		return sess.Settings.MissileCount
	}
	return defaultMissileCount
}

func (missileHandler) Init(ctx context.Context, sess *game.Session, env *Env, nowMs int64) error {
	n := missileCount(sess)
	sess.State = &game.MissileState{MissilesBlack: n, MissilesWhite: n}

	if sess.P1.IsAI || sess.P2.IsAI {
		assignDirect(sess)
		startPlaying(sess, nowMs)
		return nil
	}
	beginNigiri(sess, env, nowMs)
	return nil
}

func (h *missileHandler) Handle(ctx context.Context, sess *game.Session, env *Env, userID string, act gamedto.Action, nowMs int64) (*gamedto.ActionReply, error) {
	switch sess.Status {
	case game.StatusNigiri:
		if act.Type != gamedto.ActNigiriGuess {
			return nil, gamedto.Rejectf("action not available while %s", sess.Status)
		}
		done, reply, err := handleNigiriGuess(sess, userID, act)
		if err != nil {
			return nil, err
		}
		if done {
			startPlaying(sess, nowMs)
		}
		return reply, nil

	case game.StatusMissileSelecting:
		return h.handleSelecting(sess, env, userID, act, nowMs)

	case game.StatusMissileAnimating:
		return nil, gamedto.Rejectf("missile in flight")

	case game.StatusPlaying, game.StatusPaused:
		return h.handleLive(ctx, sess, env, userID, act, nowMs)
	}
	return nil, gamedto.Rejectf("game is not accepting actions")
}

func (h *missileHandler) handleLive(ctx context.Context, sess *game.Session, env *Env, userID string, act gamedto.Action, nowMs int64) (*gamedto.ActionReply, error) {
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
	st := sess.State.(*game.MissileState)

	switch act.Type {
	case gamedto.ActPlace:
		p, err := actionPoint(act)
		if err != nil {
			return nil, err
		}
		reply, err := placeStone(ctx, sess, env, c, p, false)
		if err != nil {
			return nil, err
		}
		st.UsedThisTurn = false
		sess.SwitchTurn(nowMs)
		return reply, nil
	case gamedto.ActPass:
		st.UsedThisTurn = false
		return handlePass(ctx, sess, env, c, nowMs)
	case gamedto.ActMissileSelect:
		return h.handleSelect(sess, st, c, act, nowMs)
	}
	return nil, gamedto.Rejectf("unsupported action %q", act.Type)
}

func (missileHandler) handleSelect(sess *game.Session, st *game.MissileState, c board.Color, act gamedto.Action, nowMs int64) (*gamedto.ActionReply, error) {
	if st.UsedThisTurn {
		return nil, gamedto.Rejectf("missile already used this turn")
	}
	left := st.MissilesBlack
	if c == board.White {
		left = st.MissilesWhite
	}
	if left <= 0 {
		return nil, gamedto.Rejectf("no missiles remaining")
	}
	p, err := actionPoint(act)
	if err != nil {
		return nil, err
	}
	if sess.Board.At(p) != c {
		return nil, gamedto.Rejectf("select one of your own stones")
	}

	st.Selected = &p
	sess.PauseClock(nowMs)
	armTimer(sess, game.StatusMissileSelecting, nowMs, transitionalDeadlineMs)
	return &gamedto.ActionReply{Message: "choose a direction"}, nil
}

func (h *missileHandler) handleSelecting(sess *game.Session, env *Env, userID string, act gamedto.Action, nowMs int64) (*gamedto.ActionReply, error) {
	c, err := requireTurn(sess, userID)
	if err != nil {
		return nil, err
	}
	st := sess.State.(*game.MissileState)

	switch act.Type {
	case gamedto.ActMissileCancel:
		cancelMissile(sess, st, nowMs)
		return &gamedto.ActionReply{Message: "missile cancelled"}, nil
	case gamedto.ActMissileLaunch:
		return h.launch(sess, st, c, act, nowMs)
	}
	return nil, gamedto.Rejectf("action not available while %s", sess.Status)
}

func cancelMissile(sess *game.Session, st *game.MissileState, nowMs int64) {
	st.Selected = nil
	sess.Status = game.StatusPlaying
	sess.Timer = nil
	sess.ResumeClock(nowMs)
}

func (missileHandler) launch(sess *game.Session, st *game.MissileState, c board.Color, act gamedto.Action, nowMs int64) (*gamedto.ActionReply, error) {
	dir, ok := missileDirections[act.Direction]
	if !ok {
		return nil, gamedto.Rejectf("direction must be up, down, left or right")
	}
	origin := *st.Selected
	path := slidePath(sess.Board, origin, dir)
	if len(path) == 0 {
		return nil, gamedto.Rejectf("the stone cannot move that way")
	}
	landing := path[len(path)-1]

	lifted := sess.Board.Without(origin)
	placed, err := lifted.Place(landing, c, nil)
	if err != nil {
		return nil, gamedto.Rejectf("the stone cannot land there")
	}

	recordCaptures(sess, c, placed.Captured)
	sess.Board = placed.Board
	sess.Ko = nil
	if c == board.Black {
		st.MissilesBlack--
	} else {
		st.MissilesWhite--
	}
	st.UsedThisTurn = true
	st.Selected = nil
	st.LastPath = append([]board.Point{origin}, path...)

	// The flight animation plays out, then the same player's clock
	// resumes: missile use does not spend the turn.
	armTimer(sess, game.StatusMissileAnimating, nowMs, missileAnimateMs)
	return &gamedto.ActionReply{
		Captured: dtoPoints(placed.Captured),
		Path:     dtoPoints(st.LastPath),
	}, nil
}

// slidePath returns the cells a stone at origin traverses sliding in dir,
// ending at the last empty cell before an edge or an occupied point.
// Empty when the stone cannot move at all.
func slidePath(b board.Board, origin, dir board.Point) []board.Point {
	var path []board.Point
	cur := origin
	for {
		next := board.Point{X: cur.X + dir.X, Y: cur.Y + dir.Y}
		if !b.InBounds(next) || b.At(next) != board.Empty {
			return path
		}
		path = append(path, next)
		cur = next
	}
}

func (missileHandler) OnTimerExpired(ctx context.Context, sess *game.Session, env *Env, nowMs int64) {
	switch sess.Status {
	case game.StatusNigiri:
		negotiationTimeout(sess, env)
		startPlaying(sess, nowMs)
	case game.StatusMissileSelecting:
		// Selection lapsed: back to playing without consuming the turn or
		// a missile.
		cancelMissile(sess, sess.State.(*game.MissileState), nowMs)
	case game.StatusMissileAnimating:
		sess.Status = game.StatusPlaying
		sess.Timer = nil
		sess.ResumeClock(nowMs)
	}
}

func (missileHandler) AIAction(ctx context.Context, sess *game.Session, env *Env) (gamedto.Action, error) {
	return strategicAIMove(ctx, sess, env, sess.ConsecutivePasses() >= 1)
}
