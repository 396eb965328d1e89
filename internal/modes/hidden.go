package modes

import (
	"context"
	"fmt"

	"github.com/hanq-games/baduk-server/internal/board"
	"github.com/hanq-games/baduk-server/internal/game"
	"github.com/hanq-games/baduk-server/pkg/gamedto"
)

const (
	defaultHiddenStones = 2
	defaultScanCount    = 2
	scanRadius          = 1 // 3x3 window
)

// hiddenHandler plays the hidden-stone variant: each side secretly
// pre-places stones the opponent cannot see. The board stays
// authoritative; snapshots redact unrevealed stones per viewer. Scans
// expose a small window, collisions expose single stones, captures score
// a bonus.
type hiddenHandler struct{}

func hiddenStoneCount(sess *game.Session) int {
	if sess.Settings.HiddenStones > 0 {
		return sess.Settings.HiddenStones
	}
	return defaultHiddenStones
}

func scanCount(sess *game.Session) int {
	if sess.Settings.ScanCount > 0 {
		return sess.Settings.ScanCount
	}
	return defaultScanCount
}

func (hiddenHandler) Init(ctx context.Context, sess *game.Session, env *Env, nowMs int64) error {
	n := hiddenStoneCount(sess)
	st := &game.HiddenState{
		PlaceLeftB: n, PlaceLeftW: n,
		ScansLeftB: scanCount(sess), ScansLeftW: scanCount(sess),
	}
	sess.State = st

	if sess.P1.IsAI || sess.P2.IsAI {
		assignDirect(sess)
		beginHiddenPlacing(sess, env, nowMs)
		return nil
	}
	beginNigiri(sess, env, nowMs)
	return nil
}

func beginHiddenPlacing(sess *game.Session, env *Env, nowMs int64) {
	armTimer(sess, game.StatusHiddenPlacing, nowMs, transitionalDeadlineMs)
	aiFillHidden(sess, env)
	maybeFinishHiddenPlacing(sess, nowMs)
}

func aiFillHidden(sess *game.Session, env *Env) {
	st := sess.State.(*game.HiddenState)
	for _, c := range []board.Color{board.Black, board.White} {
		pl := sess.PlayerFor(c)
		if pl == nil || !pl.IsAI {
			continue
		}
		left := &st.PlaceLeftB
		if c == board.White {
			left = &st.PlaceLeftW
		}
		for *left > 0 {
			empty := sess.Board.EmptyPoints()
			if len(empty) == 0 {
				break
			}
			p := empty[env.Intn(len(empty))]
			placeHiddenStone(sess, st, c, p)
		}
	}
}

func placeHiddenStone(sess *game.Session, st *game.HiddenState, c board.Color, p board.Point) {
	sess.Board = sess.Board.With(p, c)
	sess.SetupStones = append(sess.SetupStones, game.Move{Color: c, Point: p, Hidden: true})
	if c == board.Black {
		st.HiddenBlack = append(st.HiddenBlack, p)
		st.PlaceLeftB--
	} else {
		st.HiddenWhite = append(st.HiddenWhite, p)
		st.PlaceLeftW--
	}
}

func maybeFinishHiddenPlacing(sess *game.Session, nowMs int64) {
	st := sess.State.(*game.HiddenState)
	if st.PlaceLeftB > 0 || st.PlaceLeftW > 0 {
		return
	}
	startPlaying(sess, nowMs)
}

func (h *hiddenHandler) Handle(ctx context.Context, sess *game.Session, env *Env, userID string, act gamedto.Action, nowMs int64) (*gamedto.ActionReply, error) {
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
			beginHiddenPlacing(sess, env, nowMs)
		}
		return reply, nil

	case game.StatusHiddenPlacing:
		return h.handlePlaceHidden(sess, userID, act, nowMs)

	case game.StatusPlaying, game.StatusPaused:
		return h.handleLive(ctx, sess, env, userID, act, nowMs)
	}
	return nil, gamedto.Rejectf("game is not accepting actions")
}

func (hiddenHandler) handlePlaceHidden(sess *game.Session, userID string, act gamedto.Action, nowMs int64) (*gamedto.ActionReply, error) {
	if act.Type != gamedto.ActPlaceHidden {
		return nil, gamedto.Rejectf("action not available while %s", sess.Status)
	}
	c, err := requireSeated(sess, userID)
	if err != nil {
		return nil, err
	}
	p, err := actionPoint(act)
	if err != nil {
		return nil, err
	}
	if !sess.Board.InBounds(p) {
		return nil, gamedto.Rejectf("point is off the board")
	}
	if sess.Board.At(p) != board.Empty {
		return nil, gamedto.Rejectf("point is occupied")
	}

	st := sess.State.(*game.HiddenState)
	left := st.PlaceLeftB
	if c == board.White {
		left = st.PlaceLeftW
	}
	if left <= 0 {
		return nil, gamedto.Rejectf("all hidden stones placed")
	}

	placeHiddenStone(sess, st, c, p)
	maybeFinishHiddenPlacing(sess, nowMs)

	left--
	return &gamedto.ActionReply{Message: fmt.Sprintf("%d hidden stones remaining", left)}, nil
}

func (h *hiddenHandler) handleLive(ctx context.Context, sess *game.Session, env *Env, userID string, act gamedto.Action, nowMs int64) (*gamedto.ActionReply, error) {
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
		st := sess.State.(*game.HiddenState)
		if hit, ok := hiddenCollision(sess, st, c, p); ok {
			// Running into an invisible stone reveals it; the mover keeps
			// the turn and the information. This is a successful action so
			// the reveal is persisted, not a rejection.
			st.Revealed = append(st.Revealed, hit)
			return &gamedto.ActionReply{
				Message:  fmt.Sprintf("a hidden stone was revealed at %s", hit),
				Revealed: dtoPoints([]board.Point{hit}),
			}, nil
		}
		reply, err := placeStone(ctx, sess, env, c, p, false)
		if err != nil {
			return nil, err
		}
		sess.SwitchTurn(nowMs)
		return reply, nil
	case gamedto.ActPass:
		return handlePass(ctx, sess, env, c, nowMs)
	case gamedto.ActScan:
		return h.handleScan(sess, c, act)
	}
	return nil, gamedto.Rejectf("unsupported action %q", act.Type)
}

// hiddenCollision reports an unrevealed enemy hidden stone at p.
func hiddenCollision(sess *game.Session, st *game.HiddenState, mover board.Color, p board.Point) (board.Point, bool) {
	enemy := st.HiddenWhite
	if mover == board.White {
		enemy = st.HiddenBlack
	}
	if containsPoint(enemy, p) && !containsPoint(st.Revealed, p) {
		return p, true
	}
	return board.Point{}, false
}

// handleScan reveals enemy hidden stones in the 3x3 window around the
// target. Scanning spends a scan charge but not the turn.
func (hiddenHandler) handleScan(sess *game.Session, c board.Color, act gamedto.Action) (*gamedto.ActionReply, error) {
	p, err := actionPoint(act)
	if err != nil {
		return nil, err
	}
	if !sess.Board.InBounds(p) {
		return nil, gamedto.Rejectf("point is off the board")
	}

	st := sess.State.(*game.HiddenState)
	scans := &st.ScansLeftB
	enemy := st.HiddenWhite
	if c == board.White {
		scans, enemy = &st.ScansLeftW, st.HiddenBlack
	}
	if *scans <= 0 {
		return nil, gamedto.Rejectf("no scans remaining")
	}
	*scans--

	var revealed []board.Point
	for _, q := range enemy {
		if abs(q.X-p.X) <= scanRadius && abs(q.Y-p.Y) <= scanRadius && !containsPoint(st.Revealed, q) {
			st.Revealed = append(st.Revealed, q)
			revealed = append(revealed, q)
		}
	}
	return &gamedto.ActionReply{
		Message:  fmt.Sprintf("scan found %d hidden stones", len(revealed)),
		Revealed: dtoPoints(revealed),
	}, nil
}

func (hiddenHandler) OnTimerExpired(ctx context.Context, sess *game.Session, env *Env, nowMs int64) {
	switch sess.Status {
	case game.StatusNigiri:
		negotiationTimeout(sess, env)
		beginHiddenPlacing(sess, env, nowMs)
	case game.StatusHiddenPlacing:
		st := sess.State.(*game.HiddenState)
		for _, c := range []board.Color{board.Black, board.White} {
			left := st.PlaceLeftB
			if c == board.White {
				left = st.PlaceLeftW
			}
			for left > 0 {
				empty := sess.Board.EmptyPoints()
				if len(empty) == 0 {
					break
				}
				placeHiddenStone(sess, st, c, empty[env.Intn(len(empty))])
				left--
			}
		}
		maybeFinishHiddenPlacing(sess, nowMs)
	}
}

func (hiddenHandler) AIAction(ctx context.Context, sess *game.Session, env *Env) (gamedto.Action, error) {
	return strategicAIMove(ctx, sess, env, sess.ConsecutivePasses() >= 1)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
