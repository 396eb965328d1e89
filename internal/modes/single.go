package modes

import (
	"context"

	"github.com/hanq-games/baduk-server/internal/board"
	"github.com/hanq-games/baduk-server/internal/game"
	"github.com/hanq-games/baduk-server/pkg/gamedto"
)

// Single-player and tower tuning.
const (
	singleSetupStones = 4
	addStonesGrant    = 2
)

func towerSetupStones(stage int) int { return 3 + stage }
func towerStoneLimit(stage int) int  { return 15 + 5*stage }

// singleHandler runs single-player practice and the tower challenge: the
// human takes Black against a staged AI position. The intro screen must
// be confirmed before the clock starts; the add-stones and
// refresh-placement boosters are only legal before the first move.
type singleHandler struct{}

func (singleHandler) Init(ctx context.Context, sess *game.Session, env *Env, nowMs int64) error {
	stage := sess.Settings.Stage
	if stage < 1 {
		stage = 1
	}
	st := &game.SingleState{Stage: stage}
	sess.State = st
	assignDirect(sess)

	n := singleSetupStones
	if sess.Mode == game.ModeTower {
		n = towerSetupStones(stage)
		st.StoneLimit = towerStoneLimit(stage)
	}
	scatterStones(sess, env, board.White, n)

	sess.Status = game.StatusIntro
	return nil
}

func (h *singleHandler) Handle(ctx context.Context, sess *game.Session, env *Env, userID string, act gamedto.Action, nowMs int64) (*gamedto.ActionReply, error) {
	st := sess.State.(*game.SingleState)

	switch sess.Status {
	case game.StatusIntro:
		switch act.Type {
		case gamedto.ActConfirmIntro:
			st.IntroConfirmed = true
			startPlaying(sess, nowMs)
			return &gamedto.ActionReply{Message: "game on"}, nil
		case gamedto.ActAddStones, gamedto.ActRefresh:
			return h.handleBooster(sess, env, st, act)
		}
		return nil, gamedto.Rejectf("confirm the introduction first")

	case game.StatusPlaying, game.StatusPaused:
		return h.handleLive(ctx, sess, env, st, userID, act, nowMs)
	}
	return nil, gamedto.Rejectf("game is not accepting actions")
}

func (singleHandler) handleBooster(sess *game.Session, env *Env, st *game.SingleState, act gamedto.Action) (*gamedto.ActionReply, error) {
	if len(sess.History) > 0 {
		return nil, gamedto.Rejectf("only available before the first move")
	}
	switch act.Type {
	case gamedto.ActAddStones:
		if st.AddStonesUsed {
			return nil, gamedto.Rejectf("add stones already used")
		}
		st.AddStonesUsed = true
		placed := scatterStones(sess, env, board.Black, addStonesGrant)
		return &gamedto.ActionReply{Message: "helper stones placed", Revealed: dtoPoints(placed)}, nil
	case gamedto.ActRefresh:
		if st.RefreshUsed {
			return nil, gamedto.Rejectf("refresh already used")
		}
		st.RefreshUsed = true
		reseedSetup(sess, env)
		return &gamedto.ActionReply{Message: "placement refreshed"}, nil
	}
	return nil, gamedto.Rejectf("unsupported action %q", act.Type)
}

// reseedSetup rescatters the white stage stones, keeping any black helper
// stones in place.
func reseedSetup(sess *game.Session, env *Env) {
	var kept []game.Move
	n := 0
	for _, mv := range sess.SetupStones {
		if mv.Color == board.White {
			sess.Board = sess.Board.Without(mv.Point)
			n++
		} else {
			kept = append(kept, mv)
		}
	}
	sess.SetupStones = kept
	scatterStones(sess, env, board.White, n)
}

func (h *singleHandler) handleLive(ctx context.Context, sess *game.Session, env *Env, st *game.SingleState, userID string, act gamedto.Action, nowMs int64) (*gamedto.ActionReply, error) {
	switch act.Type {
	case gamedto.ActPause, gamedto.ActResume:
		return handlePauseResume(sess, act, nowMs)
	case gamedto.ActResign:
		c, err := requireSeated(sess, userID)
		if err != nil {
			return nil, err
		}
		return handleResign(ctx, sess, env, c, nowMs)
	case gamedto.ActAddStones, gamedto.ActRefresh:
		if err := requireStatus(sess, game.StatusPlaying); err != nil {
			return nil, err
		}
		return h.handleBooster(sess, env, st, act)
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
		reply, err := placeStone(ctx, sess, env, c, p, false)
		if err != nil {
			return nil, err
		}
		if done := h.checkGoals(ctx, sess, env, st, c, nowMs); done {
			return reply, nil
		}
		sess.SwitchTurn(nowMs)
		return reply, nil
	case gamedto.ActPass:
		return handlePass(ctx, sess, env, c, nowMs)
	}
	return nil, gamedto.Rejectf("unsupported action %q", act.Type)
}

// checkGoals settles the run when the capture target is reached or the
// AI's stone budget is spent.
func (singleHandler) checkGoals(ctx context.Context, sess *game.Session, env *Env, st *game.SingleState, mover board.Color, nowMs int64) bool {
	target := sess.Settings.CaptureTarget
	if target > 0 && mover == board.Black && sess.Captures.Black.Total >= target {
		endGame(ctx, sess, env, nowMs, game.EndByGoal, board.Black)
		return true
	}
	if mover == board.White && st.StoneLimit > 0 {
		st.StoneLimit--
		if st.StoneLimit == 0 {
			endGame(ctx, sess, env, nowMs, game.EndByGoal, board.Empty)
			return true
		}
	}
	return false
}

func (singleHandler) OnTimerExpired(ctx context.Context, sess *game.Session, env *Env, nowMs int64) {
	// The intro has no deadline; the run waits for the player.
}

func (singleHandler) AIAction(ctx context.Context, sess *game.Session, env *Env) (gamedto.Action, error) {
	return strategicAIMove(ctx, sess, env, sess.ConsecutivePasses() >= 1)
}
