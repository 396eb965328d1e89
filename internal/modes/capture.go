package modes

import (
	"context"
	"fmt"

	"github.com/hanq-games/baduk-server/internal/board"
	"github.com/hanq-games/baduk-server/internal/game"
	"github.com/hanq-games/baduk-server/pkg/gamedto"
)

const defaultCaptureTarget = 5

// captureHandler plays first-to-N captures. Both sides seal a target
// bid; the higher bid becomes the match target, so the bolder player
// raises the bar for both.
type captureHandler struct{}

func (captureHandler) Init(ctx context.Context, sess *game.Session, env *Env, nowMs int64) error {
	st := &game.CaptureState{}
	sess.State = st

	if sess.P1.IsAI || sess.P2.IsAI {
		assignDirect(sess)
	} else {
		beginNigiri(sess, env, nowMs)
		return nil
	}

	armTimer(sess, game.StatusCaptureBid, nowMs, transitionalDeadlineMs)
	aiFillCaptureBid(sess, env)
	if st.DoneB && st.DoneW {
		revealCaptureBids(sess, nowMs)
	}
	return nil
}

func (h *captureHandler) Handle(ctx context.Context, sess *game.Session, env *Env, userID string, act gamedto.Action, nowMs int64) (*gamedto.ActionReply, error) {
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
			armTimer(sess, game.StatusCaptureBid, nowMs, transitionalDeadlineMs)
		}
		return reply, nil

	case game.StatusCaptureBid:
		return h.handleBid(sess, env, userID, act, nowMs)

	case game.StatusBidReveal:
		return nil, gamedto.Rejectf("bid reveal in progress")

	case game.StatusPlaying, game.StatusPaused:
		return h.handleLive(ctx, sess, env, userID, act, nowMs)
	}
	return nil, gamedto.Rejectf("game is not accepting actions")
}

func (captureHandler) handleBid(sess *game.Session, env *Env, userID string, act gamedto.Action, nowMs int64) (*gamedto.ActionReply, error) {
	if act.Type != gamedto.ActCaptureBid {
		return nil, gamedto.Rejectf("action not available while %s", sess.Status)
	}
	c, err := requireSeated(sess, userID)
	if err != nil {
		return nil, err
	}
	if act.Bid == nil || *act.Bid < 1 {
		return nil, gamedto.Rejectf("bid must be a positive capture count")
	}

	st := sess.State.(*game.CaptureState)
	bid := int(*act.Bid)
	if c == board.Black {
		if st.DoneB {
			return nil, gamedto.Rejectf("bid already submitted")
		}
		st.BidBlack, st.DoneB = bid, true
	} else {
		if st.DoneW {
			return nil, gamedto.Rejectf("bid already submitted")
		}
		st.BidWhite, st.DoneW = bid, true
	}

	if st.DoneB && st.DoneW {
		revealCaptureBids(sess, nowMs)
		return &gamedto.ActionReply{Message: fmt.Sprintf("target set to %d captures", st.Target)}, nil
	}
	return &gamedto.ActionReply{Message: "bid sealed, waiting for opponent"}, nil
}

// revealCaptureBids settles the target at the higher bid and shows it
// briefly before play.
func revealCaptureBids(sess *game.Session, nowMs int64) {
	st := sess.State.(*game.CaptureState)
	st.Target = st.BidBlack
	if st.BidWhite > st.Target {
		st.Target = st.BidWhite
	}
	armTimer(sess, game.StatusBidReveal, nowMs, bidRevealMs)
}

func (h *captureHandler) handleLive(ctx context.Context, sess *game.Session, env *Env, userID string, act gamedto.Action, nowMs int64) (*gamedto.ActionReply, error) {
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
		reply, err := placeStone(ctx, sess, env, c, p, false)
		if err != nil {
			return nil, err
		}
		st := sess.State.(*game.CaptureState)
		if sess.Captures.Of(c).Total >= st.Target {
			endGame(ctx, sess, env, nowMs, game.EndByGoal, c)
			reply.Message = "capture target reached"
			return reply, nil
		}
		sess.SwitchTurn(nowMs)
		return reply, nil
	case gamedto.ActPass:
		return handlePass(ctx, sess, env, c, nowMs)
	}
	return nil, gamedto.Rejectf("unsupported action %q", act.Type)
}

func (captureHandler) OnTimerExpired(ctx context.Context, sess *game.Session, env *Env, nowMs int64) {
	switch sess.Status {
	case game.StatusNigiri:
		negotiationTimeout(sess, env)
		armTimer(sess, game.StatusCaptureBid, nowMs, transitionalDeadlineMs)
		aiFillCaptureBid(sess, env)
	case game.StatusCaptureBid:
		st := sess.State.(*game.CaptureState)
		if !st.DoneB {
			st.BidBlack, st.DoneB = fallbackCaptureBid(sess), true
		}
		if !st.DoneW {
			st.BidWhite, st.DoneW = fallbackCaptureBid(sess), true
		}
		revealCaptureBids(sess, nowMs)
	case game.StatusBidReveal:
		startPlaying(sess, nowMs)
	}
}

func (captureHandler) AIAction(ctx context.Context, sess *game.Session, env *Env) (gamedto.Action, error) {
	// Passing is pointless before the target is met.
	return strategicAIMove(ctx, sess, env, false)
}

func fallbackCaptureBid(sess *game.Session) int {
	if sess.Settings.CaptureTarget > 0 {
		return sess.Settings.CaptureTarget
	}
	return defaultCaptureTarget
}

// aiFillCaptureBid submits the configured default on behalf of AI seats.
func aiFillCaptureBid(sess *game.Session, env *Env) {
	if sess.Status != game.StatusCaptureBid {
		return
	}
	st := sess.State.(*game.CaptureState)
	for _, c := range []board.Color{board.Black, board.White} {
		pl := sess.PlayerFor(c)
		if pl == nil || !pl.IsAI {
			continue
		}
		bid := fallbackCaptureBid(sess)
		if c == board.Black && !st.DoneB {
			st.BidBlack, st.DoneB = bid, true
		}
		if c == board.White && !st.DoneW {
			st.BidWhite, st.DoneW = bid, true
		}
	}
}
