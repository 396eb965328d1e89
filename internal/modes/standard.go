package modes

import (
	"context"

	"github.com/hanq-games/baduk-server/internal/game"
	"github.com/hanq-games/baduk-server/pkg/gamedto"
)

// standardHandler is the baseline capture-rules game: negotiation, then
// alternating placement until two passes, resignation or timeout.
type standardHandler struct{}

func (standardHandler) Init(ctx context.Context, sess *game.Session, env *Env, nowMs int64) error {
	if sess.P1.IsAI || sess.P2.IsAI {
		assignDirect(sess)
		startPlaying(sess, nowMs)
		return nil
	}
	beginNigiri(sess, env, nowMs)
	return nil
}

func (h *standardHandler) Handle(ctx context.Context, sess *game.Session, env *Env, userID string, act gamedto.Action, nowMs int64) (*gamedto.ActionReply, error) {
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

	case game.StatusPlaying, game.StatusPaused:
		return h.handleLive(ctx, sess, env, userID, act, nowMs)
	}
	return nil, gamedto.Rejectf("game is not accepting actions")
}

func (standardHandler) handleLive(ctx context.Context, sess *game.Session, env *Env, userID string, act gamedto.Action, nowMs int64) (*gamedto.ActionReply, error) {
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
		sess.SwitchTurn(nowMs)
		return reply, nil
	case gamedto.ActPass:
		return handlePass(ctx, sess, env, c, nowMs)
	}
	return nil, gamedto.Rejectf("unsupported action %q", act.Type)
}

func (standardHandler) OnTimerExpired(ctx context.Context, sess *game.Session, env *Env, nowMs int64) {
	if sess.Status == game.StatusNigiri {
		negotiationTimeout(sess, env)
		startPlaying(sess, nowMs)
	}
}

func (standardHandler) AIAction(ctx context.Context, sess *game.Session, env *Env) (gamedto.Action, error) {
	return strategicAIMove(ctx, sess, env, sess.ConsecutivePasses() >= 1)
}
